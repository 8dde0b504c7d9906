package qbinding

import (
	"fmt"
	"regexp"
	"strings"

	"cogentcore.org/core/base/reflectx"
	lua "github.com/yuin/gopher-lua"
)

// A template is either a format string, where text in braces is replaced
// by a variable ({name}), a formatted variable ({name:.2f}) or the result
// of an expression ({a + b}); or, when it has no braces and is a valid
// expression, a single math expression whose result is written as is. A
// math template naming anything that is not bound is demoted to plain text.
type template struct {
	source   string
	math     bool
	fn       *lua.LFunction
	segments []segment
	// identifiers referenced by expressions
	idents []string
}

type segment struct {
	literal string
	name    string
	spec    string
	fn      *lua.LFunction
}

var (
	placeholderVariable = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?::(.*))?$`)
	identifierPattern   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	printfSpec          = regexp.MustCompile(`^[-+# 0]*[0-9]*(?:\.[0-9]+)?[fFeEgGdxXobcsqv]$`)
)

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

func parseTemplate(source string, ev *evaluator) (*template, error) {
	t := &template{source: source}
	if strings.TrimSpace(source) != "" && !strings.ContainsAny(source, "{}") {
		if fn, err := ev.compile(source); err == nil {
			t.math = true
			t.fn = fn
			t.idents = identifiers(source)
			return t, nil
		}
		// Not an expression; plain text
	}

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '{' && i+1 < len(source) && source[i+1] == '{':
			literal.WriteByte('{')
			i++
		case c == '}' && i+1 < len(source) && source[i+1] == '}':
			literal.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(source[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			content := source[i+1 : i+1+end]
			if strings.ContainsRune(content, '{') {
				return nil, fmt.Errorf("nested placeholder at offset %d", i)
			}
			flush()
			seg, err := parsePlaceholder(content, ev)
			if err != nil {
				return nil, err
			}
			if seg.fn != nil {
				t.idents = append(t.idents, identifiers(content)...)
			}
			t.segments = append(t.segments, seg)
			i += end + 1
		default:
			literal.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func parsePlaceholder(content string, ev *evaluator) (segment, error) {
	if strings.TrimSpace(content) == "" {
		return segment{}, nil
	}
	// A spec that is not a printf verb may still be a method call, as in
	// {name:upper()}
	if m := placeholderVariable.FindStringSubmatch(content); m != nil {
		spec := strings.TrimSpace(m[2])
		if spec == "" || printfSpec.MatchString(spec) {
			return segment{name: m[1], spec: spec}, nil
		}
	}
	fn, err := ev.compile(content)
	if err != nil {
		return segment{}, fmt.Errorf("placeholder {%s}: not a format spec or expression: %w", content, err)
	}
	return segment{fn: fn}, nil
}

// identifiers returns the global names an expression may refer to,
// excluding keywords, fields and method names.
func identifiers(expr string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, loc := range identifierPattern.FindAllStringIndex(expr, -1) {
		if loc[0] > 0 {
			prev := expr[loc[0]-1]
			if prev == '.' || prev == ':' || (prev >= '0' && prev <= '9') {
				continue
			}
		}
		name := expr[loc[0]:loc[1]]
		if luaKeywords[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// demote turns a math template into plain text.
func (t *template) demote() {
	t.math = false
	t.fn = nil
	t.idents = nil
	t.segments = []segment{{literal: t.source}}
}

// references returns true if the template mentions name as a whole word.
func (t *template) references(name string) bool {
	pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return false
	}
	return pattern.MatchString(t.source)
}

// formatValue formats value with a printf verb and flags, e.g. ".2f",
// "05d" or "x". Numbers are converted to suit the verb.
func formatValue(value interface{}, spec string) string {
	if value == nil {
		return ""
	}
	if spec == "" {
		return stringify(value)
	}
	switch spec[len(spec)-1] {
	case 'f', 'F', 'e', 'E', 'g', 'G':
		if f, err := reflectx.ToFloat(value); err == nil {
			return fmt.Sprintf("%"+spec, f)
		}
	case 'd', 'x', 'X', 'o', 'b', 'c':
		if i, err := reflectx.ToInt(value); err == nil {
			return fmt.Sprintf("%"+spec, i)
		}
	}
	return fmt.Sprintf("%"+spec, value)
}
