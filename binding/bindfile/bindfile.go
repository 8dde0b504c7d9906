// Package bindfile describes bindings in YAML or TOML and applies them to a
// registry, once or each time the file changes.
//
// A file lists bindings of three kinds. Endpoints are written as
// "object.property", where object is a name known to the Resolver; a
// suffix of ":path" reads and writes a path inside a JSON document
// property.
//
//	bindings:
//	  - kind: simple
//	    source: slider.value
//	    targets:
//	      - target: label.text
//	        converter: string
//	      - spin.value
//	  - kind: group
//	    members: [slider.value, spin.value]
//	  - kind: expression
//	    target: title.text
//	    template: "{first} {last}"
//	    vars:
//	      first: person.firstName
//	      last: person.lastName
//	  - kind: simple
//	    source: settings.document:window.width
//	    targets: [width.value]
package bindfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ygrebnov/errorc"
	"gopkg.in/yaml.v3"

	qbinding "github.com/CrimsonAS/qbind/binding"
	qobject "github.com/CrimsonAS/qbind/object"
)

var namespace = errorc.Namespace("bindfile")

var (
	// ErrInvalid is returned by Load for documents that do not describe
	// bindings.
	ErrInvalid = namespace.NewError("invalid binding file")
	// ErrUnknownObject is returned by Apply for object names the resolver
	// does not know.
	ErrUnknownObject = namespace.NewError("unknown object")
	// ErrUnknownConverter is returned by Apply for converter names that are
	// not registered.
	ErrUnknownConverter = namespace.NewError("unknown converter")
)

// Binding kinds.
const (
	KindSimple     = "simple"
	KindGroup      = "group"
	KindExpression = "expression"
)

// File is a parsed binding file.
type File struct {
	Bindings []Entry `yaml:"bindings" toml:"bindings"`
}

// Entry describes one binding. Which fields apply depends on Kind.
type Entry struct {
	Name string `yaml:"name" toml:"name"`
	Kind string `yaml:"kind" toml:"kind"`

	// simple
	Source  string   `yaml:"source" toml:"source"`
	Notify  string   `yaml:"notify" toml:"notify"`
	Targets []Target `yaml:"targets" toml:"targets"`

	// group
	Members []string    `yaml:"members" toml:"members"`
	Initial interface{} `yaml:"initial" toml:"initial"`

	// expression
	Target    string                 `yaml:"target" toml:"target"`
	Template  string                 `yaml:"template" toml:"template"`
	Vars      map[string]string      `yaml:"vars" toml:"vars"`
	Locals    map[string]interface{} `yaml:"locals" toml:"locals"`
	Converter string                 `yaml:"converter" toml:"converter"`

	line int
}

// Target is a target of a simple binding. It may be written as a plain
// "object.property" string.
type Target struct {
	Target    string `yaml:"target" toml:"target"`
	Converter string `yaml:"converter" toml:"converter"`
}

func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Target = node.Value
		return nil
	}
	type plain Target
	return node.Decode((*plain)(t))
}

func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	type plain Entry
	if err := node.Decode((*plain)(e)); err != nil {
		return err
	}
	e.line = node.Line
	return nil
}

// Line returns the line of the entry in its file, or 0.
func (e *Entry) Line() int {
	return e.line
}

func (e *Entry) label() string {
	if e.Name != "" {
		return e.Name
	}
	if e.line == 0 {
		return e.Kind + " binding"
	}
	return fmt.Sprintf("line %d", e.line)
}

func invalid(e *Entry, reason string) error {
	return errorc.With(ErrInvalid,
		errorc.Field("entry", e.label()),
		errorc.Field("reason", reason),
	)
}

// Load parses and validates a binding file in YAML.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, errorc.With(ErrInvalid, errorc.Field("cause", err.Error()))
	}
	return &f, f.validate()
}

// LoadTOML parses and validates a binding file in TOML, where bindings are
// an array of tables:
//
//	[[bindings]]
//	kind = "simple"
//	source = "slider.value"
//	targets = [{ target = "label.text", converter = "string" }]
func LoadTOML(r io.Reader) (*File, error) {
	var f File
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errorc.With(ErrInvalid, errorc.Field("cause", err.Error()))
	}
	return &f, f.validate()
}

// LoadFile loads a binding file, in TOML if its name ends in .toml and in
// YAML otherwise.
func LoadFile(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOML(fd)
	}
	return Load(fd)
}

func (f *File) validate() error {
	for i := range f.Bindings {
		if err := f.Bindings[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entry) validate() error {
	switch e.Kind {
	case KindSimple:
		if err := checkRef(e, e.Source); err != nil {
			return err
		}
		for _, t := range e.Targets {
			if err := checkRef(e, t.Target); err != nil {
				return err
			}
		}
	case KindGroup:
		if len(e.Members) == 0 {
			return invalid(e, "group without members")
		}
		for _, m := range e.Members {
			if err := checkRef(e, m); err != nil {
				return err
			}
		}
	case KindExpression:
		if e.Template == "" {
			return invalid(e, "expression without template")
		}
		if err := checkRef(e, e.Target); err != nil {
			return err
		}
		for _, v := range e.Vars {
			if err := checkRef(e, v); err != nil {
				return err
			}
		}
	case "":
		return invalid(e, "missing kind")
	default:
		return invalid(e, "unknown kind "+e.Kind)
	}
	return nil
}

func checkRef(e *Entry, ref string) error {
	if _, err := parseRef(ref); err != nil {
		return invalid(e, err.Error())
	}
	return nil
}

type ref struct {
	object   string
	property string
	path     string
}

func parseRef(s string) (ref, error) {
	var r ref
	s, r.path, _ = strings.Cut(s, ":")
	obj, prop, ok := strings.Cut(s, ".")
	if !ok || obj == "" || prop == "" {
		return r, fmt.Errorf("endpoint %q is not object.property", s)
	}
	r.object, r.property = obj, prop
	return r, nil
}

// Resolver finds objects by the names used in a binding file. *qobject.Loop
// is a Resolver for objects registered with an identifier.
type Resolver interface {
	Object(name string) qobject.QObject
}

// Objects is a Resolver backed by a map.
type Objects map[string]qobject.QObject

func (o Objects) Object(name string) qobject.QObject {
	return o[name]
}

// Option configures Apply.
type Option func(*applier)

// WithConverter makes a converter available by name, in addition to
// "string", "int", "float" and "bool".
func WithConverter(name string, convert qbinding.Converter) Option {
	return func(a *applier) {
		a.converters[name] = convert
	}
}

type applier struct {
	reg        *qbinding.Bindings
	resolver   Resolver
	converters map[string]qbinding.Converter
}

// Apply creates the bindings described by f in reg. It stops at the first
// entry that cannot be set up, removes the bindings it created so far and
// returns the error.
func (f *File) Apply(reg *qbinding.Bindings, resolver Resolver, opts ...Option) ([]qbinding.Binding, error) {
	a := &applier{
		reg:      reg,
		resolver: resolver,
		converters: map[string]qbinding.Converter{
			"string": qbinding.Stringify,
			"int":    qbinding.Int,
			"float":  qbinding.Float,
			"bool":   qbinding.Bool,
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	var created []qbinding.Binding
	for i := range f.Bindings {
		e := &f.Bindings[i]
		b, err := a.apply(e)
		if err != nil {
			for _, c := range created {
				reg.Remove(c)
			}
			return nil, errorc.With(err, errorc.Field("entry", e.label()))
		}
		created = append(created, b)
	}
	return created, nil
}

func (a *applier) apply(e *Entry) (qbinding.Binding, error) {
	switch e.Kind {
	case KindSimple:
		return a.simple(e)
	case KindGroup:
		return a.group(e)
	case KindExpression:
		return a.expression(e)
	}
	return nil, invalid(e, "unknown kind "+e.Kind)
}

// endpoint resolves s into an object, a property and endpoint options.
func (a *applier) endpoint(s string) (qobject.QObject, string, []qbinding.EndpointOption, error) {
	r, err := parseRef(s)
	if err != nil {
		return nil, "", nil, errorc.With(ErrInvalid, errorc.Field("cause", err.Error()))
	}
	obj := a.resolver.Object(r.object)
	if obj == nil {
		return nil, "", nil, errorc.With(ErrUnknownObject, errorc.Field("object", r.object))
	}
	var opts []qbinding.EndpointOption
	if r.path != "" {
		opts = append(opts, qbinding.Via(qbinding.JSONPath(r.path)))
	}
	return obj, r.property, opts, nil
}

func (a *applier) converter(name string) (qbinding.Converter, error) {
	if name == "" {
		return nil, nil
	}
	c, ok := a.converters[name]
	if !ok {
		return nil, errorc.With(ErrUnknownConverter, errorc.Field("converter", name))
	}
	return c, nil
}

func (a *applier) simple(e *Entry) (qbinding.Binding, error) {
	obj, prop, opts, err := a.endpoint(e.Source)
	if err != nil {
		return nil, err
	}
	if e.Notify != "" {
		opts = append(opts, qbinding.NotifyOn(e.Notify))
	}
	b, err := a.reg.Bind(obj, prop, opts...)
	if err != nil {
		return nil, err
	}
	for _, t := range e.Targets {
		if err := a.target(b, t); err != nil {
			a.reg.Remove(b)
			return nil, err
		}
	}
	return b, nil
}

func (a *applier) target(b *qbinding.SimpleBinding, t Target) error {
	obj, prop, opts, err := a.endpoint(t.Target)
	if err != nil {
		return err
	}
	convert, err := a.converter(t.Converter)
	if err != nil {
		return err
	}
	if convert != nil {
		opts = append(opts, qbinding.WithConverter(convert))
	}
	return b.To(obj, prop, opts...)
}

func (a *applier) group(e *Entry) (qbinding.Binding, error) {
	var gopts []qbinding.GroupOption
	if e.Initial != nil {
		gopts = append(gopts, qbinding.WithInitialValue(e.Initial))
	}
	g, err := a.reg.BindGroup(gopts...)
	if err != nil {
		return nil, err
	}
	for _, m := range e.Members {
		obj, prop, opts, err := a.endpoint(m)
		if err == nil {
			err = g.Add(obj, prop, opts...)
		}
		if err != nil {
			a.reg.Remove(g)
			return nil, err
		}
	}
	return g, nil
}

func (a *applier) expression(e *Entry) (qbinding.Binding, error) {
	obj, prop, targetOpts, err := a.endpoint(e.Target)
	if err != nil {
		return nil, err
	}
	var eopts []qbinding.ExpressionOption
	if len(targetOpts) > 0 {
		r, _ := parseRef(e.Target)
		eopts = append(eopts, qbinding.WithTargetAccessor(qbinding.JSONPath(r.path)))
	}
	convert, err := a.converter(e.Converter)
	if err != nil {
		return nil, err
	}
	if convert != nil {
		eopts = append(eopts, qbinding.WithResultConverter(convert))
	}

	names := make([]string, 0, len(e.Vars))
	for name := range e.Vars {
		names = append(names, name)
	}
	sort.Strings(names)

	return a.reg.BindExpression(obj, prop, e.Template, func(x *qbinding.ExpressionBinding) error {
		for name, value := range e.Locals {
			x.Local(name, value)
		}
		for _, name := range names {
			vobj, vprop, vopts, err := a.endpoint(e.Vars[name])
			if err != nil {
				return err
			}
			if err := x.Bind(name, vobj, vprop, vopts...); err != nil {
				return err
			}
		}
		return nil
	}, eopts...)
}
