package qbinding

import (
	"strconv"
	"strings"

	"github.com/ygrebnov/errorc"

	qobject "github.com/CrimsonAS/qbind/object"
)

// ExpressionBinding writes a template, rendered from the current values of
// named variables, to a target endpoint. It is recomputed whenever any
// bound variable changes.
//
// A template containing braces is a format string:
//
//	"{first} {last}"        substitution
//	"{value:.2f} m"         printf-style formatting
//	"{a + b} items"         Lua expression
//	"{{literal}}"           escaped braces
//
// Any other template that parses as a Lua expression, such as "a * 2" or
// "clamp(x, 0, 1)", is a math expression, and its result is written as is,
// provided every name in it is a bound variable, a local or a builtin when
// the builder returns. Anything else, such as "Ready" or "N/A", is written
// as plain text.
//
// Unbound variables render as the empty string in format mode. In math
// mode, empty values count as 0.
type ExpressionBinding struct {
	id             uint64
	reg            *Bindings
	target         *Endpoint
	targetAccessor Accessor
	tmpl           *template
	eval           *evaluator
	vars           map[string]*variable
	order          []string
	locals         map[string]interface{}
	convert        Converter

	building bool
	updating bool
	removed  bool
}

type variable struct {
	name     string
	endpoint *Endpoint
	sub      *subscription
	convert  Converter
	value    interface{}
}

// BindExpression creates an expression binding writing template to property
// of obj. Variables are bound by build, which may be nil for templates
// without variables; the target is computed once build returns. If build
// returns an error, the binding is removed and the error returned.
func (r *Bindings) BindExpression(obj qobject.QObject, property, template string,
	build func(*ExpressionBinding) error, opts ...ExpressionOption) (*ExpressionBinding, error) {
	if r.closed {
		return nil, ErrClosed
	}
	e := &ExpressionBinding{
		id:     nextBindingID(),
		reg:    r,
		vars:   make(map[string]*variable),
		locals: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	target, err := Resolve(obj, property, e.targetAccessor)
	if err != nil {
		return nil, err
	}
	if !target.Writable() {
		return nil, endpointError(ErrResolution, target, qobject.ErrReadOnlyProperty)
	}
	e.target = target

	e.eval = newEvaluator(r.evalTimeout)
	if e.tmpl, err = parseTemplate(template, e.eval); err != nil {
		e.eval.close()
		return nil, errorc.With(ErrExpression,
			errorc.Field("template", template),
			errorc.Field(fieldCause, err.Error()),
		)
	}

	r.track(target.object, e)
	r.register(e)

	if build != nil {
		e.building = true
		err := build(e)
		e.building = false
		if err != nil {
			r.Remove(e)
			return nil, err
		}
	}
	if e.tmpl.math && !e.resolvesAll() {
		e.tmpl.demote()
	}
	e.recompute()
	return e, nil
}

// resolvesAll reports whether every name used by the template is a bound
// variable, a local or a builtin.
func (e *ExpressionBinding) resolvesAll() bool {
	for _, name := range e.tmpl.idents {
		_, bound := e.vars[name]
		_, local := e.locals[name]
		if !bound && !local && !e.eval.builtins[name] {
			return false
		}
	}
	return true
}

// Bind binds the template variable name to property of obj. Binding a name
// again replaces the previous source.
//
// Options: Via, NotifyOn, and WithConverter to convert values read from the
// source before they are substituted.
func (e *ExpressionBinding) Bind(name string, obj qobject.QObject, property string, opts ...EndpointOption) error {
	if e.removed {
		return ErrClosed
	}
	if !e.tmpl.references(name) {
		return errorc.With(ErrResolution,
			errorc.Field(fieldVariable, name),
			errorc.Field("template", e.tmpl.source),
		)
	}
	o := endpointOptionsOf(opts)
	ep, err := Resolve(obj, property, o.accessor)
	if err != nil {
		return errorc.With(err, errorc.Field(fieldVariable, name))
	}

	v := &variable{name: name, endpoint: ep, convert: o.convert}
	if err := e.refresh(v); err != nil {
		return errorc.With(err, errorc.Field(fieldVariable, name))
	}
	sub, err := e.reg.attach(e, ep, o.signal, func() { e.variableChanged(v) })
	if err != nil {
		return err
	}
	v.sub = sub

	if old, ok := e.vars[name]; ok {
		e.reg.detachSub(e, old.sub)
	} else {
		e.order = append(e.order, name)
	}
	e.vars[name] = v

	if !e.building {
		e.recompute()
	}
	return nil
}

// Local sets a value available to the template under name without an
// endpoint. Functions of type func(...float64) float64 may be used as
// helpers in expressions.
func (e *ExpressionBinding) Local(name string, value interface{}) {
	if e.removed {
		return
	}
	e.locals[name] = value
	if !e.building {
		e.recompute()
	}
}

// Value returns the last value read from the variable name, or nil if it is
// not bound.
func (e *ExpressionBinding) Value(name string) interface{} {
	if v, ok := e.vars[name]; ok {
		return v.value
	}
	return nil
}

// Variables returns the bound variable names in the order they were first
// bound.
func (e *ExpressionBinding) Variables() []string {
	return append([]string(nil), e.order...)
}

func (e *ExpressionBinding) Template() string {
	return e.tmpl.source
}

func (e *ExpressionBinding) Target() *Endpoint {
	return e.target
}

func (e *ExpressionBinding) refresh(v *variable) error {
	raw, err := v.endpoint.Read()
	if err != nil {
		return err
	}
	value, err := applyConverter(v.convert, raw)
	if err != nil {
		return endpointError(ErrTypeConversion, v.endpoint, err)
	}
	if e.tmpl.math {
		value = toNumber(value)
	}
	v.value = value
	return nil
}

func (e *ExpressionBinding) variableChanged(v *variable) {
	if e.removed {
		return
	}
	if e.updating {
		e.reg.guardTripped(e, "expression")
		return
	}
	if err := e.refresh(v); err != nil {
		e.reg.report(e, v.endpoint, err)
		return
	}
	e.recompute()
}

func (e *ExpressionBinding) recompute() {
	if e.removed || !e.target.Valid() {
		return
	}
	if e.updating {
		e.reg.guardTripped(e, "expression")
		return
	}
	e.updating = true
	defer func() { e.updating = false }()

	result, err := e.render()
	if err != nil {
		e.reg.report(e, e.target, errorc.With(ErrExpression,
			errorc.Field("template", e.tmpl.source),
			errorc.Field(fieldCause, err.Error()),
		))
		return
	}
	if e.convert != nil {
		if result, err = e.convert(result); err != nil {
			e.reg.report(e, e.target, endpointError(ErrTypeConversion, e.target, err))
			return
		}
	}
	e.reg.write(e, e.target, result, nil)
}

func (e *ExpressionBinding) render() (interface{}, error) {
	if e.tmpl.math {
		e.prepareGlobals()
		return e.eval.call(e.tmpl.fn)
	}

	var sb strings.Builder
	prepared := false
	for _, seg := range e.tmpl.segments {
		switch {
		case seg.fn != nil:
			if !prepared {
				e.prepareGlobals()
				prepared = true
			}
			v, err := e.eval.call(seg.fn)
			if err != nil {
				e.reg.logger.Debug("qbinding: placeholder failed", "binding", e.id, "error", err)
				continue
			}
			sb.WriteString(stringify(v))
		case seg.name != "":
			sb.WriteString(formatValue(e.lookup(seg.name), seg.spec))
		default:
			sb.WriteString(seg.literal)
		}
	}
	return sb.String(), nil
}

func (e *ExpressionBinding) lookup(name string) interface{} {
	if v, ok := e.vars[name]; ok {
		return v.value
	}
	return e.locals[name]
}

// prepareGlobals sets every identifier used by the template's expressions.
// Builtins stay untouched unless shadowed by a variable or local.
func (e *ExpressionBinding) prepareGlobals() {
	for _, name := range e.tmpl.idents {
		if v, ok := e.vars[name]; ok {
			e.eval.set(name, v.value)
			continue
		}
		if l, ok := e.locals[name]; ok {
			e.eval.set(name, l)
			continue
		}
		if e.eval.builtins[name] {
			continue
		}
		if e.tmpl.math {
			e.eval.set(name, 0)
		} else {
			e.eval.set(name, nil)
		}
	}
}

// toNumber coerces empty values and numeric strings for math expressions.
func toNumber(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return value
}

func (e *ExpressionBinding) ID() uint64 {
	return e.id
}

// Endpoints returns the variable sources in binding order, then the target.
func (e *ExpressionBinding) Endpoints() []*Endpoint {
	list := make([]*Endpoint, 0, len(e.vars)+1)
	for _, name := range e.order {
		if v, ok := e.vars[name]; ok {
			list = append(list, v.endpoint)
		}
	}
	return append(list, e.target)
}

func (e *ExpressionBinding) busy() bool {
	return e.updating
}

func (e *ExpressionBinding) objectDestroyed(obj qobject.QObject) bool {
	if e.target.object == obj {
		return true
	}
	// Sources that go away keep their last value
	for _, v := range e.vars {
		if v.endpoint.object == obj && v.sub != nil {
			e.reg.detachSub(e, v.sub)
			v.sub = nil
		}
	}
	return false
}

func (e *ExpressionBinding) detach() {
	e.removed = true
	for _, v := range e.vars {
		e.reg.detachSub(e, v.sub)
	}
	e.reg.untrack(e.target.object, e)
	if e.eval != nil {
		e.eval.close()
	}
}
