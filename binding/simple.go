package qbinding

import (
	qobject "github.com/CrimsonAS/qbind/object"
)

// SimpleBinding propagates one source endpoint to any number of targets,
// each with an optional converter.
type SimpleBinding struct {
	id       uint64
	reg      *Bindings
	source   *Endpoint
	sub      *subscription
	targets  []*simpleTarget
	updating bool
	removed  bool
}

type simpleTarget struct {
	endpoint *Endpoint
	convert  Converter
}

// Bind creates a one-way binding from property of obj. The binding has no
// targets until To is called.
//
// Options: Via overrides the accessor, NotifyOn supplies a change signal.
func (r *Bindings) Bind(obj qobject.QObject, property string, opts ...EndpointOption) (*SimpleBinding, error) {
	if r.closed {
		return nil, ErrClosed
	}
	o := endpointOptionsOf(opts)
	ep, err := Resolve(obj, property, o.accessor)
	if err != nil {
		return nil, err
	}

	b := &SimpleBinding{id: nextBindingID(), reg: r, source: ep}
	sub, err := r.attach(b, ep, o.signal, b.update)
	if err != nil {
		return nil, err
	}
	b.sub = sub
	r.register(b)
	return b, nil
}

// To adds a target and immediately writes the current source value to it.
// Calling To again fans the source out to more targets.
//
// Options: Via overrides the accessor, WithConverter converts values for
// this target.
func (b *SimpleBinding) To(obj qobject.QObject, property string, opts ...EndpointOption) error {
	if b.removed {
		return ErrClosed
	}
	o := endpointOptionsOf(opts)
	ep, err := Resolve(obj, property, o.accessor)
	if err != nil {
		return err
	}
	if !ep.Writable() {
		return endpointError(ErrResolution, ep, qobject.ErrReadOnlyProperty)
	}
	value, err := b.source.Read()
	if err != nil {
		return err
	}

	t := &simpleTarget{endpoint: ep, convert: o.convert}
	b.targets = append(b.targets, t)
	b.reg.track(ep.object, b)

	b.updating = true
	defer func() { b.updating = false }()
	b.reg.write(b, ep, value, t.convert)
	return nil
}

func (b *SimpleBinding) update() {
	if b.removed {
		return
	}
	if b.updating {
		b.reg.guardTripped(b, "simple")
		return
	}
	value, err := b.source.Read()
	if err != nil {
		b.reg.report(b, b.source, err)
		return
	}

	b.updating = true
	defer func() { b.updating = false }()
	// Each target is independent; a failure is reported and skipped
	for _, t := range b.targets {
		b.reg.write(b, t.endpoint, value, t.convert)
	}
}

func (b *SimpleBinding) ID() uint64 {
	return b.id
}

func (b *SimpleBinding) Source() *Endpoint {
	return b.source
}

func (b *SimpleBinding) Targets() []*Endpoint {
	list := make([]*Endpoint, len(b.targets))
	for i, t := range b.targets {
		list[i] = t.endpoint
	}
	return list
}

func (b *SimpleBinding) Endpoints() []*Endpoint {
	return append([]*Endpoint{b.source}, b.Targets()...)
}

func (b *SimpleBinding) busy() bool {
	return b.updating
}

func (b *SimpleBinding) objectDestroyed(obj qobject.QObject) bool {
	if b.source.object == obj {
		return true
	}
	var kept []*simpleTarget
	for _, t := range b.targets {
		if t.endpoint.object == obj {
			b.reg.untrack(obj, b)
			continue
		}
		kept = append(kept, t)
	}
	b.targets = kept
	return len(b.targets) == 0
}

func (b *SimpleBinding) detach() {
	b.removed = true
	b.reg.detachSub(b, b.sub)
	for _, t := range b.targets {
		b.reg.untrack(t.endpoint.object, b)
	}
	b.targets = nil
}
