package qbinding

import (
	qobject "github.com/CrimsonAS/qbind/object"
)

// GroupBinding keeps any number of endpoints equal. A change of any member
// is fanned out to every other member, in the order they were added, before
// any other binding is notified.
type GroupBinding struct {
	id       uint64
	reg      *Bindings
	members  []*member
	value    interface{}
	settled  bool
	updating bool
	removed  bool
}

type member struct {
	endpoint       *Endpoint
	sub            *subscription
	toNormalized   Converter
	fromNormalized Converter
}

// BindGroup creates an empty group binding.
func (r *Bindings) BindGroup(opts ...GroupOption) (*GroupBinding, error) {
	if r.closed {
		return nil, ErrClosed
	}
	g := &GroupBinding{id: nextBindingID(), reg: r}
	for _, opt := range opts {
		opt(g)
	}
	r.register(g)
	return g, nil
}

// Add adds property of obj to the group. The first member establishes the
// group's value without being written; later members are set to the
// group's value. Adding a member that is already in the group does nothing.
//
// Options: Via, NotifyOn, and ToNormalized/FromNormalized to convert
// between the member's values and the group's value.
func (g *GroupBinding) Add(obj qobject.QObject, property string, opts ...EndpointOption) error {
	if g.removed {
		return ErrClosed
	}
	o := endpointOptionsOf(opts)
	ep, err := Resolve(obj, property, o.accessor)
	if err != nil {
		return err
	}
	key := ep.Key()
	for _, m := range g.members {
		if m.endpoint.Key() == key {
			return nil
		}
	}

	m := &member{endpoint: ep, toNormalized: o.toNormalized, fromNormalized: o.fromNormalized}
	wasSettled := g.settled
	var initial interface{}
	if !wasSettled {
		v, err := ep.Read()
		if err != nil {
			return err
		}
		if initial, err = applyConverter(m.toNormalized, v); err != nil {
			return endpointError(ErrTypeConversion, ep, err)
		}
	}

	sub, err := g.reg.attach(g, ep, o.signal, func() { g.changed(m) })
	if err != nil {
		return err
	}
	m.sub = sub
	g.members = append(g.members, m)

	if !wasSettled {
		g.value = initial
		g.settled = true
		return nil
	}
	g.updating = true
	defer func() { g.updating = false }()
	g.reg.write(g, ep, g.value, m.fromNormalized)
	return nil
}

// Set pushes value to every member.
func (g *GroupBinding) Set(value interface{}) {
	if g.removed {
		return
	}
	if g.updating {
		g.reg.guardTripped(g, "group")
		return
	}
	g.value = value
	g.settled = true
	g.fanOut(nil)
}

// Value returns the group's settled value.
func (g *GroupBinding) Value() interface{} {
	return g.value
}

func (g *GroupBinding) changed(source *member) {
	if g.removed {
		return
	}
	if g.updating {
		// Notification caused by this group's own fan-out
		g.reg.guardTripped(g, "group")
		return
	}
	v, err := source.endpoint.Read()
	if err != nil {
		g.reg.report(g, source.endpoint, err)
		return
	}
	nv, err := applyConverter(source.toNormalized, v)
	if err != nil {
		g.reg.report(g, source.endpoint, endpointError(ErrTypeConversion, source.endpoint, err))
		return
	}
	g.value = nv
	g.settled = true
	g.fanOut(source)
}

func (g *GroupBinding) fanOut(skip *member) {
	g.updating = true
	g.reg.beginFanOut()
	defer func() {
		g.updating = false
		g.reg.endFanOut()
	}()
	for _, m := range g.members {
		if m == skip {
			continue
		}
		g.reg.write(g, m.endpoint, g.value, m.fromNormalized)
	}
}

func (g *GroupBinding) ID() uint64 {
	return g.id
}

// Members returns the member endpoints in the order they were added.
func (g *GroupBinding) Members() []*Endpoint {
	list := make([]*Endpoint, len(g.members))
	for i, m := range g.members {
		list[i] = m.endpoint
	}
	return list
}

func (g *GroupBinding) Endpoints() []*Endpoint {
	return g.Members()
}

func (g *GroupBinding) busy() bool {
	return g.updating
}

func (g *GroupBinding) objectDestroyed(obj qobject.QObject) bool {
	var kept []*member
	for _, m := range g.members {
		if m.endpoint.object == obj {
			g.reg.detachSub(g, m.sub)
			continue
		}
		kept = append(kept, m)
	}
	g.members = kept
	return len(g.members) == 0
}

func (g *GroupBinding) detach() {
	g.removed = true
	for _, m := range g.members {
		g.reg.detachSub(g, m.sub)
	}
	g.members = nil
}
