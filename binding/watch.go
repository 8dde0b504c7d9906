package qbinding

import (
	qobject "github.com/CrimsonAS/qbind/object"
)

// Watcher calls a function with the new value whenever an endpoint
// changes. It shares the endpoint's observer with any bindings, and is
// removed from the registry like one.
type Watcher struct {
	id       uint64
	reg      *Bindings
	endpoint *Endpoint
	sub      *subscription
	fn       func(value interface{})
	running  bool
	removed  bool
}

// Watch calls fn with the value of property of obj each time it changes.
// fn is not called for the current value. Changes caused by fn itself are
// not delivered to it again.
//
// Options: Via and NotifyOn.
func (r *Bindings) Watch(obj qobject.QObject, property string, fn func(value interface{}), opts ...EndpointOption) (*Watcher, error) {
	if r.closed {
		return nil, ErrClosed
	}
	o := endpointOptionsOf(opts)
	ep, err := Resolve(obj, property, o.accessor)
	if err != nil {
		return nil, err
	}
	w := &Watcher{id: nextBindingID(), reg: r, endpoint: ep, fn: fn}
	sub, err := r.attach(w, ep, o.signal, w.changed)
	if err != nil {
		return nil, err
	}
	w.sub = sub
	r.register(w)
	return w, nil
}

func (w *Watcher) changed() {
	if w.removed {
		return
	}
	if w.running {
		w.reg.guardTripped(w, "watch")
		return
	}
	value, err := w.endpoint.Read()
	if err != nil {
		w.reg.report(w, w.endpoint, err)
		return
	}
	w.running = true
	defer func() { w.running = false }()
	w.fn(value)
}

func (w *Watcher) ID() uint64 {
	return w.id
}

func (w *Watcher) Endpoint() *Endpoint {
	return w.endpoint
}

func (w *Watcher) Endpoints() []*Endpoint {
	return []*Endpoint{w.endpoint}
}

func (w *Watcher) busy() bool {
	return w.running
}

func (w *Watcher) objectDestroyed(obj qobject.QObject) bool {
	return w.endpoint.object == obj
}

func (w *Watcher) detach() {
	w.removed = true
	w.reg.detachSub(w, w.sub)
}
