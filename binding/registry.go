package qbinding

import (
	"cmp"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/errorc"

	qobject "github.com/CrimsonAS/qbind/object"
)

// Binding is a live synchronization rule owned by a Bindings registry.
type Binding interface {
	ID() uint64
	// Endpoints returns every endpoint taking part in the binding, sources
	// first.
	Endpoints() []*Endpoint

	// busy returns true while the binding is propagating.
	busy() bool
	// objectDestroyed drops the endpoints of obj and returns true if the
	// binding cannot continue without them.
	objectDestroyed(obj qobject.QObject) bool
	// detach releases every subscription and lifetime of the binding.
	detach()
}

var bindingCounter atomic.Uint64

func nextBindingID() uint64 {
	return bindingCounter.Add(1)
}

// Stats are counters for diagnostics and tests.
type Stats struct {
	Bindings  int
	Observers int

	Notifications uint64
	Writes        uint64
	SkippedEqual  uint64
	GuardTrips    uint64
	Errors        uint64
}

// lifetime tracks the bindings that depend on one object, and the
// connection to its destroyed signal.
type lifetime struct {
	object   qobject.QObject
	conn     qobject.Connection
	bindings map[Binding]int
}

// Bindings owns every binding and observer scoped to an anchor object.
// Notifications are routed from the observer of the changed endpoint
// directly to its subscribed bindings.
//
// Bindings is not safe for concurrent use; like the objects it binds, it
// must only be used from the goroutine that owns them.
type Bindings struct {
	anchor      qobject.QObject
	anchorConn  qobject.Connection
	logger      *slog.Logger
	onError     func(error)
	maxDepth    int
	evalTimeout time.Duration

	bindings  map[uint64]Binding
	observers map[EndpointKey]*Observer
	lifetimes map[string]*lifetime
	closed    bool

	depth     int
	fanOuts   int
	flushing  bool
	held      []*subscription
	heldIndex map[*subscription]struct{}

	stats Stats
}

// New creates a registry scoped to the lifetime of anchor: when anchor is
// destroyed, every binding and observer is disposed. A nil anchor creates an
// unscoped registry that lives until Close.
func New(anchor qobject.QObject, opts ...Option) (*Bindings, error) {
	r := &Bindings{
		logger:      slog.Default(),
		maxDepth:    DefaultMaxDepth,
		evalTimeout: DefaultEvalTimeout,
		bindings:    make(map[uint64]Binding),
		observers:   make(map[EndpointKey]*Observer),
		lifetimes:   make(map[string]*lifetime),
		heldIndex:   make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if !isNil(anchor) {
		if err := qobject.Init(anchor); err != nil {
			return nil, err
		}
		conn, err := anchor.Connect(qobject.DestroyedSignal, func(args ...interface{}) {
			r.logger.Debug("qbinding: anchor destroyed", "anchor", anchor.Identifier())
			r.Close()
		})
		if err != nil {
			return nil, err
		}
		r.anchor = anchor
		r.anchorConn = conn
	}
	return r, nil
}

// Closed returns true once the registry has been closed or its anchor
// destroyed.
func (r *Bindings) Closed() bool {
	return r.closed
}

// Close disposes every binding and observer, regardless of whether their
// objects are still alive. It is called automatically when the anchor is
// destroyed.
func (r *Bindings) Close() {
	if r.closed {
		return
	}
	for _, b := range r.Bindings() {
		r.Remove(b)
	}
	for _, lt := range r.lifetimes {
		lt.object.Disconnect(lt.conn)
	}
	if r.anchor != nil {
		r.anchor.Disconnect(r.anchorConn)
	}
	r.lifetimes = make(map[string]*lifetime)
	r.observers = make(map[EndpointKey]*Observer)
	r.held = nil
	r.heldIndex = make(map[*subscription]struct{})
	r.closed = true
}

// Bindings returns the live bindings in order of creation.
func (r *Bindings) Bindings() []Binding {
	list := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b Binding) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return list
}

// Remove detaches and disposes a binding, releasing its observers. It
// returns false if the binding was not live in this registry.
func (r *Bindings) Remove(b Binding) bool {
	if b == nil {
		return false
	}
	if _, ok := r.bindings[b.ID()]; !ok {
		return false
	}
	delete(r.bindings, b.ID())
	b.detach()
	r.logger.Debug("qbinding: binding removed", "binding", b.ID())
	return true
}

// Observer returns the observer watching property of obj through generic
// property access, if any binding uses it.
func (r *Bindings) Observer(obj qobject.QObject, property string) (*Observer, bool) {
	if isNil(obj) || !qobject.IsInitialized(obj) {
		return nil, false
	}
	o, ok := r.observers[EndpointKey{Object: obj.Identifier(), Property: property}]
	return o, ok
}

// Stats returns a snapshot of the registry's counters.
func (r *Bindings) Stats() Stats {
	s := r.stats
	s.Bindings = len(r.bindings)
	s.Observers = len(r.observers)
	return s
}

func (r *Bindings) register(b Binding) {
	r.bindings[b.ID()] = b
	r.logger.Debug("qbinding: binding created", "binding", b.ID())
}

// attach subscribes fn to changes of ep on behalf of b, creating or sharing
// the endpoint's observer.
func (r *Bindings) attach(b Binding, ep *Endpoint, signal string, fn func()) (*subscription, error) {
	o, err := r.observe(ep, signal)
	if err != nil {
		return nil, err
	}
	s := &subscription{observer: o, binding: b, fn: fn, active: true}
	o.add(s)
	r.track(ep.object, b)
	return s, nil
}

// detachSub cancels a subscription, disposing its observer if it was the
// last.
func (r *Bindings) detachSub(b Binding, s *subscription) {
	if s == nil || !s.active {
		return
	}
	s.active = false
	o := s.observer
	o.remove(s)
	r.untrack(o.endpoint.object, b)
	if len(o.subs) == 0 && !o.disposed {
		o.disposed = true
		o.stop()
		if r.observers[o.key] == o {
			delete(r.observers, o.key)
		}
	}
}

func (r *Bindings) observe(ep *Endpoint, signal string) (*Observer, error) {
	if signal != "" && !ep.object.TypeInfo().HasSignal(signal) {
		return nil, errorc.With(ErrResolution,
			errorc.Field(fieldObjectType, ep.typeName()),
			errorc.Field(fieldProperty, ep.property),
			errorc.Field("signal", signal),
		)
	}
	key := ep.Key()
	if o, ok := r.observers[key]; ok {
		// A shared observer must also honour a signal named by a later binding
		if err := o.useSignal(signal); err != nil {
			return nil, endpointError(ErrResolution, ep, err)
		}
		return o, nil
	}

	o := &Observer{
		key:      key,
		endpoint: ep,
		source:   selectChangeSource(ep.object, ep.watchedProperty(), signal),
	}
	o.notify = func() { r.notify(o) }
	if err := o.source.Start(o.notify); err != nil {
		return nil, endpointError(ErrResolution, ep, err)
	}
	r.observers[key] = o
	r.logger.Debug("qbinding: observing", "endpoint", ep.String(), "strategy", o.source.Strategy().String())
	return o, nil
}

func (r *Bindings) track(obj qobject.QObject, b Binding) {
	id := obj.Identifier()
	lt, ok := r.lifetimes[id]
	if !ok {
		lt = &lifetime{object: obj, bindings: make(map[Binding]int)}
		conn, err := obj.Connect(qobject.DestroyedSignal, func(args ...interface{}) {
			r.objectDestroyed(id)
		})
		if err != nil {
			// Already destroyed; nothing will announce it again
			r.logger.Debug("qbinding: cannot track object lifetime", "object", id, "error", err)
		}
		lt.conn = conn
		r.lifetimes[id] = lt
	}
	lt.bindings[b]++
}

func (r *Bindings) untrack(obj qobject.QObject, b Binding) {
	id := obj.Identifier()
	lt, ok := r.lifetimes[id]
	if !ok {
		return
	}
	if lt.bindings[b] <= 1 {
		delete(lt.bindings, b)
	} else {
		lt.bindings[b]--
	}
	if len(lt.bindings) == 0 {
		lt.object.Disconnect(lt.conn)
		delete(r.lifetimes, id)
	}
}

// objectDestroyed prunes every binding depending on a destroyed object.
// Errors from destroyed endpoints are the normal teardown path and are not
// reported.
func (r *Bindings) objectDestroyed(id string) {
	lt, ok := r.lifetimes[id]
	if !ok {
		return
	}
	affected := make([]Binding, 0, len(lt.bindings))
	for b := range lt.bindings {
		affected = append(affected, b)
	}
	slices.SortFunc(affected, func(a, b Binding) int {
		return cmp.Compare(a.ID(), b.ID())
	})

	for _, b := range affected {
		if _, live := r.bindings[b.ID()]; !live {
			continue
		}
		if b.objectDestroyed(lt.object) {
			r.Remove(b)
		}
	}

	if lt, ok := r.lifetimes[id]; ok {
		lt.object.Disconnect(lt.conn)
		delete(r.lifetimes, id)
	}
	r.logger.Debug("qbinding: object destroyed", "object", id, "bindings", len(affected))
}

// notify delivers a change of o's endpoint to its subscribers. While a group
// is fanning out, deliveries to other bindings are held and flushed when
// the fan-out completes, so that nothing observes a partially settled
// group.
func (r *Bindings) notify(o *Observer) {
	if r.closed || o.disposed {
		return
	}
	r.stats.Notifications++
	for _, s := range o.subs {
		if r.fanOuts > 0 && !s.binding.busy() {
			r.hold(s)
			continue
		}
		r.deliver(s)
	}
}

func (r *Bindings) deliver(s *subscription) {
	if !s.active {
		return
	}
	if r.depth >= r.maxDepth {
		r.guardTripped(s.binding, "max_depth")
		return
	}
	r.depth++
	defer func() { r.depth-- }()
	s.fn()
}

func (r *Bindings) hold(s *subscription) {
	if _, ok := r.heldIndex[s]; ok {
		return
	}
	r.heldIndex[s] = struct{}{}
	r.held = append(r.held, s)
}

func (r *Bindings) beginFanOut() {
	r.fanOuts++
}

func (r *Bindings) endFanOut() {
	r.fanOuts--
	if r.fanOuts > 0 || r.flushing {
		return
	}
	r.flushing = true
	defer func() { r.flushing = false }()
	for len(r.held) > 0 && !r.closed {
		s := r.held[0]
		r.held = r.held[1:]
		delete(r.heldIndex, s)
		r.deliver(s)
	}
}

// write converts value for ep and writes it, unless ep already holds an
// equal value. Failures are reported and isolated to this one endpoint.
func (r *Bindings) write(b Binding, ep *Endpoint, value interface{}, convert Converter) {
	if !ep.Valid() {
		return
	}
	v, err := applyConverter(convert, value)
	if err != nil {
		r.report(b, ep, endpointError(ErrTypeConversion, ep, err))
		return
	}
	if ep.holds(v) {
		r.stats.SkippedEqual++
		return
	}
	if err := ep.Write(v); err != nil {
		r.report(b, ep, err)
		return
	}
	r.stats.Writes++
}

func (r *Bindings) report(b Binding, ep *Endpoint, err error) {
	if ep != nil && !ep.Valid() {
		r.logger.Debug("qbinding: skipped destroyed endpoint", "binding", b.ID(), "endpoint", ep.String())
		return
	}
	r.stats.Errors++
	if ep != nil {
		r.logger.Warn("qbinding: propagation failed", "binding", b.ID(), "endpoint", ep.String(), "error", err)
	} else {
		r.logger.Warn("qbinding: propagation failed", "binding", b.ID(), "error", err)
	}
	if r.onError != nil {
		r.onError(err)
	}
}

func (r *Bindings) guardTripped(b Binding, reason string) {
	r.stats.GuardTrips++
	r.logger.Debug("qbinding: re-entrant propagation suppressed", "binding", b.ID(), "reason", reason)
	if r.onError != nil {
		r.onError(errorc.With(ErrCycleGuardTripped, errorc.Field("reason", reason)))
	}
}
