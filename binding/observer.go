package qbinding

import (
	qobject "github.com/CrimsonAS/qbind/object"
)

// Strategy is the change detection mechanism used by an Observer.
type Strategy int

const (
	// NativeNotify uses the property's own change signal.
	NativeNotify Strategy = iota + 1
	// CustomSignal uses a signal supplied with NotifyOn.
	CustomSignal
	// EventInterception installs an event filter and reacts to the class of
	// events that accompanies changes of the property. It may notify for
	// events that did not change the value.
	EventInterception
)

func (s Strategy) String() string {
	switch s {
	case NativeNotify:
		return "native"
	case CustomSignal:
		return "signal"
	case EventInterception:
		return "event"
	}
	return "unknown"
}

// ChangeSource turns one object's change mechanism into a plain
// notification.
type ChangeSource interface {
	Strategy() Strategy
	Start(notify func()) error
	Stop()
}

// EventInterest is a class of events that may accompany a property change.
type EventInterest uint

const (
	InterestGeometry EventInterest = 1 << iota
	InterestStyle
	InterestState
	InterestDynamicProperty
)

var propertyInterest = map[string]EventInterest{
	"pos":           InterestGeometry,
	"geometry":      InterestGeometry,
	"size":          InterestGeometry,
	"rect":          InterestGeometry,
	"minimumSize":   InterestGeometry,
	"maximumSize":   InterestGeometry,
	"sizePolicy":    InterestGeometry,
	"sizeIncrement": InterestGeometry,
	"baseSize":      InterestGeometry,
	"palette":       InterestStyle,
	"font":          InterestStyle,
	"enabled":       InterestState,
	"visible":       InterestState,
	"focus":         InterestState,
}

var eventInterest = map[qobject.EventType]EventInterest{
	qobject.DynamicPropertyChange: InterestDynamicProperty,
	qobject.Move:                  InterestGeometry,
	qobject.Resize:                InterestGeometry,
	qobject.LayoutRequest:         InterestGeometry,
	qobject.Show:                  InterestState,
	qobject.Hide:                  InterestState,
	qobject.EnabledChange:         InterestState,
	qobject.FontChange:            InterestStyle,
	qobject.StyleChange:           InterestStyle,
	qobject.PaletteChange:         InterestStyle,
}

// InterestFor returns the events that are intercepted to observe property.
// Properties without a known event class are treated as dynamic properties.
func InterestFor(property string) EventInterest {
	if interest, ok := propertyInterest[property]; ok {
		return interest
	}
	return InterestDynamicProperty
}

type signalSource struct {
	object   qobject.QObject
	signal   string
	strategy Strategy
	conn     qobject.Connection
}

func (s *signalSource) Strategy() Strategy {
	return s.strategy
}

func (s *signalSource) Start(notify func()) error {
	conn, err := s.object.Connect(s.signal, func(args ...interface{}) {
		notify()
	})
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *signalSource) Stop() {
	s.object.Disconnect(s.conn)
}

type eventSource struct {
	object   qobject.QObject
	property string
	interest EventInterest
	notify   func()
}

func (s *eventSource) Strategy() Strategy {
	return EventInterception
}

func (s *eventSource) Start(notify func()) error {
	s.notify = notify
	s.object.InstallEventFilter(s)
	return nil
}

func (s *eventSource) Stop() {
	s.object.RemoveEventFilter(s)
}

func (s *eventSource) EventFilter(watched qobject.QObject, ev *qobject.Event) bool {
	if s.matches(ev) {
		s.notify()
	}
	// Never consume; other filters and the object still see the event
	return false
}

func (s *eventSource) matches(ev *qobject.Event) bool {
	switch ev.Type {
	case qobject.DynamicPropertyChange:
		return ev.PropertyName == s.property
	case qobject.UpdateRequest:
		return ev.PropertyName == "" || ev.PropertyName == s.property
	}
	return eventInterest[ev.Type]&s.interest != 0
}

// selectChangeSource picks the best available detection strategy for
// property: its native change signal, then the custom signal if one was
// given, then event interception.
func selectChangeSource(obj qobject.QObject, property, signal string) ChangeSource {
	ti := obj.TypeInfo()
	if notify, ok := ti.NotifySignal(property); ok {
		return &signalSource{object: obj, signal: notify, strategy: NativeNotify}
	}
	if signal != "" {
		return &signalSource{object: obj, signal: signal, strategy: CustomSignal}
	}
	return &eventSource{object: obj, property: property, interest: InterestFor(property)}
}

// Observer detects changes of one endpoint and notifies every binding
// subscribed to it. Observers are shared by all bindings of a registry on
// the same endpoint, and disposed with their last subscription.
type Observer struct {
	key      EndpointKey
	endpoint *Endpoint
	source   ChangeSource
	extra    []ChangeSource
	notify   func()
	subs     []*subscription
	disposed bool
}

type subscription struct {
	observer *Observer
	binding  Binding
	fn       func()
	active   bool
}

// useSignal makes o notify on signal too, unless the property has a native
// change signal. A custom signal replaces event interception as the
// observer's strategy; the event filter stays installed.
func (o *Observer) useSignal(signal string) error {
	if signal == "" || o.source.Strategy() == NativeNotify {
		return nil
	}
	for _, src := range append([]ChangeSource{o.source}, o.extra...) {
		if s, ok := src.(*signalSource); ok && s.signal == signal {
			return nil
		}
	}
	src := &signalSource{object: o.endpoint.object, signal: signal, strategy: CustomSignal}
	if err := src.Start(o.notify); err != nil {
		return err
	}
	if o.source.Strategy() == EventInterception {
		o.extra = append(o.extra, o.source)
		o.source = src
	} else {
		o.extra = append(o.extra, src)
	}
	return nil
}

func (o *Observer) stop() {
	o.source.Stop()
	for _, src := range o.extra {
		src.Stop()
	}
	o.extra = nil
}

func (o *Observer) Endpoint() *Endpoint {
	return o.endpoint
}

func (o *Observer) Strategy() Strategy {
	return o.source.Strategy()
}

// Refs returns the number of subscriptions sharing the observer.
func (o *Observer) Refs() int {
	return len(o.subs)
}

func (o *Observer) add(s *subscription) {
	o.subs = append(o.subs, s)
}

func (o *Observer) remove(s *subscription) {
	for i, existing := range o.subs {
		if existing == s {
			// Copy so that a delivery in progress keeps its snapshot
			o.subs = append(append([]*subscription(nil), o.subs[:i]...), o.subs[i+1:]...)
			return
		}
	}
}
