package qobject

// EventType identifies the kind of an Event.
type EventType int

const (
	// DynamicPropertyChange is sent when a dynamic property is added,
	// changed or removed. Event.PropertyName names it.
	DynamicPropertyChange EventType = iota + 1
	Move
	Resize
	LayoutRequest
	Show
	Hide
	EnabledChange
	FontChange
	StyleChange
	PaletteChange
	// UpdateRequest is a generic "something about this object changed"
	// event, for state that has no more specific event.
	UpdateRequest
)

var eventTypeNames = map[EventType]string{
	DynamicPropertyChange: "DynamicPropertyChange",
	Move:                  "Move",
	Resize:                "Resize",
	LayoutRequest:         "LayoutRequest",
	Show:                  "Show",
	Hide:                  "Hide",
	EnabledChange:         "EnabledChange",
	FontChange:            "FontChange",
	StyleChange:           "StyleChange",
	PaletteChange:         "PaletteChange",
	UpdateRequest:         "UpdateRequest",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "EventType(unknown)"
}

// Event is delivered to objects with SendEvent, or queued with Loop.Post.
type Event struct {
	Type EventType
	// PropertyName is set for DynamicPropertyChange, and optionally for
	// UpdateRequest to name the property that was updated.
	PropertyName string
}

// EventFilter intercepts events sent to the objects it is installed on.
// Returning true consumes the event. Filters are compared by identity, so
// implementations should be pointers.
type EventFilter interface {
	EventFilter(watched QObject, ev *Event) bool
}

// EventHandler is implemented by object types that handle their own
// events after the filters have run.
type EventHandler interface {
	Event(ev *Event) bool
}
