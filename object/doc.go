// Package qobject is a small in-process object model: Go structs that embed
// QObject gain reflected properties, signals, dynamic properties, event
// delivery and an explicit destruction lifecycle.
//
// # Objects
//
// When QObject is embedded in a struct, that type is "a QObject". Exported
// fields become properties, Foo/SetFoo method pairs become method-backed
// properties, exported methods are callable with Call, and func fields are
// signals.
//
//	type Person struct {
//	    qobject.QObject
//	    Name string
//	    Age  int `qobject:"nonotify"`
//
//	    Greeted func(string) `qobject:"greeting"`
//	}
//
// Every property has a change signal named after it, nameChanged in the
// example above, which is emitted by SetProperty and by Changed. Properties
// tagged nonotify have none; changes to them are only observable through
// events. A struct may declare the change signal itself as a func field
// with at most one parameter, which then receives the new value.
//
// Objects are initialized by Init, or lazily by packages that accept them,
// and are identified by a UUID. Signal fields are assigned during
// initialization and may be called like any function:
//
//	p := &Person{Name: "Ada"}
//	qobject.Init(p)
//	p.Connect("greeted", func(args ...interface{}) { fmt.Println(args[0]) })
//	p.Greeted("hello")
//
// Setting a property that the type does not declare creates a dynamic
// property. Dynamic properties have no change signal; a
// DynamicPropertyChange event is sent to the object instead.
//
// # Events
//
// SendEvent delivers an Event to the event filters installed on an object,
// newest first, and then to the object itself if it implements
// EventHandler. Filters see every event an object receives, which makes
// them the last resort for observing state that has no signal.
//
// # Destruction
//
// Objects are garbage collected normally, but they are only dead to other
// objects once Destroy is called. Destroy emits the destroyed signal and
// then disconnects everything; reads and writes of a destroyed object fail
// with ErrDestroyed.
//
// # Loop
//
// Objects are not safe for concurrent use. Loop provides a queue of events
// and functions that other goroutines can feed, executed only when the
// owning goroutine calls Process. RunLockable runs the loop in a goroutine
// and returns a lock for mutually exclusive access to objects.
//
// # Models
//
// For large or dynamic lists of data, Model provides a list model API. An
// object which embeds Model, implements ModelDataSource, and calls Model's
// methods for changes to data can be shown by views and mapped onto widgets.
package qobject
