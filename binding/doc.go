// Package qbinding keeps properties of qobject objects synchronized.
//
// A Bindings registry owns every binding created through it and is scoped to
// the lifetime of an anchor object. Three kinds of binding are provided:
//
//	reg, _ := qbinding.New(window)
//
//	// One source to any number of targets
//	b, _ := reg.Bind(slider, "value")
//	b.To(label, "text", qbinding.WithConverter(qbinding.Stringify))
//
//	// Members kept equal to each other
//	g, _ := reg.BindGroup()
//	g.Add(slider, "value")
//	g.Add(spinBox, "value")
//
//	// A template recomputed from named variables
//	reg.BindExpression(label, "text", "{first} {last}", func(e *qbinding.ExpressionBinding) error {
//	    if err := e.Bind("first", person, "firstName"); err != nil {
//	        return err
//	    }
//	    return e.Bind("last", person, "lastName")
//	})
//
// # Change detection
//
// Each bound endpoint is watched by one Observer, shared by all bindings in
// the registry. An observer uses the property's change signal if it has
// one, or a signal named with NotifyOn, and otherwise installs an event
// filter and treats events of the kind that accompanies changes of the
// property as a possible change. Writes of a value equal to the current one
// are skipped, so spurious notifications do not propagate.
//
// # Propagation
//
// Notifications are delivered synchronously. Every binding carries a
// re-entrancy guard: a notification caused by the binding's own write is
// suppressed, which keeps two-way and cyclic bindings from looping. While a
// group binding fans out a change, notifications for other bindings are
// held until every member has been written.
//
// Failures to read, convert or write are isolated to the endpoint
// concerned. They are logged, counted in Stats and passed to the handler
// set by WithErrorHandler; other targets are still updated.
//
// # Lifetime
//
// Destroying an object removes the bindings that cannot continue without
// it. Destroying the anchor, or calling Close, removes everything.
package qbinding
