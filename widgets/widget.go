// Package qwidgets provides headless widget models for binding: the state
// and behaviour of common controls, without any painting.
//
// Geometry and state of a Widget (pos, size, enabled, visible, font, focus)
// have no change signals. Their setters send the events a windowing system
// would, so bindings observe them by event interception. Content
// properties, such as a slider's value, have change signals.
package qwidgets

import (
	"cogentcore.org/core/math32"

	qobject "github.com/CrimsonAS/qbind/object"
)

// Widget is embedded by every widget.
type Widget struct {
	qobject.QObject

	Pos     math32.Vector2 `qobject:"nonotify"`
	Size    math32.Vector2 `qobject:"nonotify"`
	Enabled bool           `qobject:"nonotify"`
	Visible bool           `qobject:"nonotify"`
	Font    string         `qobject:"nonotify"`
	Focus   bool           `qobject:"nonotify"`
}

func newWidget() Widget {
	return Widget{Enabled: true, Visible: true}
}

func (w *Widget) send(t qobject.EventType) {
	// Uninitialized widgets have nobody to tell
	if w.QObject != nil {
		w.SendEvent(&qobject.Event{Type: t})
	}
}

func (w *Widget) changed(property string) {
	if w.QObject != nil {
		w.Changed(property)
	}
}

// Move sets the position and sends a Move event.
func (w *Widget) Move(x, y float32) {
	pos := math32.Vec2(x, y)
	if w.Pos == pos {
		return
	}
	w.Pos = pos
	w.send(qobject.Move)
}

// Resize sets the size and sends a Resize event.
func (w *Widget) Resize(width, height float32) {
	size := math32.Vec2(width, height)
	if w.Size == size {
		return
	}
	w.Size = size
	w.send(qobject.Resize)
}

// Geometry returns the rectangle covered by the widget.
func (w *Widget) Geometry() math32.Box2 {
	return math32.Box2{Min: w.Pos, Max: w.Pos.Add(w.Size)}
}

func (w *Widget) SetEnabled(enabled bool) {
	if w.Enabled == enabled {
		return
	}
	w.Enabled = enabled
	w.send(qobject.EnabledChange)
}

// SetVisible shows or hides the widget, sending Show or Hide.
func (w *Widget) SetVisible(visible bool) {
	if w.Visible == visible {
		return
	}
	w.Visible = visible
	if visible {
		w.send(qobject.Show)
	} else {
		w.send(qobject.Hide)
	}
}

func (w *Widget) SetFont(font string) {
	if w.Font == font {
		return
	}
	w.Font = font
	w.send(qobject.FontChange)
}

// SetFocus moves keyboard focus to or from the widget. Focus changes are
// announced as a generic UpdateRequest for "focus".
func (w *Widget) SetFocus(focus bool) {
	if w.Focus == focus {
		return
	}
	w.Focus = focus
	if w.QObject != nil {
		w.SendEvent(&qobject.Event{Type: qobject.UpdateRequest, PropertyName: "focus"})
	}
}
