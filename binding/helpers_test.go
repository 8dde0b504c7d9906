package qbinding

import (
	"testing"

	"github.com/stretchr/testify/require"

	qobject "github.com/CrimsonAS/qbind/object"
)

type Slider struct {
	qobject.QObject
	Value float64
}

type Label struct {
	qobject.QObject
	Text string
}

type Person struct {
	qobject.QObject
	FirstName string
	LastName  string
	Age       int
}

// Panel has no change signals; changes are announced by events only.
type Panel struct {
	qobject.QObject
	Size    int    `qobject:"nonotify"`
	Enabled bool   `qobject:"nonotify"`
	Title   string `qobject:"nonotify"`
}

func (p *Panel) resize(size int) {
	p.Size = size
	p.SendEvent(&qobject.Event{Type: qobject.Resize})
}

// Counter announces changes of Count with a signal of its own.
type Counter struct {
	qobject.QObject
	Count  int `qobject:"nonotify"`
	Bumped func()
}

func (c *Counter) bump() {
	c.Count++
	c.Bumped()
}

type Thermostat struct {
	qobject.QObject
	Updated func()

	celsius float64
}

func (t *Thermostat) Reading() float64 {
	return t.celsius
}

func (t *Thermostat) Calibrate(v float64) {
	t.celsius = v
	t.Updated()
}

type Settings struct {
	qobject.QObject
	Document string
}

type errorRecorder struct {
	errs []error
}

func (r *errorRecorder) handle(err error) {
	r.errs = append(r.errs, err)
}

func newRegistry(t *testing.T, opts ...Option) (*Bindings, *Label) {
	t.Helper()
	anchor := &Label{}
	reg, err := New(anchor, opts...)
	require.NoError(t, err)
	return reg, anchor
}

func initAll(t *testing.T, objs ...qobject.QObject) {
	t.Helper()
	for _, obj := range objs {
		require.NoError(t, qobject.Init(obj))
	}
}
