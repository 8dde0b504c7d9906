package qobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type BasicStruct struct {
	StringData string
}

type BasicQObject struct {
	QObject

	StringData string
	StructData BasicStruct
	Count      int
	Child      *BasicQObject

	initWasCalled bool
}

func (o *BasicQObject) InitObject() {
	o.initWasCalled = true
}

func TestQObjectInit(t *testing.T) {
	q := &BasicQObject{}

	require.NoError(t, Init(q), "QObject initialization failed")
	assert.NotEmpty(t, q.Identifier(), "Embedded QObject still blank after initialization")
	assert.True(t, q.initWasCalled, "QObjectHasInit initialization function not called")
	assert.True(t, IsInitialized(q))

	id := q.Identifier()
	require.NoError(t, Init(q))
	assert.Equal(t, id, q.Identifier(), "second Init replaced the identifier")

	other := &BasicQObject{}
	require.NoError(t, Init(other))
	assert.NotEqual(t, id, other.Identifier(), "identifiers are not unique")
}

func TestInitWithID(t *testing.T) {
	q := &BasicQObject{}
	require.NoError(t, InitWithID(q, "basic"))
	assert.Equal(t, "basic", q.Identifier())
}

func TestInitNotQObject(t *testing.T) {
	assert.ErrorIs(t, Init(&BasicStruct{}), ErrNotQObject)
	assert.ErrorIs(t, Init(BasicQObject{}), ErrNotQObject)
	assert.ErrorIs(t, Init((*BasicQObject)(nil)), ErrNotQObject)
	assert.False(t, IsInitialized(&BasicQObject{}))
}

func TestMarshal(t *testing.T) {
	q := &BasicQObject{
		StringData: "hello world",
		StructData: BasicStruct{"hello struct"},
		Child: &BasicQObject{
			StringData: "hello child",
		},
	}
	require.NoError(t, Init(q.Child))
	require.NoError(t, InitWithID(q, "parent"))

	data, err := json.Marshal(q)
	require.NoError(t, err, "QObject marshal failed")

	var decoded struct {
		Identifier string
		Type       string
		Properties map[string]interface{}
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "parent", decoded.Identifier)
	assert.Equal(t, "BasicQObject", decoded.Type)
	assert.Equal(t, "hello world", decoded.Properties["stringData"])
	assert.Contains(t, decoded.Properties, "child")
}

func TestProperties(t *testing.T) {
	q := &BasicQObject{StringData: "initial"}
	require.NoError(t, Init(q))

	v, err := q.Property("stringData")
	require.NoError(t, err)
	assert.Equal(t, "initial", v)

	var changes []interface{}
	_, err = q.Connect("countChanged", func(args ...interface{}) {
		changes = append(changes, len(args))
	})
	require.NoError(t, err)

	require.NoError(t, q.SetProperty("count", 5))
	assert.Equal(t, 5, q.Count)
	require.NoError(t, q.SetProperty("count", "7"))
	assert.Equal(t, 7, q.Count)
	assert.Len(t, changes, 2)

	// Equal values do not emit
	require.NoError(t, q.SetProperty("count", 7))
	assert.Len(t, changes, 2)

	err = q.SetProperty("count", "seven")
	assert.ErrorIs(t, err, ErrConversion)
	assert.Equal(t, 7, q.Count)

	require.NoError(t, q.SetProperty("stringData", 12))
	assert.Equal(t, "12", q.StringData, "numbers should convert to their decimal text")
}

type recordingFilter struct {
	events  []Event
	consume bool
}

func (f *recordingFilter) EventFilter(watched QObject, ev *Event) bool {
	f.events = append(f.events, *ev)
	return f.consume
}

func TestDynamicProperties(t *testing.T) {
	q := &BasicQObject{}
	require.NoError(t, Init(q))
	filter := &recordingFilter{}
	q.InstallEventFilter(filter)

	_, err := q.Property("extra")
	assert.ErrorIs(t, err, ErrUnknownProperty)

	require.NoError(t, q.SetProperty("extra", "one"))
	require.NoError(t, q.SetProperty("extra", "one"))
	require.NoError(t, q.SetProperty("another", 2))

	v, err := q.Property("extra")
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.Equal(t, []string{"extra", "another"}, q.DynamicPropertyNames())
	assert.Equal(t, []Event{
		{Type: DynamicPropertyChange, PropertyName: "extra"},
		{Type: DynamicPropertyChange, PropertyName: "another"},
	}, filter.events)

	require.NoError(t, q.SetProperty("extra", nil))
	assert.Equal(t, []string{"another"}, q.DynamicPropertyNames())
	assert.Len(t, filter.events, 3)

	props := q.Properties()
	assert.Equal(t, 2, props["another"])
	assert.NotContains(t, props, "extra")
}

type SignalQObject struct {
	QObject
	NoArgs       func()
	NormalArgs   func([]int, string) `qobject:"ints,str"`
	ObjectArgs   func(*BasicQObject) `qobject:"obj"`
	Value        string              `json:"value"`
	ValueChanged func(string)
}

func TestSignals(t *testing.T) {
	q := &SignalQObject{}

	// Init should assign functions for each signal
	require.NoError(t, Init(q))
	if q.NoArgs == nil || q.NormalArgs == nil || q.ObjectArgs == nil {
		t.Fatalf("QObject initialization didn't initialize signals: %+v", q)
	}
	assert.Equal(t, []string{"array ints", "string str"}, q.TypeInfo().Signals["normalArgs"])

	var received [][]interface{}
	record := func(args ...interface{}) { received = append(received, args) }
	c1, err := q.Connect("normalArgs", record)
	require.NoError(t, err)
	_, err = q.Connect("noArgs", record)
	require.NoError(t, err)

	q.NoArgs()
	q.NormalArgs([]int{1, 2, 3}, "one to three")
	require.Len(t, received, 2)
	assert.Empty(t, received[0])
	assert.Equal(t, []interface{}{[]int{1, 2, 3}, "one to three"}, received[1])

	assert.True(t, q.Disconnect(c1))
	assert.False(t, q.Disconnect(c1))
	q.NormalArgs(nil, "gone")
	assert.Len(t, received, 2)

	_, err = q.Connect("missing", record)
	assert.ErrorIs(t, err, ErrUnknownSignal)
}

func TestAdoptedChangeSignal(t *testing.T) {
	q := &SignalQObject{}
	require.NoError(t, Init(q))

	notify, ok := q.TypeInfo().NotifySignal("value")
	require.True(t, ok)
	assert.Equal(t, "valueChanged", notify)

	var got []interface{}
	_, err := q.Connect("valueChanged", func(args ...interface{}) { got = append(got, args...) })
	require.NoError(t, err)
	require.NoError(t, q.SetProperty("value", "new"))
	assert.Equal(t, []interface{}{"new"}, got, "adopted change signal should carry the new value")
}

func TestDisconnectDuringEmit(t *testing.T) {
	q := &SignalQObject{}
	require.NoError(t, Init(q))

	calls := 0
	var second Connection
	_, err := q.Connect("noArgs", func(args ...interface{}) {
		calls++
		q.Disconnect(second)
	})
	require.NoError(t, err)
	second, err = q.Connect("noArgs", func(args ...interface{}) { calls += 10 })
	require.NoError(t, err)

	q.NoArgs()
	assert.Equal(t, 1, calls, "slot disconnected during emission was still called")
}

type MethodQObject struct {
	QObject
	Count int

	level float64
}

func (m *MethodQObject) Increment() {
	m.Count++
}

func (m *MethodQObject) Add(i int) {
	m.Count += i
}

func (m *MethodQObject) Fail() error {
	return errors.New("failed")
}

func (m *MethodQObject) Update(obj *BasicQObject) {
	if obj != nil {
		obj.StringData = fmt.Sprintf("Count is %d", m.Count)
	}
}

func (m *MethodQObject) Level() float64 {
	return m.level
}

func (m *MethodQObject) SetLevel(v float64) {
	if m.level != v {
		m.level = v
		m.Changed("level")
	}
}

func TestMethods(t *testing.T) {
	q := &MethodQObject{}
	require.NoError(t, Init(q))

	require.NoError(t, q.Invoke("increment"))
	assert.Equal(t, 1, q.Count)

	require.NoError(t, q.Invoke("add", 4))
	assert.Equal(t, 5, q.Count)

	require.NoError(t, q.Invoke("add", "2"))
	assert.Equal(t, 7, q.Count)

	assert.EqualError(t, q.Invoke("fail"), "failed")
	assert.ErrorIs(t, q.Invoke("missing"), ErrUnknownMethod)
	assert.Error(t, q.Invoke("add"), "wrong argument count should fail")

	strObj := &BasicQObject{}
	require.NoError(t, Init(strObj))
	require.NoError(t, q.Invoke("update", strObj))
	assert.Equal(t, "Count is 7", strObj.StringData, "Object passed as parameter was not modified")
}

func TestMethodProperty(t *testing.T) {
	q := &MethodQObject{}
	require.NoError(t, Init(q))
	require.True(t, q.TypeInfo().IsMethodProperty("level"))

	changes := 0
	_, err := q.Connect("levelChanged", func(args ...interface{}) { changes++ })
	require.NoError(t, err)

	require.NoError(t, q.SetProperty("level", 3))
	assert.Equal(t, 3.0, q.level)
	assert.Equal(t, 1, changes)

	require.NoError(t, q.SetProperty("level", 3.0))
	assert.Equal(t, 1, changes, "equal value should not call the setter")

	v, err := q.Property("level")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

type handlingObject struct {
	QObject
	handled []EventType
}

func (h *handlingObject) Event(ev *Event) bool {
	h.handled = append(h.handled, ev.Type)
	return true
}

func TestEventDelivery(t *testing.T) {
	q := &handlingObject{}
	require.NoError(t, Init(q))

	first := &recordingFilter{}
	second := &recordingFilter{consume: true}
	q.InstallEventFilter(first)
	q.InstallEventFilter(second)

	assert.True(t, q.SendEvent(&Event{Type: Move}))
	assert.Len(t, second.events, 1)
	assert.Empty(t, first.events, "newest filter consumed the event")
	assert.Empty(t, q.handled)

	q.RemoveEventFilter(second)
	assert.True(t, q.SendEvent(&Event{Type: Resize}))
	assert.Len(t, first.events, 1)
	assert.Equal(t, []EventType{Resize}, q.handled)
	assert.Equal(t, "Resize", Resize.String())
}

func TestDestroy(t *testing.T) {
	q := &BasicQObject{}
	require.NoError(t, Init(q))

	var destroyed interface{}
	_, err := q.Connect(DestroyedSignal, func(args ...interface{}) { destroyed = args[0] })
	require.NoError(t, err)
	notified := false
	_, err = q.Connect("countChanged", func(args ...interface{}) { notified = true })
	require.NoError(t, err)

	q.Destroy()
	assert.True(t, q.IsDestroyed())
	assert.Same(t, q, destroyed)

	_, err = q.Property("count")
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, q.SetProperty("count", 1), ErrDestroyed)
	_, err = q.Connect("countChanged", func(args ...interface{}) {})
	assert.ErrorIs(t, err, ErrDestroyed)

	q.Changed("count")
	assert.False(t, notified)
	assert.False(t, q.SendEvent(&Event{Type: Show}))

	// Destroying twice does nothing
	destroyed = nil
	q.Destroy()
	assert.Nil(t, destroyed)
}
