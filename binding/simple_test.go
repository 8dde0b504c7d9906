package qbinding

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleBinding(t *testing.T) {
	reg, _ := newRegistry(t)
	slider, label := &Slider{}, &Label{}

	b, err := reg.Bind(slider, "value")
	require.NoError(t, err)
	require.NoError(t, b.To(label, "text", WithConverter(Stringify)))
	assert.Equal(t, "0", label.Text, "target should be written when added")

	require.NoError(t, slider.SetProperty("value", 0.5))
	assert.Equal(t, "0.5", label.Text)

	slider.Value = 0.75
	slider.Changed("value")
	assert.Equal(t, "0.75", label.Text)

	assert.Equal(t, []*Endpoint{b.Source()}, b.Endpoints()[:1])
	assert.Len(t, b.Targets(), 1)
	assert.Equal(t, "text", b.Targets()[0].Property())
}

func TestSliderToLabel(t *testing.T) {
	reg, _ := newRegistry(t)
	slider, label := &Slider{Value: 5}, &Label{}

	b, err := reg.Bind(slider, "value")
	require.NoError(t, err)
	require.NoError(t, b.To(label, "text", WithConverter(Stringify)))
	assert.Equal(t, "5", label.Text)

	require.NoError(t, slider.SetProperty("value", 12))
	assert.Equal(t, "12", label.Text)
}

func TestSimpleBindingManyTargets(t *testing.T) {
	reg, _ := newRegistry(t)
	person, age, name := &Person{Age: 30}, &Label{}, &Slider{}
	initAll(t, person)

	b, err := reg.Bind(person, "age")
	require.NoError(t, err)
	require.NoError(t, b.To(age, "text", WithConverter(Convert(strconv.Itoa))))
	require.NoError(t, b.To(name, "value"))
	assert.Equal(t, "30", age.Text)
	assert.Equal(t, 30.0, name.Value)

	require.NoError(t, person.SetProperty("age", 42))
	assert.Equal(t, "42", age.Text)
	assert.Equal(t, 42.0, name.Value)
}

func TestSimpleBindingIsolatesFailures(t *testing.T) {
	rec := &errorRecorder{}
	reg, _ := newRegistry(t, WithErrorHandler(rec.handle))
	source, mirror := &Label{Text: "1.5"}, &Label{}
	slider := &Slider{}
	initAll(t, source)

	b, err := reg.Bind(source, "text")
	require.NoError(t, err)
	require.NoError(t, b.To(slider, "value", WithConverter(Float)))
	require.NoError(t, b.To(mirror, "text"))
	assert.Equal(t, 1.5, slider.Value)
	assert.Equal(t, "1.5", mirror.Text)

	require.NoError(t, source.SetProperty("text", "abc"))
	assert.Equal(t, 1.5, slider.Value, "failed target should keep its value")
	assert.Equal(t, "abc", mirror.Text, "failure should not stop other targets")

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], ErrTypeConversion)
	assert.Equal(t, uint64(1), reg.Stats().Errors)
}

func TestSimpleBindingSkipsEqualValues(t *testing.T) {
	reg, _ := newRegistry(t)
	a, b := &Slider{}, &Slider{}
	initAll(t, a, b)

	changes := 0
	_, err := b.Connect("valueChanged", func(args ...interface{}) { changes++ })
	require.NoError(t, err)

	binding, err := reg.Bind(a, "value")
	require.NoError(t, err)
	require.NoError(t, binding.To(b, "value"))
	assert.Equal(t, 0, changes)
	assert.Equal(t, uint64(1), reg.Stats().SkippedEqual)

	require.NoError(t, a.SetProperty("value", 0.3))
	assert.Equal(t, 1, changes)

	// A notification without a change writes nothing
	a.Changed("value")
	assert.Equal(t, 1, changes)

	stats := reg.Stats()
	assert.Equal(t, uint64(1), stats.Writes)
	assert.Equal(t, uint64(2), stats.SkippedEqual)
}

func TestTwoWaySimpleBindings(t *testing.T) {
	reg, _ := newRegistry(t)
	slider, label := &Slider{}, &Label{}
	initAll(t, slider, label)

	forward, err := reg.Bind(slider, "value")
	require.NoError(t, err)
	require.NoError(t, forward.To(label, "text", WithConverter(Stringify)))
	back, err := reg.Bind(label, "text")
	require.NoError(t, err)
	require.NoError(t, back.To(slider, "value", WithConverter(Float)))

	require.NoError(t, slider.SetProperty("value", 2.5))
	assert.Equal(t, "2.5", label.Text)

	require.NoError(t, label.SetProperty("text", "4"))
	assert.Equal(t, 4.0, slider.Value)
	assert.Equal(t, "4", label.Text)
}

func TestSimpleBindingErrors(t *testing.T) {
	reg, _ := newRegistry(t)
	slider, label := &Slider{}, &Label{}

	_, err := reg.Bind(slider, "missing")
	assert.ErrorIs(t, err, ErrResolution)

	_, err = reg.Bind(nil, "value")
	assert.ErrorIs(t, err, ErrResolution)

	_, err = reg.Bind(slider, "value", NotifyOn("noSuchSignal"))
	assert.ErrorIs(t, err, ErrResolution)

	b, err := reg.Bind(slider, "value")
	require.NoError(t, err)

	readOnly := Funcs(func() interface{} { return "fixed" }, nil)
	assert.ErrorIs(t, b.To(label, "text", Via(readOnly)), ErrResolution)

	initAll(t, label)
	label.Destroy()
	assert.ErrorIs(t, b.To(label, "text"), ErrAccess)
}
