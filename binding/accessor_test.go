package qbinding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMethodsAccessor(t *testing.T) {
	reg, _ := newRegistry(t)
	thermostat, input, display := &Thermostat{}, &Label{Text: "21.5"}, &Label{}
	initAll(t, input)

	b, err := reg.Bind(input, "text")
	require.NoError(t, err)
	require.NoError(t, b.To(thermostat, "temperature", Via(Methods("reading", "calibrate")), WithConverter(Float)))
	assert.Equal(t, 21.5, thermostat.Reading())

	b, err = reg.Bind(thermostat, "temperature", Via(Methods("reading", "")), NotifyOn("updated"))
	require.NoError(t, err)
	require.NoError(t, b.To(display, "text", WithConverter(Stringify)))
	assert.Equal(t, "21.5", display.Text)

	thermostat.Calibrate(30)
	assert.Equal(t, "30", display.Text)

	require.NoError(t, input.SetProperty("text", "18"))
	assert.Equal(t, 18.0, thermostat.Reading())
	assert.Equal(t, "18", display.Text)

	_, err = reg.Bind(thermostat, "temperature", Via(Methods("missing", "")))
	assert.ErrorIs(t, err, ErrResolution)
	_, err = reg.Bind(thermostat, "temperature", Via(Methods("calibrate", "")))
	assert.ErrorIs(t, err, ErrResolution, "a method with parameters is not a getter")
}

func TestFuncsAccessor(t *testing.T) {
	reg, _ := newRegistry(t)
	slider, panel := &Slider{Value: 1}, &Panel{}
	initAll(t, slider)

	var stored interface{}
	access := Funcs(
		func() interface{} { return stored },
		func(v interface{}) error {
			stored = v
			return nil
		},
	)
	b, err := reg.Bind(slider, "value")
	require.NoError(t, err)
	require.NoError(t, b.To(panel, "anything", Via(access)))
	assert.Equal(t, 1.0, stored)

	require.NoError(t, slider.SetProperty("value", 2))
	assert.Equal(t, 2.0, stored)

	endpoints := b.Endpoints()
	assert.Contains(t, endpoints[1].String(), "[funcs:")
}

func TestJSONPathAccessor(t *testing.T) {
	reg, _ := newRegistry(t)
	settings := &Settings{Document: `{"window":{"width":640}}`}
	width, height := &Slider{}, &Slider{Value: 480}
	initAll(t, settings, height)

	b, err := reg.Bind(settings, "document", Via(JSONPath("window.width")))
	require.NoError(t, err)
	require.NoError(t, b.To(width, "value"))
	assert.Equal(t, 640.0, width.Value)

	b, err = reg.Bind(height, "value")
	require.NoError(t, err)
	require.NoError(t, b.To(settings, "document", Via(JSONPath("window.height"))))
	assert.Equal(t, 480.0, gjson.Get(settings.Document, "window.height").Float())

	require.NoError(t, settings.SetProperty("document", `{"window":{"width":800,"height":600}}`))
	assert.Equal(t, 800.0, width.Value)

	require.NoError(t, height.SetProperty("value", 720))
	assert.Equal(t, 720.0, gjson.Get(settings.Document, "window.height").Float())
	assert.Equal(t, 800.0, gjson.Get(settings.Document, "window.width").Float())

	_, err = reg.Bind(width, "value", Via(JSONPath("x")))
	assert.ErrorIs(t, err, ErrResolution, "value does not hold a JSON document")
}

func TestConverters(t *testing.T) {
	v, err := Float("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = Float("abc")
	assert.ErrorIs(t, err, ErrTypeConversion)

	v, err = Int(3.9)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = Bool(1)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Stringify(nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = Stringify(0.1)
	require.NoError(t, err)
	assert.Equal(t, "0.1", v)

	half := Convert(func(f float64) float64 { return f / 2 })
	v, err = half("3")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(1, 1.0))
	assert.True(t, valuesEqual(0.1+0.2, 0.3))
	assert.True(t, valuesEqual(math.NaN(), math.NaN()))
	assert.True(t, valuesEqual("a", "a"))
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(1, 2))
	assert.False(t, valuesEqual(1e-12, 0))
	assert.False(t, valuesEqual("1", 1))
}
