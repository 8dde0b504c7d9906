package qobject

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Simple struct {
	Simple string
}

type Fields struct {
	String    string
	Bytes     []byte
	Strings   []string
	Map       map[string]string
	Struct    Simple
	Ptr       *Simple
	Object    *TestStruct
	Interface interface{}
}

type TestStruct struct {
	QObject
	Fields

	unexported  bool
	Ignored     bool `qobject:"-"`
	IgnoredJSON bool `json:"-"`
	Renamed     int  `json:"renamedValue"`
	Quiet       int  `qobject:"nonotify"`

	Signal       func()
	SignalParams func(a, b int) `qobject:"a,b"`
}

func (t *TestStruct) RealMethod(arg1 int, arg2 []string) (*TestStruct, error) {
	return t, nil
}

func TestParseTypes(t *testing.T) {
	info, err := TypeInfoOf(reflect.TypeOf(TestStruct{}))
	require.NoError(t, err, "parsing type failed")

	t.Logf("parsed type: %s", info)

	expectProp := []string{"string", "bytes", "strings", "map", "struct", "ptr", "object", "interface", "renamedValue", "quiet"}
	expectMethod := []string{"realMethod"}
	expectSignal := []string{"signal", "signalParams"}

	for _, p := range expectProp {
		assert.True(t, info.HasProperty(p), "Expected property '%s' to exist", p)
		if p != "quiet" {
			expectSignal = append(expectSignal, ChangedSignalName(p))
		}
	}
	assert.Len(t, info.Properties, len(expectProp))

	for _, m := range expectMethod {
		assert.Contains(t, info.Methods, m)
	}
	assert.Len(t, info.Methods, len(expectMethod))
	assert.Equal(t, []string{"int", "array"}, info.Methods["realMethod"])

	for _, s := range expectSignal {
		assert.True(t, info.HasSignal(s), "Expected signal '%s' to exist", s)
	}
	assert.Len(t, info.Signals, len(expectSignal))
	assert.True(t, info.HasSignal(DestroyedSignal))

	_, notify := info.NotifySignal("quiet")
	assert.False(t, notify, "nonotify property has a change signal")
	assert.Equal(t, reflect.TypeOf(0), info.PropertyType("renamedValue"))
	assert.Equal(t, "object", info.Properties["object"])
	assert.Equal(t, "map", info.Properties["struct"])

	again, err := TypeInfoOf(reflect.TypeOf(&TestStruct{}))
	require.NoError(t, err)
	assert.Same(t, info, again, "type info should be cached")
}

type badChangeSignal struct {
	QObject
	Value        int
	ValueChanged func(int, int)
}

type badSignalNames struct {
	QObject
	Moved func(int, int) `qobject:"x"`
}

func TestParseTypeErrors(t *testing.T) {
	_, err := TypeInfoOf(reflect.TypeOf(Simple{}))
	assert.Error(t, err, "non-QObject type parsed")

	_, err = TypeInfoOf(reflect.TypeOf(badChangeSignal{}))
	assert.Error(t, err, "change signal with two parameters accepted")

	_, err = TypeInfoOf(reflect.TypeOf(badSignalNames{}))
	assert.Error(t, err, "signal with mismatched parameter names accepted")
}
