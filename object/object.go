package qobject

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"

	"cogentcore.org/core/base/reflectx"
	uuid "github.com/satori/go.uuid"
	"github.com/ygrebnov/errorc"
)

// DestroyedSignal is emitted by every object when Destroy is called, before
// any of its connections are removed.
const DestroyedSignal = "destroyed"

// The QObject interface must be embedded in any struct that should be a
// full object (as opposed to simple data).
//
// The QObject is initialized by Init, or automatically by packages that
// accept objects (such as qbinding) the first time they see it.
type QObject interface {
	json.Marshaler

	Identifier() string
	TypeInfo() *TypeInfo

	// Property returns the value of a declared or dynamic property.
	Property(name string) (interface{}, error)
	// SetProperty converts value to the property's type and assigns it.
	// Assigning an equal value does nothing. Unknown names create dynamic
	// properties, which are announced with a DynamicPropertyChange event.
	SetProperty(name string, value interface{}) error
	DynamicPropertyNames() []string
	Properties() map[string]interface{}

	// Call invokes the named method, converting parameters as necessary,
	// and returns its results.
	Call(method string, args ...interface{}) ([]interface{}, error)
	// Invoke is Call without results. If any result is an error, it is
	// returned.
	Invoke(method string, args ...interface{}) error

	// Connect registers fn to be called synchronously whenever signal is
	// emitted, after any functions connected before it.
	Connect(signal string, fn func(args ...interface{})) (Connection, error)
	Disconnect(c Connection) bool
	// Emit emits the named signal. Emitting on a destroyed object does
	// nothing.
	Emit(signal string, args ...interface{})
	// Changed emits the change signal of a property. Setters of
	// method-backed properties should call it after modifying the value.
	Changed(property string)

	InstallEventFilter(f EventFilter)
	RemoveEventFilter(f EventFilter)
	// SendEvent delivers ev to the event filters, most recently installed
	// first, and then to the object if it implements EventHandler. It
	// returns true if the event was consumed.
	SendEvent(ev *Event) bool

	// Destroy emits the destroyed signal, then disconnects everything.
	Destroy()
	IsDestroyed() bool
}

// If a type embedding QObject implements QObjectHasInit, the InitObject
// function will be called immediately after QObject is initialized. This
// can be used to initialize fields automatically at the right time, or
// even as a form of constructor.
type QObjectHasInit interface {
	QObject
	InitObject()
}

// Connection identifies a function connected to a signal.
type Connection uint64

var connectionCounter atomic.Uint64

type slot struct {
	id Connection
	fn func(args ...interface{})
}

type objectImpl struct {
	id        string
	object    interface{}
	typeInfo  *TypeInfo
	destroyed bool

	slots        map[string][]slot
	slotSignal   map[Connection]string
	filters      []EventFilter
	dynamic      map[string]interface{}
	dynamicOrder []string
}

var (
	ErrNotQObject       = errors.New("qobject: struct does not embed QObject")
	ErrUnknownProperty  = errors.New("qobject: unknown property")
	ErrUnknownSignal    = errors.New("qobject: unknown signal")
	ErrUnknownMethod    = errors.New("qobject: method does not exist")
	ErrDestroyed        = errors.New("qobject: object has been destroyed")
	ErrConversion       = errors.New("qobject: value cannot be converted")
	ErrReadOnlyProperty = errors.New("qobject: property is read-only")
)

// asQObject returns the *objectImpl for obj, if any, and a boolean indicating if
// obj embeds QObject at all.
func asQObject(obj interface{}) (*objectImpl, bool) {
	if _, ok := obj.(QObject); !ok {
		return nil, false
	} else if v := reflect.Indirect(reflect.ValueOf(obj)); !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, false
	} else if f := v.FieldByName("QObject"); !f.IsValid() {
		return nil, false
	} else {
		impl, _ := f.Interface().(*objectImpl)
		return impl, true
	}
}

// Init explicitly initializes a QObject, assigning an identifier and
// setting up signal functions. Nothing changes if the object is already
// initialized.
func Init(obj interface{}) error {
	u, _ := uuid.NewV4()
	_, err := initObjectId(obj, u.String())
	return err
}

// InitWithID is equivalent to Init, but takes an identifier for the object.
// This is useful to look objects up by a known name, e.g. from a Loop.
func InitWithID(obj interface{}, id string) error {
	_, err := initObjectId(obj, id)
	return err
}

// IsInitialized returns true if obj embeds an initialized QObject.
func IsInitialized(obj interface{}) bool {
	impl, _ := asQObject(obj)
	return impl != nil
}

func initObjectId(object interface{}, id string) (*objectImpl, error) {
	value := reflect.ValueOf(object)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return nil, ErrNotQObject
	}
	value = value.Elem()
	if value.Kind() != reflect.Struct {
		return nil, ErrNotQObject
	}
	field := value.FieldByName("QObject")
	if !field.IsValid() || field.Type() != qobjInterfaceType {
		return nil, ErrNotQObject
	}

	if impl, _ := field.Interface().(*objectImpl); impl != nil {
		return impl, nil
	}

	ti, err := TypeInfoOf(value.Type())
	if err != nil {
		return nil, err
	}
	impl := &objectImpl{
		id:         id,
		object:     object,
		typeInfo:   ti,
		slots:      make(map[string][]slot),
		slotSignal: make(map[Connection]string),
		dynamic:    make(map[string]interface{}),
	}

	// Write to the QObject embedded field
	field.Set(reflect.ValueOf(impl))

	initSignals(value, impl)

	if io, ok := object.(QObjectHasInit); ok {
		io.InitObject()
	}
	return impl, nil
}

func initSignals(v reflect.Value, impl *objectImpl) {
	for name, index := range impl.typeInfo.signalFieldIndex {
		field := v.FieldByIndex(index)
		if !field.IsNil() {
			continue
		}
		signal := name
		// Build a function to assign as the signal
		f := reflect.MakeFunc(field.Type(), func(args []reflect.Value) []reflect.Value {
			impl.emitReflected(signal, args)
			return nil
		})
		field.Set(f)
	}
}

func (o *objectImpl) Identifier() string {
	return o.id
}

func (o *objectImpl) TypeInfo() *TypeInfo {
	return o.typeInfo
}

func (o *objectImpl) IsDestroyed() bool {
	return o.destroyed
}

func (o *objectImpl) propertyError(err error, name string) error {
	return errorc.With(err,
		errorc.Field("object_type", o.typeInfo.Name),
		errorc.Field("property", name),
	)
}

func (o *objectImpl) Property(name string) (interface{}, error) {
	if o.destroyed {
		return nil, o.propertyError(ErrDestroyed, name)
	}
	value := reflect.Indirect(reflect.ValueOf(o.object))
	if index, ok := o.typeInfo.propertyFieldIndex[name]; ok {
		return value.FieldByIndex(index).Interface(), nil
	}
	if m, ok := o.typeInfo.propertyMethods[name]; ok {
		results, err := o.Call(m.Getter)
		if err != nil {
			return nil, err
		}
		return results[0], nil
	}
	if v, ok := o.dynamic[name]; ok {
		return v, nil
	}
	return nil, o.propertyError(ErrUnknownProperty, name)
}

func (o *objectImpl) SetProperty(name string, v interface{}) error {
	if o.destroyed {
		return o.propertyError(ErrDestroyed, name)
	}
	value := reflect.Indirect(reflect.ValueOf(o.object))

	if index, ok := o.typeInfo.propertyFieldIndex[name]; ok {
		field := value.FieldByIndex(index)
		if !field.CanSet() {
			return o.propertyError(ErrReadOnlyProperty, name)
		}
		newValue, err := ConvertValue(v, field.Type())
		if err != nil {
			return o.propertyError(err, name)
		}
		if reflect.DeepEqual(field.Interface(), newValue.Interface()) {
			return nil
		}
		field.Set(newValue)
		o.Changed(name)
		return nil
	}

	if m, ok := o.typeInfo.propertyMethods[name]; ok {
		newValue, err := ConvertValue(v, o.typeInfo.propertyType[name])
		if err != nil {
			return o.propertyError(err, name)
		}
		if current, err := o.Call(m.Getter); err == nil && reflect.DeepEqual(current[0], newValue.Interface()) {
			return nil
		}
		return o.Invoke(m.Setter, newValue.Interface())
	}

	// Dynamic property; nil removes it
	old, exists := o.dynamic[name]
	if v == nil {
		if !exists {
			return nil
		}
		delete(o.dynamic, name)
		for i, n := range o.dynamicOrder {
			if n == name {
				o.dynamicOrder = append(o.dynamicOrder[:i], o.dynamicOrder[i+1:]...)
				break
			}
		}
	} else {
		if exists && reflect.DeepEqual(old, v) {
			return nil
		}
		if !exists {
			o.dynamicOrder = append(o.dynamicOrder, name)
		}
		o.dynamic[name] = v
	}
	o.SendEvent(&Event{Type: DynamicPropertyChange, PropertyName: name})
	return nil
}

func (o *objectImpl) DynamicPropertyNames() []string {
	return append([]string(nil), o.dynamicOrder...)
}

// Properties returns a snapshot of all declared and dynamic property values.
func (o *objectImpl) Properties() map[string]interface{} {
	data := make(map[string]interface{}, len(o.typeInfo.Properties)+len(o.dynamic))
	for name := range o.typeInfo.Properties {
		if v, err := o.Property(name); err == nil {
			data[name] = v
		}
	}
	for name, v := range o.dynamic {
		data[name] = v
	}
	return data
}

// ConvertValue converts v to type t, using direct assignment where possible,
// TextUnmarshaler for strings, and otherwise robust conversion between basic
// kinds (so that 5 becomes "5" for a string, not a rune).
func ConvertValue(v interface{}, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	in := reflect.ValueOf(v)
	if in.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(in)
		return out, nil
	}

	umType := reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	if s, ok := v.(string); ok {
		var umArg encoding.TextUnmarshaler
		var out reflect.Value
		if t.Kind() == reflect.Ptr && t.Implements(umType) {
			out = reflect.New(t.Elem())
			umArg = out.Interface().(encoding.TextUnmarshaler)
		} else if argTypePtr := reflect.PtrTo(t); argTypePtr.Implements(umType) {
			ptr := reflect.New(t)
			umArg = ptr.Interface().(encoding.TextUnmarshaler)
			out = ptr.Elem()
		}
		if umArg != nil {
			if err := umArg.UnmarshalText([]byte(s)); err != nil {
				return reflect.Value{}, errorc.With(ErrConversion,
					errorc.Field("expected", t.String()),
					errorc.Field("cause", err.Error()),
				)
			}
			return out, nil
		}
	}

	ptr := reflect.New(t)
	if err := reflectx.SetRobust(ptr.Interface(), v); err != nil {
		return reflect.Value{}, errorc.With(ErrConversion,
			errorc.Field("expected", t.String()),
			errorc.Field("provided", in.Type().String()),
			errorc.Field("cause", err.Error()),
		)
	}
	return ptr.Elem(), nil
}

func (o *objectImpl) Call(methodName string, inArgs ...interface{}) ([]interface{}, error) {
	if o.destroyed {
		return nil, errorc.With(ErrDestroyed, errorc.Field("method", methodName))
	}
	method := typeMethodValueByName(reflect.ValueOf(o.object), methodName)
	if !method.IsValid() {
		return nil, errorc.With(ErrUnknownMethod,
			errorc.Field("object_type", o.typeInfo.Name),
			errorc.Field("method", methodName),
		)
	}
	methodType := method.Type()

	if len(inArgs) != methodType.NumIn() {
		return nil, fmt.Errorf("wrong number of arguments for %s; expected %d, provided %d",
			methodName, methodType.NumIn(), len(inArgs))
	}

	callArgs := make([]reflect.Value, methodType.NumIn())
	for i, inArg := range inArgs {
		callArg, err := ConvertValue(inArg, methodType.In(i))
		if err != nil {
			return nil, fmt.Errorf("wrong type for argument %d to %s: %w", i, methodName, err)
		}
		callArgs[i] = callArg
	}

	returnValues := method.Call(callArgs)
	results := make([]interface{}, len(returnValues))
	for i, rv := range returnValues {
		results[i] = rv.Interface()
	}
	return results, nil
}

func (o *objectImpl) Invoke(methodName string, inArgs ...interface{}) error {
	results, err := o.Call(methodName, inArgs...)
	if err != nil {
		return err
	}
	// If any of method's return values is an error, return that
	for _, value := range results {
		if err, ok := value.(error); ok && err != nil {
			return err
		}
	}
	return nil
}

func (o *objectImpl) Connect(signal string, fn func(args ...interface{})) (Connection, error) {
	if o.destroyed {
		return 0, errorc.With(ErrDestroyed, errorc.Field("signal", signal))
	}
	if !o.typeInfo.HasSignal(signal) {
		return 0, errorc.With(ErrUnknownSignal,
			errorc.Field("object_type", o.typeInfo.Name),
			errorc.Field("signal", signal),
		)
	}
	id := Connection(connectionCounter.Add(1))
	o.slots[signal] = append(o.slots[signal], slot{id: id, fn: fn})
	o.slotSignal[id] = signal
	return id, nil
}

func (o *objectImpl) Disconnect(c Connection) bool {
	signal, ok := o.slotSignal[c]
	if !ok {
		return false
	}
	delete(o.slotSignal, c)
	slots := o.slots[signal]
	for i, s := range slots {
		if s.id == c {
			// Copy so that an emission in progress keeps its snapshot
			o.slots[signal] = append(append([]slot(nil), slots[:i]...), slots[i+1:]...)
			break
		}
	}
	return true
}

func (o *objectImpl) Emit(signal string, args ...interface{}) {
	if o.destroyed && signal != DestroyedSignal {
		return
	}
	for _, s := range o.slots[signal] {
		// Skip functions disconnected by an earlier slot in this emission
		if _, live := o.slotSignal[s.id]; !live {
			continue
		}
		s.fn(args...)
	}
}

func (o *objectImpl) emitReflected(signal string, args []reflect.Value) {
	unwrappedArgs := make([]interface{}, 0, len(args))
	for _, a := range args {
		unwrappedArgs = append(unwrappedArgs, a.Interface())
	}
	o.Emit(signal, unwrappedArgs...)
}

func (o *objectImpl) Changed(property string) {
	signal, ok := o.typeInfo.Notify[property]
	if !ok {
		return
	}
	if len(o.typeInfo.Signals[signal]) == 1 {
		if v, err := o.Property(property); err == nil {
			o.Emit(signal, v)
			return
		}
	}
	o.Emit(signal)
}

func (o *objectImpl) InstallEventFilter(f EventFilter) {
	if o.destroyed || f == nil {
		return
	}
	o.RemoveEventFilter(f)
	o.filters = append(o.filters, f)
}

func (o *objectImpl) RemoveEventFilter(f EventFilter) {
	for i, existing := range o.filters {
		if existing == f {
			o.filters = append(append([]EventFilter(nil), o.filters[:i]...), o.filters[i+1:]...)
			return
		}
	}
}

func (o *objectImpl) SendEvent(ev *Event) bool {
	if o.destroyed || ev == nil {
		return false
	}
	filters := o.filters
	for i := len(filters) - 1; i >= 0; i-- {
		if filters[i].EventFilter(o.object.(QObject), ev) {
			return true
		}
	}
	if h, ok := o.object.(EventHandler); ok {
		return h.Event(ev)
	}
	return false
}

func (o *objectImpl) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.Emit(DestroyedSignal, o.object)
	o.slots = make(map[string][]slot)
	o.slotSignal = make(map[Connection]string)
	o.filters = nil
}

// MarshalJSON encodes the identifier, type name and a snapshot of the
// properties of the object.
func (o *objectImpl) MarshalJSON() ([]byte, error) {
	props := o.Properties()
	obj := struct {
		Identifier string                 `json:"identifier"`
		Type       string                 `json:"type"`
		Destroyed  bool                   `json:"destroyed,omitempty"`
		Properties map[string]interface{} `json:"properties"`
	}{o.id, o.typeInfo.Name, o.destroyed, props}
	return json.Marshal(obj)
}
