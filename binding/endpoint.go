package qbinding

import (
	"fmt"
	"reflect"

	"github.com/ygrebnov/errorc"

	qobject "github.com/CrimsonAS/qbind/object"
)

// Endpoint is an addressable (object, property) pair. It does not own the
// object; every read and write checks that the object has not been
// destroyed.
type Endpoint struct {
	object   qobject.QObject
	property string
	accessor string
	access   Access
}

// EndpointKey identifies an endpoint. Endpoints with equal keys share one
// change observer.
type EndpointKey struct {
	Object   string
	Property string
	Accessor string
}

// Resolve creates an endpoint for property of obj, initializing obj if
// necessary. Without an accessor override, property must be a declared or
// existing dynamic property of obj; otherwise resolution is delegated to
// the override. The accessor is resolved once and cached.
func Resolve(obj qobject.QObject, property string, override Accessor) (*Endpoint, error) {
	if isNil(obj) {
		return nil, errorc.With(ErrResolution, errorc.Field(fieldProperty, property), errorc.Field(fieldCause, "nil object"))
	}
	if err := qobject.Init(obj); err != nil {
		return nil, errorc.With(ErrResolution,
			errorc.Field(fieldObjectType, fmt.Sprintf("%T", obj)),
			errorc.Field(fieldProperty, property),
			errorc.Field(fieldCause, err.Error()),
		)
	}

	ep := &Endpoint{object: obj, property: property}
	if obj.IsDestroyed() {
		return nil, endpointError(ErrAccess, ep, qobject.ErrDestroyed)
	}

	if override == nil {
		override = propertyAccessor{}
	} else {
		ep.accessor = override.Name()
	}
	access, err := override.Resolve(obj, property)
	if err != nil {
		if errorsIsAny(err, ErrResolution, ErrAccess, ErrTypeConversion) {
			return nil, err
		}
		return nil, endpointError(ErrResolution, ep, err)
	}
	if access.Read == nil {
		return nil, endpointError(ErrResolution, ep, fmt.Errorf("accessor %q cannot read", override.Name()))
	}
	ep.access = access
	return ep, nil
}

func isNil(obj qobject.QObject) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func (e *Endpoint) Object() qobject.QObject {
	return e.object
}

func (e *Endpoint) Property() string {
	return e.property
}

func (e *Endpoint) Key() EndpointKey {
	return EndpointKey{Object: e.object.Identifier(), Property: e.property, Accessor: e.accessor}
}

// Valid returns false once the object has been destroyed.
func (e *Endpoint) Valid() bool {
	return !e.object.IsDestroyed()
}

// Writable returns true if the endpoint's accessor can write.
func (e *Endpoint) Writable() bool {
	return e.access.Write != nil
}

// Read returns the current value. It fails with ErrAccess if the object has
// been destroyed.
func (e *Endpoint) Read() (interface{}, error) {
	if !e.Valid() {
		return nil, endpointError(ErrAccess, e, qobject.ErrDestroyed)
	}
	v, err := e.access.Read()
	if err != nil {
		return nil, endpointError(classify(err), e, err)
	}
	return v, nil
}

// Write applies value through the accessor. It fails with ErrAccess if the
// object has been destroyed or the property cannot be written, and with
// ErrTypeConversion if the value cannot be converted to the property's type.
//
// Writes are not suppressed: an accessor that emits a change signal will
// notify observers synchronously, before Write returns.
func (e *Endpoint) Write(value interface{}) error {
	if !e.Valid() {
		return endpointError(ErrAccess, e, qobject.ErrDestroyed)
	}
	if e.access.Write == nil {
		return endpointError(ErrAccess, e, qobject.ErrReadOnlyProperty)
	}
	if err := e.access.Write(value); err != nil {
		return endpointError(classify(err), e, err)
	}
	return nil
}

// holds returns true if the endpoint currently holds a value equal to
// value, after converting value to the type of the current value.
func (e *Endpoint) holds(value interface{}) bool {
	current, err := e.Read()
	if err != nil {
		return false
	}
	if valuesEqual(current, value) {
		return true
	}
	if current == nil || value == nil {
		return false
	}
	converted, err := qobject.ConvertValue(value, reflect.TypeOf(current))
	if err != nil {
		return false
	}
	return valuesEqual(current, converted.Interface())
}

// watchedProperty is the property whose change signals observe this
// endpoint.
func (e *Endpoint) watchedProperty() string {
	if e.access.Watch != "" {
		return e.access.Watch
	}
	return e.property
}

func (e *Endpoint) typeName() string {
	if ti := e.object.TypeInfo(); ti != nil {
		return ti.Name
	}
	return fmt.Sprintf("%T", e.object)
}

func (e *Endpoint) String() string {
	s := fmt.Sprintf("%s(%s).%s", e.typeName(), e.object.Identifier(), e.property)
	if e.accessor != "" {
		s += "[" + e.accessor + "]"
	}
	return s
}
