package qbinding

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	qobject "github.com/CrimsonAS/qbind/object"
)

// Access is an accessor resolved against one object.
type Access struct {
	Read func() (interface{}, error)
	// Write is nil for read-only access.
	Write func(value interface{}) error
	// Watch names the property whose change notifications announce changes
	// to this access. Empty means the endpoint's own property.
	Watch string
}

// Accessor is an accessor override, for properties that are not reached
// through generic property access. Resolve is called once per endpoint.
type Accessor interface {
	Resolve(obj qobject.QObject, property string) (Access, error)
	// Name distinguishes endpoints on one property using different
	// accessors.
	Name() string
}

// propertyAccessor uses the generic Property and SetProperty of the object.
type propertyAccessor struct{}

func (propertyAccessor) Name() string {
	return ""
}

func (propertyAccessor) Resolve(obj qobject.QObject, property string) (Access, error) {
	if !obj.TypeInfo().HasProperty(property) && !slices.Contains(obj.DynamicPropertyNames(), property) {
		return Access{}, qobject.ErrUnknownProperty
	}
	return Access{
		Read: func() (interface{}, error) {
			return obj.Property(property)
		},
		Write: func(value interface{}) error {
			return obj.SetProperty(property, value)
		},
	}, nil
}

type methodAccessor struct {
	getter, setter string
}

// Methods accesses a property through a getter method and an optional
// setter method, by Go method name. The getter takes no arguments and
// returns the value, optionally followed by an error; the setter takes the
// value and returns nothing or an error. Values written are converted to
// the setter's parameter type.
func Methods(getter, setter string) Accessor {
	return methodAccessor{getter: exportedName(getter), setter: exportedName(setter)}
}

func exportedName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (m methodAccessor) Name() string {
	return "methods:" + m.getter + "," + m.setter
}

func (m methodAccessor) Resolve(obj qobject.QObject, property string) (Access, error) {
	value := reflect.ValueOf(obj)
	errorType := reflect.TypeOf((*error)(nil)).Elem()

	getter := value.MethodByName(m.getter)
	if !getter.IsValid() {
		return Access{}, fmt.Errorf("no getter method %s", m.getter)
	}
	gt := getter.Type()
	if gt.NumIn() != 0 || gt.NumOut() < 1 || gt.NumOut() > 2 || (gt.NumOut() == 2 && gt.Out(1) != errorType) {
		return Access{}, fmt.Errorf("method %s is not a getter", m.getter)
	}

	access := Access{
		Read: func() (interface{}, error) {
			out := getter.Call(nil)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return out[0].Interface(), nil
		},
	}

	if m.setter == "" {
		return access, nil
	}
	setter := value.MethodByName(m.setter)
	if !setter.IsValid() {
		return Access{}, fmt.Errorf("no setter method %s", m.setter)
	}
	st := setter.Type()
	if st.NumIn() != 1 || st.NumOut() > 1 || (st.NumOut() == 1 && st.Out(0) != errorType) {
		return Access{}, fmt.Errorf("method %s is not a setter", m.setter)
	}
	paramType := st.In(0)
	access.Write = func(v interface{}) error {
		arg, err := qobject.ConvertValue(v, paramType)
		if err != nil {
			return err
		}
		out := setter.Call([]reflect.Value{arg})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
	return access, nil
}

var funcsCounter atomic.Uint64

type funcAccessor struct {
	name string
	get  func() interface{}
	set  func(interface{}) error
}

// Funcs accesses a property through closures. set may be nil for read-only
// access. The property name is used only for change detection, so it is
// usually combined with NotifyOn or relies on event interception.
func Funcs(get func() interface{}, set func(value interface{}) error) Accessor {
	return &funcAccessor{
		name: fmt.Sprintf("funcs:%d", funcsCounter.Add(1)),
		get:  get,
		set:  set,
	}
}

func (f *funcAccessor) Name() string {
	return f.name
}

func (f *funcAccessor) Resolve(obj qobject.QObject, property string) (Access, error) {
	if f.get == nil {
		return Access{}, fmt.Errorf("accessor %s has no getter", f.name)
	}
	access := Access{
		Read: func() (interface{}, error) {
			return f.get(), nil
		},
	}
	if f.set != nil {
		access.Write = f.set
	}
	return access, nil
}

type jsonAccessor struct {
	path string
}

// JSONPath accesses one value inside a property holding a JSON document, as
// a string or []byte. Paths use gjson syntax for reads and sjson syntax for
// writes, e.g. "window.size.width". Writes replace the whole document, so
// changes are observed on the document property.
func JSONPath(path string) Accessor {
	return jsonAccessor{path: path}
}

func (j jsonAccessor) Name() string {
	return "json:" + j.path
}

func (j jsonAccessor) Resolve(obj qobject.QObject, property string) (Access, error) {
	doc, err := propertyAccessor{}.Resolve(obj, property)
	if err != nil {
		return Access{}, err
	}
	current, err := doc.Read()
	if err != nil {
		return Access{}, err
	}
	switch current.(type) {
	case string, []byte, nil:
	default:
		return Access{}, fmt.Errorf("property holds %T, not a JSON document", current)
	}

	return Access{
		Read: func() (interface{}, error) {
			v, err := doc.Read()
			if err != nil {
				return nil, err
			}
			var result gjson.Result
			switch d := v.(type) {
			case []byte:
				result = gjson.GetBytes(d, j.path)
			case string:
				result = gjson.Get(d, j.path)
			default:
				return nil, nil
			}
			if !result.Exists() {
				return nil, nil
			}
			return result.Value(), nil
		},
		Write: func(value interface{}) error {
			v, err := doc.Read()
			if err != nil {
				return err
			}
			if d, ok := v.([]byte); ok {
				updated, err := sjson.SetBytes(d, j.path, value)
				if err != nil {
					return fmt.Errorf("%w: %s", qobject.ErrConversion, err)
				}
				return doc.Write(updated)
			}
			s, _ := v.(string)
			updated, err := sjson.Set(s, j.path, value)
			if err != nil {
				return fmt.Errorf("%w: %s", qobject.ErrConversion, err)
			}
			return doc.Write(updated)
		},
	}, nil
}
