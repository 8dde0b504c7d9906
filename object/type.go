package qobject

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Methods of the QObject interface are promoted onto every type embedding
// it; they are not methods or properties of that type.
var methodBlacklist = func() map[string]struct{} {
	names := map[string]struct{}{
		"InitObject": {},
		"Event":      {},
	}
	t := reflect.TypeOf((*QObject)(nil)).Elem()
	for i := 0; i < t.NumMethod(); i++ {
		names[t.Method(i).Name] = struct{}{}
	}
	return names
}()

// TypeInfo is the parsed representation of a Go struct as an object type.
// It is computed once per type and shared by all instances.
type TypeInfo struct {
	Name       string              `json:"name"`
	Properties map[string]string   `json:"properties"`
	Methods    map[string][]string `json:"methods"`
	Signals    map[string][]string `json:"signals"`
	// Notify maps a property to the signal emitted when it changes. Properties
	// tagged nonotify have no entry.
	Notify map[string]string `json:"notify"`

	propertyFieldIndex map[string][]int
	propertyType       map[string]reflect.Type
	propertyMethods    map[string]accessorMethods
	signalFieldIndex   map[string][]int
}

type accessorMethods struct {
	Getter string
	Setter string
}

var (
	knownTypeInfoMu sync.Mutex
	knownTypeInfo   = make(map[reflect.Type]*TypeInfo)
)

var qobjInterfaceType = reflect.TypeOf((*QObject)(nil)).Elem()

func typeIsQObject(t reflect.Type) bool {
	return reflect.PtrTo(t).Implements(qobjInterfaceType)
}

// HasProperty returns true if name is a declared (non-dynamic) property.
func (t *TypeInfo) HasProperty(name string) bool {
	_, ok := t.Properties[name]
	return ok
}

// PropertyType returns the Go type of a declared property, or nil.
func (t *TypeInfo) PropertyType(name string) reflect.Type {
	return t.propertyType[name]
}

// NotifySignal returns the name of the change signal for a declared
// property, if it has one.
func (t *TypeInfo) NotifySignal(property string) (string, bool) {
	s, ok := t.Notify[property]
	return s, ok
}

// HasSignal returns true if the type declares the named signal. The
// destroyed signal exists on every object.
func (t *TypeInfo) HasSignal(name string) bool {
	if name == DestroyedSignal {
		return true
	}
	_, ok := t.Signals[name]
	return ok
}

// IsMethodProperty returns true if the property is accessed through a
// getter/setter method pair instead of a struct field.
func (t *TypeInfo) IsMethodProperty(name string) bool {
	_, ok := t.propertyMethods[name]
	return ok
}

type fieldTag struct {
	ignore   bool
	nonotify bool
	params   []string
}

func parseFieldTag(field reflect.StructField) fieldTag {
	tag, ok := field.Tag.Lookup("qobject")
	if !ok {
		return fieldTag{}
	}
	if tag == "-" {
		return fieldTag{ignore: true}
	}
	var ft fieldTag
	if field.Type.Kind() == reflect.Func {
		if tag != "" {
			ft.params = strings.Split(tag, ",")
		}
		return ft
	}
	for _, opt := range strings.Split(tag, ",") {
		if strings.TrimSpace(opt) == "nonotify" {
			ft.nonotify = true
		}
	}
	return ft
}

func typeShouldIgnoreField(field reflect.StructField) bool {
	if field.PkgPath != "" && !field.Anonymous {
		// Unexported field
		return true
	} else if parseFieldTag(field).ignore {
		return true
	} else if field.Type.Kind() != reflect.Func && field.Tag.Get("json") == "-" {
		// Non-signal property that isn't encoded by JSON
		return true
	} else if field.Name == "QObject" {
		return true
	}
	return false
}

func typeShouldIgnoreMethod(method reflect.Method) bool {
	if method.PkgPath != "" {
		return true
	}
	_, blacklisted := methodBlacklist[method.Name]
	return blacklisted
}

func lowerFirst(name string) string {
	if len(name) > 0 {
		name = strings.ToLower(string(name[0])) + name[1:]
	}
	return name
}

func typeMethodName(method reflect.Method) string {
	return lowerFirst(method.Name)
}

// Equivalent to Value.MethodByName, but handling typeMethodName rules
func typeMethodValueByName(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if typeShouldIgnoreMethod(method) {
			continue
		}
		if method.Name == name || typeMethodName(method) == name {
			return v.Method(i)
		}
	}
	return reflect.Value{}
}

func typeFieldName(field reflect.StructField) string {
	name := lowerFirst(field.Name)
	if field.Type.Kind() != reflect.Func {
		if tag := field.Tag.Get("json"); len(tag) > 0 {
			tags := strings.Split(tag, ",")
			if len(tags) > 0 && len(tags[0]) > 0 {
				name = tags[0]
			}
		}
	}
	return name
}

// ChangedSignalName returns the name of the notify signal generated for a
// property.
func ChangedSignalName(property string) string {
	return property + "Changed"
}

func typeInfoTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return typeInfoTypeName(t.Elem())
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "double"
	case reflect.String:
		return "string"
	case reflect.Array, reflect.Slice:
		return "array"
	case reflect.Map:
		return "map"
	case reflect.Struct:
		if typeIsQObject(t) {
			return "object"
		}
		return "map"
	default:
		return "var"
	}
}

// TypeInfoOf returns the parsed type information of a QObject type, parsing
// it on first use.
func TypeInfoOf(t reflect.Type) (*TypeInfo, error) {
	knownTypeInfoMu.Lock()
	defer knownTypeInfoMu.Unlock()
	return parseType(t)
}

func parseType(t reflect.Type) (*TypeInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if typeInfo, exists := knownTypeInfo[t]; exists {
		return typeInfo, nil
	}

	if t.Kind() != reflect.Struct || !typeIsQObject(t) {
		return nil, fmt.Errorf("type '%s' is not a QObject; it must embed QObject", t.Name())
	}

	typeInfo := &TypeInfo{
		Name:               t.Name(),
		Properties:         make(map[string]string),
		Methods:            make(map[string][]string),
		Signals:            make(map[string][]string),
		Notify:             make(map[string]string),
		propertyFieldIndex: make(map[string][]int),
		propertyType:       make(map[string]reflect.Type),
		propertyMethods:    make(map[string]accessorMethods),
		signalFieldIndex:   make(map[string][]int),
	}

	// Add properties and signals from fields, including those from anonymous
	// structs
	nonotify := make(map[string]bool)
	if err := typeFieldsToTypeInfo(typeInfo, t, []int{}, nonotify); err != nil {
		return nil, err
	}

	ptrType := reflect.PtrTo(t)
	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		if typeShouldIgnoreMethod(method) {
			continue
		}
		methodType := method.Type

		var paramTypes []string
		for p := 1; p < methodType.NumIn(); p++ {
			paramTypes = append(paramTypes, typeInfoTypeName(methodType.In(p)))
		}
		typeInfo.Methods[typeMethodName(method)] = paramTypes
	}

	typeMethodsToProperties(typeInfo, ptrType)

	// Create change signals for all properties, adopting explicit ones if they exist
	for name := range typeInfo.Properties {
		if nonotify[name] {
			continue
		}
		signalName := ChangedSignalName(name)
		if params, exists := typeInfo.Signals[signalName]; exists {
			if len(params) > 1 {
				return nil, fmt.Errorf("signal '%s' is a property change signal, but has %d parameters; change signals take at most the new value", signalName, len(params))
			}
		} else {
			typeInfo.Signals[signalName] = []string{}
		}
		typeInfo.Notify[name] = signalName
	}

	knownTypeInfo[t] = typeInfo
	return typeInfo, nil
}

func typeFieldsToTypeInfo(typeInfo *TypeInfo, t reflect.Type, index []int, nonotify map[string]bool) error {
	var anonStructs []reflect.StructField

	numFields := t.NumField()
	for i := 0; i < numFields; i++ {
		field := t.Field(i)
		if typeShouldIgnoreField(field) {
			continue
		} else if field.Anonymous {
			at := field.Type
			if at.Kind() == reflect.Ptr {
				// Embedded pointers may be nil; their fields are not addressable
				continue
			}
			if at.Kind() == reflect.Struct {
				// Recurse into these at the end for breadth-first
				anonStructs = append(anonStructs, field)
			}
			continue
		}
		name := typeFieldName(field)
		fieldIndex := append(append([]int{}, index...), field.Index...)
		tag := parseFieldTag(field)

		// Signals are represented by func fields, optionally with a qobject tag
		// naming each parameter.
		if field.Type.Kind() == reflect.Func {
			if _, exists := typeInfo.Signals[name]; exists {
				continue
			}
			if len(tag.params) > 0 && len(tag.params) != field.Type.NumIn() {
				return fmt.Errorf("signal '%s' has %d parameters, but names %d", name, field.Type.NumIn(), len(tag.params))
			}
			var params []string
			for p := 0; p < field.Type.NumIn(); p++ {
				param := typeInfoTypeName(field.Type.In(p))
				if len(tag.params) > 0 {
					param += " " + tag.params[p]
				}
				params = append(params, param)
			}
			typeInfo.Signals[name] = params
			typeInfo.signalFieldIndex[name] = fieldIndex
		} else {
			if _, exists := typeInfo.Properties[name]; exists {
				// Shallower fields shadow embedded ones
				continue
			}
			typeInfo.Properties[name] = typeInfoTypeName(field.Type)
			typeInfo.propertyFieldIndex[name] = fieldIndex
			typeInfo.propertyType[name] = field.Type
			if tag.nonotify {
				nonotify[name] = true
			}
		}
	}

	for _, ast := range anonStructs {
		if err := typeFieldsToTypeInfo(typeInfo, ast.Type, append(append([]int{}, index...), ast.Index...), nonotify); err != nil {
			return err
		}
	}
	return nil
}

// typeMethodsToProperties adds a property for every Foo()/SetFoo(v) method
// pair that does not collide with a field property.
func typeMethodsToProperties(typeInfo *TypeInfo, ptrType reflect.Type) {
	for i := 0; i < ptrType.NumMethod(); i++ {
		setter := ptrType.Method(i)
		if typeShouldIgnoreMethod(setter) || !strings.HasPrefix(setter.Name, "Set") || len(setter.Name) < 4 {
			continue
		}
		// receiver + value
		if setter.Type.NumIn() != 2 || setter.Type.NumOut() > 1 {
			continue
		}
		getterName := setter.Name[3:]
		getter, ok := ptrType.MethodByName(getterName)
		if !ok || typeShouldIgnoreMethod(getter) || getter.Type.NumIn() != 1 || getter.Type.NumOut() != 1 {
			continue
		}
		if getter.Type.Out(0) != setter.Type.In(1) {
			continue
		}
		name := lowerFirst(getterName)
		if _, exists := typeInfo.Properties[name]; exists {
			continue
		}
		typeInfo.Properties[name] = typeInfoTypeName(getter.Type.Out(0))
		typeInfo.propertyType[name] = getter.Type.Out(0)
		typeInfo.propertyMethods[name] = accessorMethods{Getter: getterName, Setter: setter.Name}
	}
}

func (t *TypeInfo) String() string {
	str, _ := json.MarshalIndent(t, "", "  ")
	return string(str)
}
