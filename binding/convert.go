package qbinding

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"cogentcore.org/core/base/reflectx"
	"github.com/ygrebnov/errorc"

	qobject "github.com/CrimsonAS/qbind/object"
)

// Converter transforms a value on its way between endpoints. Errors are
// reported as ErrTypeConversion for the endpoint being written.
type Converter func(value interface{}) (interface{}, error)

// Convert adapts a typed function to a Converter. The input value is
// converted to T first, so Convert(strconv.Itoa) accepts any integer or
// numeric string.
func Convert[T, U any](fn func(T) U) Converter {
	inType := reflect.TypeOf((*T)(nil)).Elem()
	return func(value interface{}) (interface{}, error) {
		var in T
		if value != nil {
			v, err := qobject.ConvertValue(value, inType)
			if err != nil {
				return nil, err
			}
			in = v.Interface().(T)
		}
		return fn(in), nil
	}
}

// Stringify converts any value to its text. nil becomes "" and floats use
// the shortest exact representation.
func Stringify(value interface{}) (interface{}, error) {
	return stringify(value), nil
}

// Float converts numbers, numeric strings and booleans to float64.
func Float(value interface{}) (interface{}, error) {
	f, err := reflectx.ToFloat(value)
	if err != nil {
		return nil, conversionError("float64", value, err)
	}
	return f, nil
}

// Int converts numbers, numeric strings and booleans to int, truncating.
func Int(value interface{}) (interface{}, error) {
	i, err := reflectx.ToInt(value)
	if err != nil {
		return nil, conversionError("int", value, err)
	}
	return int(i), nil
}

// Bool converts values to bool; numbers are true when non-zero.
func Bool(value interface{}) (interface{}, error) {
	b, err := reflectx.ToBool(value)
	if err != nil {
		return nil, conversionError("bool", value, err)
	}
	return b, nil
}

func conversionError(expected string, value interface{}, err error) error {
	return errorc.With(ErrTypeConversion,
		errorc.Field("expected", expected),
		errorc.Field("provided", fmt.Sprintf("%T", value)),
		errorc.Field(fieldCause, err.Error()),
	)
}

func applyConverter(convert Converter, value interface{}) (interface{}, error) {
	if convert == nil {
		return value, nil
	}
	return convert(value)
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return reflectx.ToString(value)
}

// Relative tolerance when comparing numbers
const floatTolerance = 1e-9

// valuesEqual compares deeply, except that numbers of any kind compare by
// value within floatTolerance.
func valuesEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	fa, aok := numeric(a)
	fb, bok := numeric(b)
	if !aok || !bok {
		return false
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.IsNaN(fa) && math.IsNaN(fb)
	}
	if fa == fb {
		return true
	}
	scale := math.Max(math.Abs(fa), math.Abs(fb))
	return math.Abs(fa-fb) <= floatTolerance*scale
}

func numeric(value interface{}) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
