package qbinding

import (
	"errors"

	"github.com/ygrebnov/errorc"

	qobject "github.com/CrimsonAS/qbind/object"
)

var namespace = errorc.Namespace("qbinding")

// Sentinel errors. Errors returned by this package wrap one of these with
// structured fields naming the object and property involved; use errors.Is
// to match.
var (
	// ErrResolution is returned at bind time when a property cannot be
	// resolved on an object, or a variable is not part of an expression.
	ErrResolution = namespace.NewError("property cannot be resolved")
	// ErrAccess is returned when an object has been destroyed or a property
	// cannot be read or written.
	ErrAccess = namespace.NewError("property is not accessible")
	// ErrTypeConversion is returned when a converter or accessor rejects a
	// value.
	ErrTypeConversion = namespace.NewError("value cannot be converted")
	// ErrCycleGuardTripped is never returned to callers. It is passed to the
	// error handler and counted in Stats when a re-entrant propagation was
	// suppressed.
	ErrCycleGuardTripped = namespace.NewError("re-entrant propagation suppressed")
	// ErrExpression is returned for malformed expression templates, and
	// reported when an expression fails to evaluate.
	ErrExpression = namespace.NewError("expression failed")
	// ErrClosed is returned when binding on a closed registry.
	ErrClosed = namespace.NewError("bindings are closed")
)

const (
	fieldObjectType = "object_type"
	fieldProperty   = "property"
	fieldVariable   = "variable"
	fieldCause      = "cause"
)

func endpointError(sentinel error, ep *Endpoint, cause error) error {
	if cause == nil {
		return errorc.With(sentinel,
			errorc.Field(fieldObjectType, ep.typeName()),
			errorc.Field(fieldProperty, ep.property),
		)
	}
	return errorc.With(sentinel,
		errorc.Field(fieldObjectType, ep.typeName()),
		errorc.Field(fieldProperty, ep.property),
		errorc.Field(fieldCause, cause.Error()),
	)
}

// classify maps an error from the object model onto this package's
// taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errorsIsAny(err, ErrAccess, ErrTypeConversion, ErrResolution):
		return err
	case errors.Is(err, qobject.ErrConversion):
		return ErrTypeConversion
	default:
		return ErrAccess
	}
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
