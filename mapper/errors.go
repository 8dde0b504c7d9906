package qmapper

import (
	"strconv"

	"github.com/ygrebnov/errorc"
)

var namespace = errorc.Namespace("qmapper")

var (
	// ErrNoModel is returned when an operation needs a model and none is set.
	ErrNoModel = namespace.NewError("no model is set")
	// ErrRow is returned for a row outside of the model.
	ErrRow = namespace.NewError("row is out of range")
	// ErrMapping wraps failures to move a value between a model role and a
	// mapped property.
	ErrMapping = namespace.NewError("mapping failed")
)

func mappingError(m *mapping, row int, cause error) error {
	return errorc.With(ErrMapping,
		errorc.Field("target", m.endpoint.String()),
		errorc.Field("role", m.role),
		errorc.Field("row", strconv.Itoa(row)),
		errorc.Field("cause", cause.Error()),
	)
}

func errorRow(row, count int) error {
	return errorc.With(ErrRow,
		errorc.Field("row", strconv.Itoa(row)),
		errorc.Field("rows", strconv.Itoa(count)),
	)
}
