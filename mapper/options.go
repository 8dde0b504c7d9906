package qmapper

import (
	"log/slog"

	qbinding "github.com/CrimsonAS/qbind/binding"
)

// Option configures a DataMapper.
type Option func(*DataMapper)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *DataMapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithErrorHandler sets a function called with edits that could not be
// stored in the model, and with failures to read a mapped property.
func WithErrorHandler(fn func(error)) Option {
	return func(m *DataMapper) {
		m.onError = fn
	}
}

// WithManualCommit starts the mapper with AutoCommit disabled.
func WithManualCommit() Option {
	return func(m *DataMapper) {
		m.AutoCommit = false
	}
}

type mappingOptions struct {
	accessor     qbinding.Accessor
	signal       string
	fromModel    func(data interface{}) interface{}
	fromProperty func(value, data interface{}) interface{}
}

// MappingOption configures one mapping.
type MappingOption func(*mappingOptions)

// Via reads and writes the mapped property through accessor.
func Via(accessor qbinding.Accessor) MappingOption {
	return func(o *mappingOptions) {
		o.accessor = accessor
	}
}

// NotifyOn watches the mapped property with a signal of the target, for
// properties without a change signal of their own.
func NotifyOn(signal string) MappingOption {
	return func(o *mappingOptions) {
		o.signal = signal
	}
}

// FromModel converts the model data of the role into the value written to
// the property.
func FromModel(fn func(data interface{}) interface{}) MappingOption {
	return func(o *mappingOptions) {
		o.fromModel = fn
	}
}

// FromProperty converts the property value into the data stored in the
// model. data is the data the model holds before the edit, for roles that
// hold more than one field.
func FromProperty(fn func(value, data interface{}) interface{}) MappingOption {
	return func(o *mappingOptions) {
		o.fromProperty = fn
	}
}
