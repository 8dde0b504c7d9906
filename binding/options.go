package qbinding

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxDepth bounds nested notification delivery. Cycles are broken
	// by each binding's own guard; the bound only stops cycles between
	// bindings that no single guard sees, so it sits far above the depth of
	// any realistic acyclic chain.
	DefaultMaxDepth = 1024
	// DefaultEvalTimeout bounds one evaluation of an expression.
	DefaultEvalTimeout = time.Second
)

// Option configures a Bindings registry.
type Option func(*Bindings)

// WithLogger sets the logger for propagation failures and diagnostics. The
// default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Bindings) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithErrorHandler sets a function called with every error isolated during
// propagation, after it is logged. Suppressed re-entrant propagations are
// passed as ErrCycleGuardTripped.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Bindings) {
		r.onError = fn
	}
}

// WithMaxDepth bounds how deeply notifications may nest before delivery is
// suppressed, for cycles that no single binding's guard can see. Deeper
// delivery is dropped and reported as ErrCycleGuardTripped, so depth must
// exceed the longest acyclic chain of bindings.
func WithMaxDepth(depth int) Option {
	return func(r *Bindings) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithEvalTimeout bounds the time one expression evaluation may take.
func WithEvalTimeout(d time.Duration) Option {
	return func(r *Bindings) {
		if d > 0 {
			r.evalTimeout = d
		}
	}
}

type endpointOptions struct {
	accessor       Accessor
	signal         string
	convert        Converter
	toNormalized   Converter
	fromNormalized Converter
}

// EndpointOption configures one endpoint of a binding.
type EndpointOption func(*endpointOptions)

func endpointOptionsOf(opts []EndpointOption) endpointOptions {
	var o endpointOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Via overrides how the property is accessed.
func Via(accessor Accessor) EndpointOption {
	return func(o *endpointOptions) {
		o.accessor = accessor
	}
}

// NotifyOn names a signal announcing changes of a property that has no
// change signal of its own.
func NotifyOn(signal string) EndpointOption {
	return func(o *endpointOptions) {
		o.signal = signal
	}
}

// WithConverter converts values written to a target, or read from an
// expression variable.
func WithConverter(convert Converter) EndpointOption {
	return func(o *endpointOptions) {
		o.convert = convert
	}
}

// ToNormalized converts a group member's value to the group's shared value.
func ToNormalized(convert Converter) EndpointOption {
	return func(o *endpointOptions) {
		o.toNormalized = convert
	}
}

// FromNormalized converts the group's shared value for a member.
func FromNormalized(convert Converter) EndpointOption {
	return func(o *endpointOptions) {
		o.fromNormalized = convert
	}
}

// GroupOption configures a GroupBinding.
type GroupOption func(*GroupBinding)

// WithInitialValue settles a group before its first member is added, so
// that every member, including the first, is set to value.
func WithInitialValue(value interface{}) GroupOption {
	return func(g *GroupBinding) {
		g.value = value
		g.settled = true
	}
}

// ExpressionOption configures an ExpressionBinding.
type ExpressionOption func(*ExpressionBinding)

// WithResultConverter converts the result of the expression before it is
// written to the target.
func WithResultConverter(convert Converter) ExpressionOption {
	return func(e *ExpressionBinding) {
		e.convert = convert
	}
}

// WithTargetAccessor overrides how the expression's target is accessed.
func WithTargetAccessor(accessor Accessor) ExpressionOption {
	return func(e *ExpressionBinding) {
		e.targetAccessor = accessor
	}
}
