package shared

import (
	"fmt"
	"reflect"
	"strings"
)

// Raised when a property is reached through the natural name that its
// alias replaced.
type AliasConflictError struct {
	// The type declaring the property.
	Type reflect.Type

	// The natural name of the property, as used in the document.
	Property string

	// The alias that must be used instead.
	Alias string
}

func (e AliasConflictError) Error() string {
	return fmt.Sprintf("property %q of %s has alias %q, key %q is not accepted", e.Property, TypeName(e.Type), e.Alias, e.Property)
}

var _ error = AliasConflictError{} //nolint:exhaustruct

// Raised when a construction strategy, instantiator, converter, selector or
// predicate cannot be instantiated.
type StrategyInstantiationError struct {
	// A human-readable description of the strategy, e.g. its catalog name.
	Strategy string

	// What the strategy was needed for, e.g. "constructor".
	Role string

	// The type that requested the strategy.
	Target reflect.Type

	// The property that requested the strategy, if any.
	Property string

	// Why instantiation failed.
	Reason string

	// The underlying error, if any.
	Wrapped error
}

func (e StrategyInstantiationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "cannot instantiate %s %s", e.Role, e.Strategy)
	if e.Target != nil {
		fmt.Fprintf(&buf, " requested by %s", TypeName(e.Target))
		if e.Property != "" {
			fmt.Fprintf(&buf, ".%s", e.Property)
		}
	}
	fmt.Fprintf(&buf, ": %s", e.Reason)
	if e.Wrapped != nil {
		fmt.Fprintf(&buf, "\n\t * %s", e.Wrapped)
	}
	return buf.String()
}

func (e StrategyInstantiationError) Unwrap() error {
	return e.Wrapped
}

var _ error = StrategyInstantiationError{} //nolint:exhaustruct

// Raised when polymorphic resolution finds no viable concrete type.
type NoApplicableSubtypeError struct {
	// The declared (usually interface) type.
	Declared reflect.Type

	// The candidates that were attempted.
	Candidates []reflect.Type

	// For each rejected candidate, why it was rejected.
	Failures []error
}

func (e NoApplicableSubtypeError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, candidate := range e.Candidates {
		names[i] = TypeName(candidate)
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "no applicable subtype of %s among [%s]", TypeName(e.Declared), strings.Join(names, ", "))
	for _, failure := range e.Failures {
		fmt.Fprintf(&buf, "\n\t * %s", failure)
	}
	return buf.String()
}

func (e NoApplicableSubtypeError) Unwrap() []error {
	return e.Failures
}

var _ error = NoApplicableSubtypeError{} //nolint:exhaustruct

// The direction of a conversion.
type Direction string

const (
	ToModel Direction = "load"
	ToYAML  Direction = "dump"
)

// Raised when a converter fails in either direction.
type ConversionError struct {
	Converter string
	Type      reflect.Type
	Property  string
	Direction Direction
	Wrapped   error
}

func (e ConversionError) Error() string {
	return fmt.Sprintf("converter %s failed to %s %s.%s\n\t * %s", e.Converter, e.Direction, TypeName(e.Type), e.Property, e.Wrapped)
}

func (e ConversionError) Unwrap() error {
	return e.Wrapped
}

var _ error = ConversionError{} //nolint:exhaustruct

// Raised when a value cannot be written into its target.
type PropertyAssignmentError struct {
	Type     reflect.Type
	Property string
	Expected reflect.Type
	Actual   reflect.Type
	Wrapped  error
}

func (e PropertyAssignmentError) Error() string {
	msg := fmt.Sprintf("cannot assign %s to %s.%s, expected %s", TypeName(e.Actual), TypeName(e.Type), e.Property, TypeName(e.Expected))
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s\n\t * %s", msg, e.Wrapped)
	}
	return msg
}

func (e PropertyAssignmentError) Unwrap() error {
	return e.Wrapped
}

var _ error = PropertyAssignmentError{} //nolint:exhaustruct

// Raised when an any-setter does not have the shape `(name string, value T)`.
type AnySetterArityError struct {
	Type   reflect.Type
	Member string
	Reason string
}

func (e AnySetterArityError) Error() string {
	return fmt.Sprintf("invalid any-setter %s on %s: %s", e.Member, TypeName(e.Type), e.Reason)
}

var _ error = AnySetterArityError{} //nolint:exhaustruct

// Raised when an any-getter does not hold a map.
type AnyGetterTypeError struct {
	Type     reflect.Type
	Property string
	Actual   reflect.Type
}

func (e AnyGetterTypeError) Error() string {
	return fmt.Sprintf("any-getter %s on %s must be a map with string keys, got %s", e.Property, TypeName(e.Type), e.Actual)
}

var _ error = AnyGetterTypeError{} //nolint:exhaustruct

// Raised when a mapping key matches no property and nothing collects it.
type UnknownPropertyError struct {
	Type reflect.Type
	Name string
}

func (e UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q for %s", e.Name, TypeName(e.Type))
}

var _ error = UnknownPropertyError{} //nolint:exhaustruct
