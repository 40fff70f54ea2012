package inject

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexportedField is wrapped when a binding targets an unexported field.
	ErrUnexportedField = errors.New("field is not exported")
	// ErrNoPersistenceService is returned when a persisted value is needed
	// and no persistence service is registered.
	ErrNoPersistenceService = errors.New("no persistence service registered")
	// ErrMethodNotFound is wrapped when a declared init or destroy method does not exist.
	ErrMethodNotFound = errors.New("method not found")
	// ErrEmbeddedPointer is wrapped when an embedded struct pointer carries
	// bound fields. Embed such structs by value.
	ErrEmbeddedPointer = errors.New("embedded pointer has bound fields")
)

// UnresolvedFieldError is returned when an injected field names a key
// that is not registered.
type UnresolvedFieldError struct {
	Owner string
	Field string
	Key   string
}

func (e *UnresolvedFieldError) Error() string {
	return fmt.Sprintf("%s.%s: missing component for key %q", e.Owner, e.Field, e.Key)
}

// TypeMismatchError is returned when the component under a field's key
// cannot be assigned to the field.
type TypeMismatchError struct {
	Owner string
	Field string
	Key   string
	Want  string
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s.%s: component %q is %s, field wants %s", e.Owner, e.Field, e.Key, e.Got, e.Want)
}

// MissingPropertyError is returned when a property field has neither a
// Property Table entry nor a default.
type MissingPropertyError struct {
	Owner string
	Field string
	Key   string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("%s.%s: property %q not found and no default value specified", e.Owner, e.Field, e.Key)
}

// UnresolvedParameterError is returned when an init method parameter is
// not a registered component.
type UnresolvedParameterError struct {
	Owner  string
	Method string
	Index  int
	Key    string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("%s.%s: cannot resolve parameter %d (%s)", e.Owner, e.Method, e.Index, e.Key)
}

// InitMethodError wraps the error returned by an init method.
type InitMethodError struct {
	Owner  string
	Method string
	Err    error
}

func (e *InitMethodError) Error() string {
	return fmt.Sprintf("%s.%s: init method failed: %v", e.Owner, e.Method, e.Err)
}

func (e *InitMethodError) Unwrap() error {
	return e.Err
}

// FieldError wraps a conversion or lookup failure on a bound field.
type FieldError struct {
	Owner string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Owner, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
