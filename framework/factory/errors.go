package factory

import (
	"errors"
	"fmt"
)

var errNilInstance = errors.New("constructor returned nil")

// NoResolvableConstructorError is returned when no constructor of a class
// can be satisfied.
type NoResolvableConstructorError struct {
	Class      string
	Candidates int
}

func (e *NoResolvableConstructorError) Error() string {
	return fmt.Sprintf("no resolvable constructor found for %s (%d candidates)", e.Class, e.Candidates)
}

// UnsupportedTypeError is returned for a parameter that is neither a
// registered component nor a convertible shape.
type UnsupportedTypeError struct {
	Class string
	Index int
	Type  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("class %s: unsupported parameter type %s at position %d", e.Class, e.Type, e.Index)
}

// TypeMismatchError is returned when the component registered under a
// parameter's type key cannot be assigned to the parameter.
type TypeMismatchError struct {
	Class string
	Index int
	Key   string
	Want  string
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("class %s: parameter %d wants %s but component %q is %s", e.Class, e.Index, e.Want, e.Key, e.Got)
}

// ConstructorError wraps a failure returned by a constructor.
type ConstructorError struct {
	Class string
	Err   error
}

func (e *ConstructorError) Error() string {
	return fmt.Sprintf("constructor of %s failed: %v", e.Class, e.Err)
}

func (e *ConstructorError) Unwrap() error {
	return e.Err
}
