package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMember is wrapped when an enum literal matches no member name.
	ErrUnknownMember = errors.New("no enum member with that name")
	// ErrCharLength is wrapped when a character literal is not exactly one character.
	ErrCharLength = errors.New("character value must be exactly one character")
)

// ConversionError is returned when a literal cannot be parsed into its target shape.
type ConversionError struct {
	Literal string
	Shape   string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Literal, e.Shape, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// UnsupportedConversionError is returned for target shapes outside the fixed set.
type UnsupportedConversionError struct {
	Shape string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("unsupported conversion to type %s", e.Shape)
}
