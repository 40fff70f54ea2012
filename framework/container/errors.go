package container

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is wrapped when an operation names a key that was never registered.
var ErrUnknownKey = errors.New("no component registered under key")

// ErrNilInstance is wrapped when nil, or a nil pointer, map, slice, func or
// channel, is registered.
var ErrNilInstance = errors.New("component instance is nil")

// DuplicateKeyError is returned when a key or alias is registered twice.
type DuplicateKeyError struct {
	Key string
	// Existing describes what already holds the key.
	Existing string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate component key %q (already used by %s)", e.Key, e.Existing)
}
