package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableNamespace means the namespace itself could not be walked.
	ErrUnreadableNamespace = errors.New("unreadable namespace")
	// ErrMissingDependency means a class needs another class the catalog lacks.
	ErrMissingDependency = errors.New("missing dependency")
)

// ScanError is returned by Scanner.Scan.
type ScanError struct {
	Namespace string
	Class     string
	Err       error
}

func (e *ScanError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("scan %q: class %s: %v", e.Namespace, e.Class, e.Err)
	}
	return fmt.Sprintf("scan %q: %v", e.Namespace, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
