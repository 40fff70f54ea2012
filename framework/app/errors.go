package app

import "fmt"

// InitializationError is the single error Run returns. Phase names the
// startup step that failed; Err is the underlying cause.
type InitializationError struct {
	App   string
	RunID string
	Phase string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("app %s: initialization failed during %s: %v", e.App, e.Phase, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}
