package component

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a class or opt-in that needs a module which is
// absent or not initialized.
type ConfigurationError struct {
	// Module names the missing module.
	Module string
	// PropertyPrefix is where the module reads its configuration.
	PropertyPrefix string
	// Class is the class that needed it, if any.
	Class string
	// ModuleFound is true when the module is present but not initialized.
	ModuleFound bool
	// Detail replaces the generated hint when set.
	Detail string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s required but not available", e.Module)
	switch {
	case e.Detail != "":
		fmt.Fprintf(&b, ": %s", e.Detail)
	case e.ModuleFound:
		fmt.Fprintf(&b, ": %s found but initialization failed; check the %s* properties", e.Module, e.PropertyPrefix)
	default:
		fmt.Fprintf(&b, ": register a %s and configure it with %s* properties", e.Module, e.PropertyPrefix)
	}
	if e.Class != "" {
		fmt.Fprintf(&b, " (required by %s)", e.Class)
	}
	return b.String()
}
