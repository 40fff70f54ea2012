package component

// Root describes the hosting application: where to scan, which property
// files to load, and which optional processing it opts into.
type Root struct {
	// Name scopes per-user state such as the default persistence store.
	Name string `validate:"required"`

	// Namespace is the scan root. Empty scans the whole catalog.
	Namespace string

	// ConfigDir is the directory property files are read from.
	ConfigDir string

	// PropertyFiles are loaded in order; later files override earlier ones.
	// Defaults to application.properties.
	PropertyFiles []string `validate:"dive,required"`

	// Extended opts into component initializers.
	Extended *ExtendedProcessing

	// Persistence opts into the persistence module.
	Persistence *PersistenceOptIn
}

// ExtendedProcessing is the opt-in for component initializers. When
// Namespaces is non-empty, only classes under one of them are offered to
// the initializers.
type ExtendedProcessing struct {
	Namespaces []string `validate:"dive,required"`
}

// PersistenceOptIn asks a persistence module to start and manage the
// entity classes under EntityNamespace.
type PersistenceOptIn struct {
	EntityNamespace string
}

// DefaultPropertyFile is used when Root.PropertyFiles is empty.
const DefaultPropertyFile = "application.properties"

// Files returns PropertyFiles or the default list.
func (r Root) Files() []string {
	if len(r.PropertyFiles) == 0 {
		return []string{DefaultPropertyFile}
	}
	return r.PropertyFiles
}

// Covers reports whether c should be offered to component initializers.
func (e *ExtendedProcessing) Covers(c *Class) bool {
	if e == nil {
		return false
	}
	if len(e.Namespaces) == 0 {
		return true
	}
	for _, ns := range e.Namespaces {
		if c.InNamespace(ns) {
			return true
		}
	}
	return false
}
