package scan

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/container"
)

// ── Catalog ───────────────────────────────────────────────────────────────────

// Catalog is the ordered set of classes an application makes available
// for scanning. It replaces walking a classpath: classes are added
// explicitly by the hosting application.
//
//	catalog := scan.NewCatalog(users.Classes()...)
//	catalog.Add(component.Of[Clock](component.TagComponent))
type Catalog struct {
	mu      sync.RWMutex
	classes []*component.Class
}

// NewCatalog creates a catalog holding classes in the given order.
func NewCatalog(classes ...*component.Class) *Catalog {
	c := &Catalog{}
	c.Add(classes...)
	return c
}

// Add appends classes. Nil entries are ignored.
func (c *Catalog) Add(classes ...*component.Class) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range classes {
		if cl != nil {
			c.classes = append(c.classes, cl)
		}
	}
	return c
}

// Classes returns a copy of every class in walk order.
func (c *Catalog) Classes() []*component.Class {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*component.Class(nil), c.classes...)
}

// Lookup finds a class by type key or explicit name.
func (c *Catalog) Lookup(key string) (*component.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cl := range c.classes {
		if cl.Name == key || (cl.Type != nil && container.TypeKeyOf(cl.Type) == key) {
			return cl, true
		}
	}
	return nil, false
}

// ── Scanner ───────────────────────────────────────────────────────────────────

// Scanner finds the loadable classes under a namespace.
type Scanner struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewScanner creates a scanner over catalog. A nil logger discards output.
func NewScanner(catalog *Catalog, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{catalog: catalog, logger: logger.Named("scan")}
}

// Scan returns every class whose namespace is namespace or lies below it,
// in catalog order. The empty namespace selects every class.
//
// A malformed namespace fails with ErrUnreadableNamespace. A class that
// does not load fails with ErrMissingDependency when something it requires,
// directly or transitively, is absent from the catalog.
func (s *Scanner) Scan(namespace string) ([]*component.Class, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, &ScanError{Namespace: namespace, Err: fmt.Errorf("%w: %v", ErrUnreadableNamespace, err)}
	}

	var found []*component.Class
	for _, cl := range s.catalog.Classes() {
		if !cl.InNamespace(namespace) {
			continue
		}
		if err := cl.Validate(); err != nil {
			return nil, &ScanError{Namespace: namespace, Class: classLabel(cl), Err: err}
		}
		if err := s.load(cl, map[*component.Class]bool{}); err != nil {
			return nil, &ScanError{Namespace: namespace, Class: cl.QualifiedName(), Err: err}
		}
		s.logger.Debug("found class",
			zap.String("class", cl.QualifiedName()),
			zap.Strings("tags", tagStrings(cl.Tags)),
		)
		found = append(found, cl)
	}

	if len(found) == 0 {
		s.logger.Warn("no classes found", zap.String("namespace", namespace))
	}
	return found, nil
}

// load follows Requires transitively.
func (s *Scanner) load(cl *component.Class, seen map[*component.Class]bool) error {
	if seen[cl] {
		return nil
	}
	seen[cl] = true
	for _, key := range cl.Requires {
		dep, ok := s.catalog.Lookup(key)
		if !ok {
			return fmt.Errorf("%w: %s requires %q", ErrMissingDependency, cl.QualifiedName(), key)
		}
		if err := s.load(dep, seen); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNamespace checks namespace syntax: slash-separated, non-empty
// segments, no whitespace. The empty namespace is valid.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return nil
	}
	if strings.IndexFunc(namespace, unicode.IsSpace) >= 0 {
		return fmt.Errorf("namespace %q contains whitespace", namespace)
	}
	for _, seg := range strings.Split(namespace, "/") {
		if seg == "" {
			return fmt.Errorf("namespace %q has an empty segment", namespace)
		}
	}
	return nil
}

func classLabel(cl *component.Class) string {
	if cl.Type == nil {
		return cl.Namespace + ".<nil>"
	}
	return cl.Namespace + "." + cl.Type.String()
}

func tagStrings(tags []component.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
