package component

import (
	"sync"

	"github.com/km-arc/go-ioc/framework/container"
)

// Descriptor is the resolved key and tier of a component class.
type Descriptor struct {
	Key  string
	Tier container.Tier
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// Resolver decides whether a class is a component and resolves its key and
// tier. It owns the stereotype table: tag → the tags that tag implies.
// Implication is followed one level only.
type Resolver struct {
	mu          sync.RWMutex
	stereotypes map[Tag][]Tag
}

// NewResolver creates a Resolver with the three tier stereotypes defined.
func NewResolver() *Resolver {
	return &Resolver{stereotypes: map[Tag][]Tag{
		TagDataAccess:    {TagComponent},
		TagBusinessLogic: {TagComponent},
		TagPresentation:  {TagComponent},
	}}
}

// DefineStereotype declares tag as implying metaTags. A stereotype that
// implies TagComponent makes every class carrying it a component.
//
//	r.DefineStereotype("repository", component.TagComponent)
func (r *Resolver) DefineStereotype(tag Tag, metaTags ...Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stereotypes[tag] = append([]Tag(nil), metaTags...)
}

// IsComponent reports whether c carries TagComponent directly or carries a
// stereotype that implies it.
func (r *Resolver) IsComponent(c *Class) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range c.Tags {
		if t == TagComponent {
			return true
		}
		for _, meta := range r.stereotypes[t] {
			if meta == TagComponent {
				return true
			}
		}
	}
	return false
}

// Key is the explicit name if set, else the type key of the class.
func (r *Resolver) Key(c *Class) string {
	if c.Name != "" {
		return c.Name
	}
	return container.TypeKeyOf(c.Type)
}

// Tier picks the first directly carried tier stereotype in the order
// DataAccess, BusinessLogic, Presentation. Everything else is Default.
func (r *Resolver) Tier(c *Class) container.Tier {
	switch {
	case c.Has(TagDataAccess):
		return container.DataAccess
	case c.Has(TagBusinessLogic):
		return container.BusinessLogic
	case c.Has(TagPresentation):
		return container.Presentation
	}
	return container.Default
}

// Describe resolves the descriptor of c. ok is false when c is not a component.
func (r *Resolver) Describe(c *Class) (d Descriptor, ok bool) {
	if !r.IsComponent(c) {
		return Descriptor{}, false
	}
	return Descriptor{Key: r.Key(c), Tier: r.Tier(c)}, true
}

// ── Entity check ──────────────────────────────────────────────────────────────

// IsEntity reports whether c carries either persistence entity tag.
func IsEntity(c *Class) bool {
	return c.Has(TagEntity) || c.Has(TagPersistenceEntity)
}

// CheckEntity fails with a *ConfigurationError when c is a persistence
// entity and no persistence module in s reports itself initialized.
func CheckEntity(c *Class, s *container.Store) error {
	if !IsEntity(c) {
		return nil
	}
	inst, found := s.Get(PersistenceModuleKey)
	if found {
		if m, ok := inst.(PersistenceModule); ok && m.Initialized() {
			return nil
		}
	}
	return &ConfigurationError{
		Module:         "persistence module",
		PropertyPrefix: PersistencePropertyPrefix,
		Class:          c.QualifiedName(),
		ModuleFound:    found,
	}
}
