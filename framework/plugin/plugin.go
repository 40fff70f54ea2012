package plugin

import (
	"context"
	"fmt"
	"reflect"

	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/container"
)

// ── Extension points ──────────────────────────────────────────────────────────

// ModuleInitializer is run once, before scanning. It may register
// components eagerly, for example to bootstrap an optional subsystem such
// as a persistence bridge.
//
//	type CacheModule struct{ plugin.BaseModule }
//
//	func (m *CacheModule) Initialize(ctx context.Context, r *plugin.Registrar) error {
//	    return r.RegisterType(cache.New(r.Property("cache.size")), container.DataAccess)
//	}
type ModuleInitializer interface {
	Initialize(ctx context.Context, r *Registrar) error
}

// Booter is implemented by module initializers that need a second phase
// after every tier has been injected and initialized. Safe to resolve any
// component inside Boot.
type Booter interface {
	Boot(ctx context.Context, store *container.Store) error
}

// ComponentInitializer is offered every scanned class when the root opts
// into extended processing. It may synthesize extra components, such as a
// client implementation for an interface.
type ComponentInitializer interface {
	InitializeComponent(ctx context.Context, class *component.Class, r *Registrar) error
}

// ── BaseModule ────────────────────────────────────────────────────────────────

// BaseModule is an embeddable struct with a no-op Boot.
// Embed it in your module and only override what you need.
type BaseModule struct{}

func (BaseModule) Boot(context.Context, *container.Store) error { return nil }

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry holds the explicit, ordered provider lists of an application.
// Providers run in the order they were added; adding the same provider
// twice is ignored.
type Registry struct {
	modules    []ModuleInitializer
	components []ComponentInitializer
	seen       map[any]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[any]bool)}
}

// AddModule appends module initializers.
func (r *Registry) AddModule(modules ...ModuleInitializer) *Registry {
	for _, m := range modules {
		if m != nil && r.first(m) {
			r.modules = append(r.modules, m)
		}
	}
	return r
}

// AddComponent appends component initializers.
func (r *Registry) AddComponent(inits ...ComponentInitializer) *Registry {
	for _, c := range inits {
		if c != nil && r.first(c) {
			r.components = append(r.components, c)
		}
	}
	return r
}

// first records p and reports whether it was new. Values of
// non-comparable types cannot be deduplicated and are always accepted.
func (r *Registry) first(p any) bool {
	if !reflect.TypeOf(p).Comparable() {
		return true
	}
	if r.seen[p] {
		return false
	}
	r.seen[p] = true
	return true
}

// Modules returns the module initializers in order.
func (r *Registry) Modules() []ModuleInitializer {
	return append([]ModuleInitializer(nil), r.modules...)
}

// Components returns the component initializers in order.
func (r *Registry) Components() []ComponentInitializer {
	return append([]ComponentInitializer(nil), r.components...)
}

// HasComponentInitializers reports whether any component initializer is present.
func (r *Registry) HasComponentInitializers() bool {
	return len(r.components) > 0
}

// InitializeModules runs every module initializer in order and stops at the
// first failure.
func (r *Registry) InitializeModules(ctx context.Context, reg *Registrar) error {
	for _, m := range r.modules {
		reg.logger.Debug("initializing module", zapType(m))
		if err := m.Initialize(ctx, reg); err != nil {
			return fmt.Errorf("module %T: %w", m, err)
		}
	}
	return nil
}

// InitializeComponent offers class to every component initializer in order.
func (r *Registry) InitializeComponent(ctx context.Context, class *component.Class, reg *Registrar) error {
	for _, c := range r.components {
		if err := c.InitializeComponent(ctx, class, reg); err != nil {
			return fmt.Errorf("component initializer %T on %s: %w", c, class, err)
		}
	}
	return nil
}

// Boot calls Boot on every module initializer that implements Booter.
func (r *Registry) Boot(ctx context.Context, store *container.Store) error {
	for _, m := range r.modules {
		b, ok := m.(Booter)
		if !ok {
			continue
		}
		if err := b.Boot(ctx, store); err != nil {
			return fmt.Errorf("boot module %T: %w", m, err)
		}
	}
	return nil
}
