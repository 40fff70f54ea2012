package plugin

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/cleanup"
	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
)

// Registrar is the registration handle given to plugins.
type Registrar struct {
	store    *container.Store
	props    *config.Properties
	root     component.Root
	cleanup  *cleanup.Registry
	resolver *component.Resolver
	logger   *zap.Logger
}

// Deps are the collaborators a Registrar hands out.
type Deps struct {
	Store      *container.Store
	Properties *config.Properties
	Root       component.Root
	Cleanup    *cleanup.Registry
	Resolver   *component.Resolver
	Logger     *zap.Logger
}

// NewRegistrar creates a Registrar. Nil collaborators are replaced by
// empty ones.
func NewRegistrar(d Deps) *Registrar {
	r := &Registrar{
		store:    d.Store,
		props:    d.Properties,
		root:     d.Root,
		cleanup:  d.Cleanup,
		resolver: d.Resolver,
		logger:   d.Logger,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.store == nil {
		r.store = container.New()
	}
	if r.props == nil {
		r.props = config.NewProperties()
	}
	if r.cleanup == nil {
		r.cleanup = cleanup.New(r.logger)
	}
	if r.resolver == nil {
		r.resolver = component.NewResolver()
	}
	return r
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds instance under key.
func (r *Registrar) Register(key string, instance any, tier container.Tier) error {
	if err := r.store.Register(key, instance, tier); err != nil {
		return err
	}
	r.logger.Debug("plugin registered component",
		zap.String("key", key),
		zap.Stringer("tier", tier),
	)
	return nil
}

// RegisterType adds instance under its own type key.
func (r *Registrar) RegisterType(instance any, tier container.Tier) error {
	return r.Register(container.TypeKey(instance), instance, tier)
}

// RegisterAs adds impl under the type key of the interface ifacePtr points
// to, after checking that impl implements it.
//
//	r.RegisterAs((*storage.Service)(nil), kv, container.Default)
func (r *Registrar) RegisterAs(ifacePtr any, impl any, tier container.Tier) error {
	t := reflect.TypeOf(ifacePtr)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("plugin: RegisterAs wants an interface pointer like (*I)(nil), got %T", ifacePtr)
	}
	if impl == nil || !reflect.TypeOf(impl).Implements(t.Elem()) {
		return fmt.Errorf("plugin: %T does not implement %s", impl, t.Elem())
	}
	return r.Register(container.TypeKeyOf(t), impl, tier)
}

// OnCleanup registers a shutdown task.
func (r *Registrar) OnCleanup(name string, task cleanup.Task, priority int) {
	r.cleanup.Register(name, task, priority)
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Property returns a Property Table value.
func (r *Registrar) Property(key string) (string, bool) { return r.props.Lookup(key) }

// Properties returns the whole Property Table.
func (r *Registrar) Properties() *config.Properties { return r.props }

// Root returns the root descriptor, including its opt-ins.
func (r *Registrar) Root() component.Root { return r.root }

// Store returns the component store.
func (r *Registrar) Store() *container.Store { return r.store }

// Resolver returns the descriptor resolver, for defining stereotypes.
func (r *Registrar) Resolver() *component.Resolver { return r.resolver }

// Logger returns the framework logger.
func (r *Registrar) Logger() *zap.Logger { return r.logger }

func zapType(v any) zap.Field {
	return zap.String("type", fmt.Sprintf("%T", v))
}
