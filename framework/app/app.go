// Package app is the entry point of the container: Run scans the catalog,
// builds and registers every component, injects and initializes them tier
// by tier and arms the shutdown hook.
//
//	application, err := app.Run(ctx, app.Root{Name: "shop", Namespace: "example.com/shop"},
//	    app.WithCatalog(scan.NewCatalog(shop.Classes()...)),
//	    app.WithModules(&providers.ConfigModule{}, &providers.RoutingModule{}),
//	)
//	if err != nil { ... }
//	<-application.Done()
package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/cleanup"
	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/convert"
	"github.com/km-arc/go-ioc/framework/factory"
	"github.com/km-arc/go-ioc/framework/http/validation"
	"github.com/km-arc/go-ioc/framework/inject"
	"github.com/km-arc/go-ioc/framework/metrics"
	"github.com/km-arc/go-ioc/framework/plugin"
	"github.com/km-arc/go-ioc/framework/scan"
	"github.com/km-arc/go-ioc/framework/storage"
)

// Root is the root descriptor of the hosting application.
type Root = component.Root

// ── Options ───────────────────────────────────────────────────────────────────

type options struct {
	catalog  *scan.Catalog
	plugins  *plugin.Registry
	logger   *zap.Logger
	props    *config.Properties
	storage  storage.Service
	conv     *convert.Converter
	resolver *component.Resolver
}

// Option configures Run.
type Option func(*options)

// WithCatalog sets the classes to scan.
func WithCatalog(c *scan.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithModules appends module initializers, run in order.
func WithModules(m ...plugin.ModuleInitializer) Option {
	return func(o *options) { o.plugins.AddModule(m...) }
}

// WithComponentInitializers appends component initializers. They only run
// when the root opts into extended processing.
func WithComponentInitializers(c ...plugin.ComponentInitializer) Option {
	return func(o *options) { o.plugins.AddComponent(c...) }
}

// WithLogger sets the framework logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProperties supplies the Property Table directly; property files are
// not read.
func WithProperties(p *config.Properties) Option {
	return func(o *options) { o.props = p }
}

// WithStorage registers s as the persistence service before any module
// initializer runs.
func WithStorage(s storage.Service) Option {
	return func(o *options) { o.storage = s }
}

// WithConverter sets the converter, e.g. one with enumerations registered.
func WithConverter(c *convert.Converter) Option {
	return func(o *options) { o.conv = c }
}

// WithResolver sets the descriptor resolver, e.g. one with custom stereotypes.
func WithResolver(r *component.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// ── Application ───────────────────────────────────────────────────────────────

// Application is one container run.
type Application struct {
	root    Root
	runID   string
	logger  *zap.Logger
	store   *container.Store
	props   *config.Properties
	cleanup *cleanup.Registry
	engine  *inject.Engine
	metrics *metrics.Collector

	once        sync.Once
	done        chan struct{}
	shutdownErr error
}

// Run starts the container. Every failure is returned as one
// *InitializationError, after the cleanup tasks registered so far have run.
//
// Cancelling ctx after Run returns shuts the application down.
func Run(ctx context.Context, root Root, opts ...Option) (*Application, error) {
	start := time.Now()
	o := &options{plugins: plugin.NewRegistry()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.catalog == nil {
		o.catalog = scan.NewCatalog()
	}
	if o.conv == nil {
		o.conv = convert.New()
	}
	if o.resolver == nil {
		o.resolver = component.NewResolver()
	}

	runID := uuid.NewString()
	logger := o.logger.With(zap.String("app", root.Name), zap.String("run_id", runID))
	a := &Application{
		root:    root,
		runID:   runID,
		logger:  logger,
		store:   container.New(),
		cleanup: cleanup.New(logger),
		metrics: metrics.New(),
		done:    make(chan struct{}),
	}
	a.store.OnRegister(a.metrics.Registered)
	a.cleanup.OnFailure = a.metrics.CleanupFailed

	if phase, err := a.start(ctx, o); err != nil {
		logger.Error("initialization failed", zap.String("phase", phase), zap.Error(err))
		if cerr := a.cleanup.Cleanup(); cerr != nil {
			logger.Warn("cleanup after failed initialization", zap.Error(cerr))
		}
		close(a.done)
		return nil, &InitializationError{App: root.Name, RunID: runID, Phase: phase, Err: err}
	}

	elapsed := time.Since(start)
	a.metrics.StartupCompleted(elapsed)
	logger.Info("application started",
		zap.Int("components", a.store.Len()),
		zap.Duration("elapsed", elapsed),
	)

	go a.watch(ctx)
	return a, nil
}

// start runs the startup steps in order and reports the failing step.
func (a *Application) start(ctx context.Context, o *options) (string, error) {
	if err := validation.Default().Check(a.root); err != nil {
		return "validate", err
	}

	props := o.props
	if props == nil {
		loaded, err := config.Load(a.root.ConfigDir, a.root.Files()...)
		if err != nil {
			return "properties", err
		}
		props = loaded
	}
	a.props = props

	if err := a.store.Register(metrics.Key, a.metrics, container.Default); err != nil {
		return "modules", err
	}

	reg := plugin.NewRegistrar(plugin.Deps{
		Store:      a.store,
		Properties: props,
		Root:       a.root,
		Cleanup:    a.cleanup,
		Resolver:   o.resolver,
		Logger:     a.logger,
	})
	if o.storage != nil {
		if err := reg.RegisterAs((*storage.Service)(nil), o.storage, container.DataAccess); err != nil {
			return "modules", err
		}
	}
	if err := o.plugins.InitializeModules(ctx, reg); err != nil {
		return "modules", err
	}

	if !a.store.Has(storage.ServiceKey) {
		fs, err := storage.NewDefault(a.root.Name, a.logger)
		if err != nil {
			return "storage", err
		}
		if err := reg.RegisterAs((*storage.Service)(nil), fs, container.DataAccess); err != nil {
			return "storage", err
		}
		a.logger.Debug("default persistence service registered", zap.String("path", fs.Path()))
	}

	if a.root.Extended != nil && !o.plugins.HasComponentInitializers() {
		return "extended", &component.ConfigurationError{
			Module: "component initializer",
			Detail: "extended processing is enabled but no component initializer is registered",
		}
	}

	classes, err := scan.NewScanner(o.catalog, a.logger).Scan(a.root.Namespace)
	if err != nil {
		return "scan", err
	}

	a.engine = inject.New(inject.Deps{
		Store:      a.store,
		Properties: props,
		Converter:  o.conv,
		Cleanup:    a.cleanup,
		Logger:     a.logger,
		Observer:   a.metrics,
	})
	build := factory.New(a.store, o.conv, a.logger)
	for _, class := range classes {
		if err := a.register(ctx, class, o, reg, build); err != nil {
			return "register", err
		}
	}

	if err := a.engine.ProcessTiers(ctx); err != nil {
		return "inject", err
	}
	if err := o.plugins.Boot(ctx, a.store); err != nil {
		return "boot", err
	}
	return "", nil
}

// register handles one scanned class: entity check, component
// initializers, then instantiation and registration if it is a component.
func (a *Application) register(ctx context.Context, class *component.Class, o *options, reg *plugin.Registrar, build *factory.Factory) error {
	if err := component.CheckEntity(class, a.store); err != nil {
		return err
	}
	if a.root.Extended.Covers(class) {
		if err := o.plugins.InitializeComponent(ctx, class, reg); err != nil {
			return err
		}
	}

	d, ok := o.resolver.Describe(class)
	if !ok {
		return nil
	}
	inst, err := build.Instantiate(class)
	if err != nil {
		return err
	}
	if err := a.store.Register(d.Key, inst, d.Tier); err != nil {
		return err
	}
	a.engine.Track(d.Key, class)

	if !class.Has(component.TagSkipInterfaces) {
		for _, iface := range class.Implements {
			if err := a.store.Alias(d.Key, container.TypeKeyOf(reflect.TypeOf(iface))); err != nil {
				return fmt.Errorf("capability interface of %s: %w", class, err)
			}
		}
	}

	a.logger.Debug("component registered",
		zap.String("key", d.Key),
		zap.Stringer("tier", d.Tier),
		zap.Strings("aliases", a.store.Aliases(d.Key)),
	)
	return nil
}

// ── Shutdown ──────────────────────────────────────────────────────────────────

func (a *Application) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		a.logger.Info("context cancelled; shutting down")
		_ = a.Shutdown()
	case <-a.done:
	}
}

// Shutdown runs the cleanup tasks once. Later calls return the first
// result.
func (a *Application) Shutdown() error {
	a.once.Do(func() {
		a.shutdownErr = a.cleanup.Cleanup()
		if a.shutdownErr != nil {
			a.logger.Warn("shutdown finished with errors", zap.Error(a.shutdownErr))
		} else {
			a.logger.Info("shutdown complete")
		}
		close(a.done)
	})
	return a.shutdownErr
}

// Done is closed once Shutdown has finished.
func (a *Application) Done() <-chan struct{} { return a.done }

// ── Accessors ─────────────────────────────────────────────────────────────────

// Components returns the component store.
func (a *Application) Components() *container.Store { return a.store }

// Properties returns the Property Table.
func (a *Application) Properties() *config.Properties { return a.props }

// Metrics returns the metrics collector of this run.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Root returns the root descriptor.
func (a *Application) Root() Root { return a.root }

// RunID identifies this run in logs.
func (a *Application) RunID() string { return a.runID }

// Store writes a persisted value through to the persistence service and to
// every field bound to key.
func (a *Application) Store(ctx context.Context, key string, value any) error {
	return a.engine.Store(ctx, key, value)
}

// Resolve looks key up in the application's store.
//
//	svc, ok := app.Resolve[*users.Service](application, container.TypeKey((*users.Service)(nil)))
func Resolve[T any](a *Application, key string) (T, bool) {
	return container.Resolve[T](a.store, key)
}

// IsInitializationError reports whether err is an *InitializationError.
func IsInitializationError(err error) bool {
	var ie *InitializationError
	return errors.As(err, &ie)
}
