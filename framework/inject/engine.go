// Package inject fills the bound fields of registered components and runs
// their lifecycle methods, one tier at a time.
//
// A field is bound either by a struct tag
//
//	Repo   *UserRepo     `inject:""`
//	Limit  int           `property:"users.limit" default:"50"`
//	Volume int           `persist:"volume" default:"30"`
//
// or by a component.Binding declared on the class. Only exported fields can
// be bound.
package inject

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/cleanup"
	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/convert"
	"github.com/km-arc/go-ioc/framework/storage"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Observer receives lifecycle events. Implementations must be safe for
// concurrent use.
type Observer interface {
	InitMethodCalled(key, method string)
	TierProcessed(tier container.Tier, components int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) InitMethodCalled(string, string)                   {}
func (nopObserver) TierProcessed(container.Tier, int, time.Duration) {}

// Deps are the collaborators of an Engine.
type Deps struct {
	Store      *container.Store
	Properties *config.Properties
	Converter  *convert.Converter
	Cleanup    *cleanup.Registry
	Logger     *zap.Logger
	Observer   Observer
}

// boundField is a persisted field of a live instance.
type boundField struct {
	owner string
	name  string
	value reflect.Value
}

// Engine injects and initializes the components of one store.
type Engine struct {
	store    *container.Store
	props    *config.Properties
	conv     *convert.Converter
	cleanup  *cleanup.Registry
	logger   *zap.Logger
	observer Observer
	cache    *fieldCache

	mu        sync.Mutex
	classes   map[string]*component.Class
	processed map[string]bool
	persisted map[string][]boundField
}

// New creates an Engine. Nil collaborators are replaced by empty ones.
func New(d Deps) *Engine {
	e := &Engine{
		store:     d.Store,
		props:     d.Properties,
		conv:      d.Converter,
		cleanup:   d.Cleanup,
		logger:    d.Logger,
		observer:  d.Observer,
		cache:     newFieldCache(),
		classes:   make(map[string]*component.Class),
		processed: make(map[string]bool),
		persisted: make(map[string][]boundField),
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("inject")
	if e.store == nil {
		e.store = container.New()
	}
	if e.props == nil {
		e.props = config.NewProperties()
	}
	if e.conv == nil {
		e.conv = convert.New()
	}
	if e.cleanup == nil {
		e.cleanup = cleanup.New(e.logger)
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// Track associates the class descriptor with the component under key, so
// that its explicit bindings, lifecycle methods and skip flag apply.
// Components registered without a class are processed by struct tags only.
func (e *Engine) Track(key string, class *component.Class) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.classes[key] = class
}

// ── Tier processing ───────────────────────────────────────────────────────────

// ProcessTiers processes every registered component, tier by tier in the
// fixed order data-access, business-logic, presentation, default. Within a
// tier, components are processed in registration order. The first failure
// aborts the run.
func (e *Engine) ProcessTiers(ctx context.Context) error {
	for _, tier := range container.Tiers {
		start := time.Now()
		entries := e.store.ByTier(tier)
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.Process(ctx, entry); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		e.observer.TierProcessed(tier, len(entries), elapsed)
		e.logger.Debug("tier processed",
			zap.Stringer("tier", tier),
			zap.Int("components", len(entries)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return nil
}

// Process injects one component, runs its init methods in ascending order
// and registers its destroy methods as cleanup tasks. Components that are
// not struct pointers, skipped classes and components already processed are
// left alone.
func (e *Engine) Process(ctx context.Context, entry container.Entry) error {
	e.mu.Lock()
	done := e.processed[entry.Key]
	class := e.classes[entry.Key]
	e.mu.Unlock()
	if done {
		return nil
	}

	if class != nil && class.Skip {
		e.logger.Debug("component skipped", zap.String("key", entry.Key))
		return nil
	}

	rv := reflect.ValueOf(entry.Instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}

	specs, err := e.fields(rv.Elem().Type(), class)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := e.bind(ctx, entry.Key, rv.Elem(), spec); err != nil {
			return err
		}
	}

	if class != nil {
		if err := e.runInit(ctx, entry.Key, rv, class.InitMethods); err != nil {
			return err
		}
		if err := e.registerDestroy(entry.Key, rv, class.DestroyMethods); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.processed[entry.Key] = true
	e.mu.Unlock()

	e.logger.Debug("component processed",
		zap.String("key", entry.Key),
		zap.Stringer("tier", entry.Tier),
		zap.Int("fields", len(specs)),
	)
	return nil
}

func (e *Engine) fields(t reflect.Type, class *component.Class) ([]fieldSpec, error) {
	specs, err := e.cache.get(t)
	if err != nil {
		return nil, err
	}
	if class == nil || len(class.Fields) == 0 {
		return specs, nil
	}
	extra, err := explicit(t, class.Fields)
	if err != nil {
		return nil, err
	}
	return append(append([]fieldSpec(nil), specs...), extra...), nil
}

// ── Field binding ─────────────────────────────────────────────────────────────

func (e *Engine) bind(ctx context.Context, owner string, sv reflect.Value, spec fieldSpec) error {
	fv, err := sv.FieldByIndexErr(spec.index)
	if err != nil {
		return &FieldError{Owner: owner, Field: spec.name, Err: err}
	}

	switch spec.kind {
	case component.InjectBinding:
		return e.bindComponent(owner, fv, spec)
	case component.PropertyBinding:
		return e.bindProperty(owner, fv, spec)
	case component.PersistBinding:
		return e.bindPersisted(ctx, owner, fv, spec)
	}
	return &FieldError{Owner: owner, Field: spec.name, Err: fmt.Errorf("unknown binding %s", spec.kind)}
}

func (e *Engine) bindComponent(owner string, fv reflect.Value, spec fieldSpec) error {
	key := spec.key
	if key == "" {
		key = container.TypeKeyOf(spec.typ)
	}
	inst, ok := e.store.Get(key)
	if !ok {
		return &UnresolvedFieldError{Owner: owner, Field: spec.name, Key: key}
	}
	iv := reflect.ValueOf(inst)
	if !iv.Type().AssignableTo(spec.typ) {
		return &TypeMismatchError{
			Owner: owner, Field: spec.name, Key: key,
			Want: spec.typ.String(), Got: iv.Type().String(),
		}
	}
	fv.Set(iv)
	return nil
}

func (e *Engine) bindProperty(owner string, fv reflect.Value, spec fieldSpec) error {
	value, ok := e.props.Lookup(spec.key)
	if !ok {
		if spec.def == nil {
			return &MissingPropertyError{Owner: owner, Field: spec.name, Key: spec.key}
		}
		value = *spec.def
	}
	v, err := e.conv.String(value, spec.typ)
	if err != nil {
		return &FieldError{Owner: owner, Field: spec.name, Err: err}
	}
	fv.Set(v)
	return nil
}

func (e *Engine) bindPersisted(ctx context.Context, owner string, fv reflect.Value, spec fieldSpec) error {
	svc, ok := container.Resolve[storage.Service](e.store, storage.ServiceKey)
	if !ok {
		return &FieldError{Owner: owner, Field: spec.name, Err: ErrNoPersistenceService}
	}

	value, found, err := svc.Load(ctx, spec.key)
	if err != nil {
		return &FieldError{Owner: owner, Field: spec.name, Err: err}
	}
	switch {
	case found:
	case spec.def != nil:
		value = *spec.def
	default:
		// Nothing stored and no default: the field keeps its value.
		e.track(spec.key, boundField{owner: owner, name: spec.name, value: fv})
		return nil
	}

	v, err := e.conv.String(value, spec.typ)
	if err != nil {
		return &FieldError{Owner: owner, Field: spec.name, Err: err}
	}
	fv.Set(v)
	e.track(spec.key, boundField{owner: owner, name: spec.name, value: fv})
	return nil
}

func (e *Engine) track(key string, f boundField) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persisted[key] = append(e.persisted[key], f)
}

// ── Lifecycle methods ─────────────────────────────────────────────────────────

func (e *Engine) runInit(ctx context.Context, owner string, rv reflect.Value, methods []component.Method) error {
	ordered := append([]component.Method(nil), methods...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for _, m := range ordered {
		mv := rv.MethodByName(m.Name)
		if !mv.IsValid() {
			return fmt.Errorf("%s.%s: %w", owner, m.Name, ErrMethodNotFound)
		}
		args, err := e.initArgs(ctx, owner, m.Name, mv.Type())
		if err != nil {
			return err
		}

		out := mv.Call(args)
		e.observer.InitMethodCalled(owner, m.Name)
		if err := lastError(out); err != nil {
			return &InitMethodError{Owner: owner, Method: m.Name, Err: err}
		}
	}
	return nil
}

// initArgs resolves init method parameters from the store. A
// context.Context parameter receives the processing context.
func (e *Engine) initArgs(ctx context.Context, owner, method string, mt reflect.Type) ([]reflect.Value, error) {
	args := make([]reflect.Value, mt.NumIn())
	for i := range args {
		pt := mt.In(i)
		if pt == contextType {
			args[i] = reflect.ValueOf(ctx)
			continue
		}
		key := container.TypeKeyOf(pt)
		inst, ok := e.store.Get(key)
		if !ok || !reflect.TypeOf(inst).AssignableTo(pt) {
			return nil, &UnresolvedParameterError{Owner: owner, Method: method, Index: i, Key: key}
		}
		args[i] = reflect.ValueOf(inst)
	}
	return args, nil
}

func (e *Engine) registerDestroy(owner string, rv reflect.Value, methods []component.Method) error {
	for _, m := range methods {
		mv := rv.MethodByName(m.Name)
		if !mv.IsValid() {
			return fmt.Errorf("%s.%s: %w", owner, m.Name, ErrMethodNotFound)
		}
		if mv.Type().NumIn() != 0 {
			return fmt.Errorf("%s.%s: destroy methods take no parameters", owner, m.Name)
		}
		e.cleanup.Register(owner+"."+m.Name, func() error {
			return lastError(mv.Call(nil))
		}, m.Order)
	}
	return nil
}

func lastError(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.Type() != errorType || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}

// ── Persisted values ──────────────────────────────────────────────────────────

// Store writes value through to the persistence service under key and
// updates every field bound to key on an already processed component. A
// nil value removes the key and resets bound fields to their zero value.
//
// Field updates are not synchronized with readers of those fields.
func (e *Engine) Store(ctx context.Context, key string, value any) error {
	svc, ok := container.Resolve[storage.Service](e.store, storage.ServiceKey)
	if !ok {
		return ErrNoPersistenceService
	}
	literal, err := e.conv.Format(value)
	if err != nil {
		return fmt.Errorf("persist %q: %w", key, err)
	}

	e.mu.Lock()
	fields := append([]boundField(nil), e.persisted[key]...)
	e.mu.Unlock()

	var errs error
	for _, f := range fields {
		v, err := e.conv.Convert(literal, f.value.Type())
		if err != nil {
			errs = multierr.Append(errs, &FieldError{Owner: f.owner, Field: f.name, Err: err})
			continue
		}
		f.value.Set(v)
	}
	if err := svc.Save(ctx, key, literal); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("persist %q: %w", key, err))
	}
	if errs != nil {
		e.logger.Warn("persisted value write-through incomplete", zap.String("key", key), zap.Error(errs))
	}
	return errs
}

// Bound returns how many live fields are bound to the persisted key.
func (e *Engine) Bound(key string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.persisted[key])
}
