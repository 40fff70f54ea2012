package factory

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/convert"
)

// Factory builds component instances from their class declarations.
//
// Constructor parameters are resolved against the components already in
// the store. Resolution happens during the single scan pass, so a
// constructor can only see components registered before its class was
// reached in scan order.
type Factory struct {
	store  *container.Store
	conv   *convert.Converter
	logger *zap.Logger
}

// New creates a Factory. A nil logger discards output.
func New(store *container.Store, conv *convert.Converter, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{store: store, conv: conv, logger: logger.Named("factory")}
}

// ── Selection ─────────────────────────────────────────────────────────────────

// Select picks the constructor used for c, in strict priority:
//
//  1. the designated constructor, whatever its arity;
//  2. a zero-argument constructor, including the implicit zero-value
//     constructor of a class that declares none;
//  3. by descending arity (stable), the first constructor whose every
//     parameter is a registered component or carries a default literal.
//
// ok is false for the implicit constructor.
func (f *Factory) Select(c *component.Class) (ctor component.Constructor, ok bool, err error) {
	if len(c.Constructors) == 0 {
		return component.Constructor{}, false, nil
	}
	for _, k := range c.Constructors {
		if k.Designated {
			return k, true, nil
		}
	}
	for _, k := range c.Constructors {
		if k.Arity() == 0 {
			return k, true, nil
		}
	}

	candidates := append([]component.Constructor(nil), c.Constructors...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Arity() > candidates[j].Arity()
	})
	for _, k := range candidates {
		if f.satisfiable(k) {
			return k, true, nil
		}
	}
	return component.Constructor{}, false, &NoResolvableConstructorError{
		Class:      c.QualifiedName(),
		Candidates: len(candidates),
	}
}

func (f *Factory) satisfiable(k component.Constructor) bool {
	ft := reflect.TypeOf(k.Func)
	for i := 0; i < ft.NumIn(); i++ {
		if f.store.Has(container.TypeKeyOf(ft.In(i))) {
			continue
		}
		if _, ok := k.DefaultFor(i); ok {
			continue
		}
		return false
	}
	return true
}

// ── Instantiation ─────────────────────────────────────────────────────────────

// Instantiate selects a constructor for c and calls it. The result is
// always a non-nil *T.
func (f *Factory) Instantiate(c *component.Class) (any, error) {
	ctor, ok, err := f.Select(c)
	if err != nil {
		return nil, err
	}
	if !ok {
		f.logger.Debug("implicit constructor", zap.String("class", c.QualifiedName()))
		return reflect.New(c.Type).Interface(), nil
	}

	fn := reflect.ValueOf(ctor.Func)
	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		v, err := f.resolveParam(c, ctor, i, ft.In(i))
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	f.logger.Debug("calling constructor",
		zap.String("class", c.QualifiedName()),
		zap.Int("arity", len(args)),
	)
	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, &ConstructorError{Class: c.QualifiedName(), Err: out[1].Interface().(error)}
	}
	if out[0].IsNil() {
		return nil, &ConstructorError{Class: c.QualifiedName(), Err: errNilInstance}
	}
	return out[0].Interface(), nil
}

// resolveParam resolves parameter i: a registered component, else the
// converted default literal, else the zero value of a convertible shape.
func (f *Factory) resolveParam(c *component.Class, ctor component.Constructor, i int, pt reflect.Type) (reflect.Value, error) {
	key := container.TypeKeyOf(pt)
	if inst, ok := f.store.Get(key); ok {
		v := reflect.ValueOf(inst)
		if !v.Type().AssignableTo(pt) {
			return reflect.Value{}, &TypeMismatchError{
				Class: c.QualifiedName(), Index: i, Key: key,
				Want: pt.String(), Got: v.Type().String(),
			}
		}
		return v, nil
	}
	if lit, ok := ctor.DefaultFor(i); ok {
		v, err := f.conv.String(lit, pt)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("class %s: parameter %d: %w", c.QualifiedName(), i, err)
		}
		return v, nil
	}
	if f.conv.Supports(pt) {
		return f.conv.Convert(nil, pt)
	}
	return reflect.Value{}, &UnsupportedTypeError{Class: c.QualifiedName(), Index: i, Type: pt.String()}
}
