package factory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/convert"
	"github.com/km-arc/go-ioc/framework/factory"
)

type dep struct{ id int }

type svc struct {
	dep  *dep
	n    int
	name string
	via  string
}

type zeros struct {
	n    int
	s    string
	b    bool
	p    *int
	c    convert.Char
	f    float64
	text *string
}

var errBoom = errors.New("boom")

func newFactory(s *container.Store) *factory.Factory {
	return factory.New(s, convert.New(), nil)
}

func withDep(t *testing.T) *container.Store {
	t.Helper()
	s := container.New()
	require.NoError(t, s.Register(container.TypeKey(&dep{}), &dep{id: 1}, container.DataAccess))
	return s
}

// ── Scan-order dependency ─────────────────────────────────────────────────────

func TestFactory_DependencyRegisteredFirst_Instantiates(t *testing.T) {
	class := component.Of[svc](component.TagBusinessLogic).
		WithConstructor(func(d *dep) *svc { return &svc{dep: d} })

	inst, err := newFactory(withDep(t)).Instantiate(class)

	require.NoError(t, err)
	assert.Equal(t, 1, inst.(*svc).dep.id)
}

func TestFactory_DependencyRegisteredLater_Fails(t *testing.T) {
	class := component.Of[svc](component.TagBusinessLogic).
		WithConstructor(func(d *dep) *svc { return &svc{dep: d} })

	_, err := newFactory(container.New()).Instantiate(class)

	var noCtor *factory.NoResolvableConstructorError
	require.True(t, errors.As(err, &noCtor), "want NoResolvableConstructorError, got %v", err)
	assert.Equal(t, class.QualifiedName(), noCtor.Class)
}

// ── Selection priority ────────────────────────────────────────────────────────

func TestFactory_ImplicitConstructor(t *testing.T) {
	inst, err := newFactory(container.New()).Instantiate(component.Of[svc]())

	require.NoError(t, err)
	assert.IsType(t, &svc{}, inst)
}

func TestFactory_DesignatedWinsOverZeroArg(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func() *svc { return &svc{via: "zero"} }).
		WithDesignatedConstructor(func(n int) *svc { return &svc{n: n, via: "designated"} }, component.Default("5"))

	inst, err := newFactory(container.New()).Instantiate(class)

	require.NoError(t, err)
	assert.Equal(t, "designated", inst.(*svc).via)
	assert.Equal(t, 5, inst.(*svc).n)
}

func TestFactory_ZeroArgWinsOverSatisfiable(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func(d *dep) *svc { return &svc{via: "dep"} }).
		WithConstructor(func() *svc { return &svc{via: "zero"} })

	inst, err := newFactory(withDep(t)).Instantiate(class)

	require.NoError(t, err)
	assert.Equal(t, "zero", inst.(*svc).via)
}

func TestFactory_GreatestSatisfiableArity(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func(d *dep) *svc { return &svc{dep: d, via: "one"} }).
		WithConstructor(func(d *dep, n int) *svc { return &svc{dep: d, n: n, via: "two"} },
			component.NoDefault, component.Default("9")).
		WithConstructor(func(d *dep, n int, x *svc) *svc { return &svc{via: "three"} })

	inst, err := newFactory(withDep(t)).Instantiate(class)

	require.NoError(t, err)
	got := inst.(*svc)
	assert.Equal(t, "two", got.via, "three-arg constructor needs an unregistered *svc")
	assert.Equal(t, 9, got.n)
	assert.NotNil(t, got.dep)
}

func TestFactory_TiesKeepDeclarationOrder(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func(name string) *svc { return &svc{name: name, via: "first"} }, component.Default("a")).
		WithConstructor(func(d *dep) *svc { return &svc{via: "second"} })

	inst, err := newFactory(withDep(t)).Instantiate(class)

	require.NoError(t, err)
	assert.Equal(t, "first", inst.(*svc).via)
	assert.Equal(t, "a", inst.(*svc).name)
}

// ── Parameter resolution ──────────────────────────────────────────────────────

func TestFactory_ZeroValuesForMissingScalars(t *testing.T) {
	class := component.Of[zeros]().WithDesignatedConstructor(
		func(n int, s string, b bool, p *int, c convert.Char, f float64, text *string) *zeros {
			return &zeros{n: n, s: s, b: b, p: p, c: c, f: f, text: text}
		})

	inst, err := newFactory(container.New()).Instantiate(class)

	require.NoError(t, err)
	assert.Equal(t, &zeros{}, inst)
}

func TestFactory_UnsupportedParameterShape(t *testing.T) {
	class := component.Of[svc]().
		WithDesignatedConstructor(func(m map[string]int) *svc { return &svc{} })

	_, err := newFactory(container.New()).Instantiate(class)

	var unsupported *factory.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, 0, unsupported.Index)
}

func TestFactory_ComponentTypeMismatch(t *testing.T) {
	s := container.New()
	require.NoError(t, s.Register(container.TypeKey(&dep{}), "not a dep", container.DataAccess))
	class := component.Of[svc]().
		WithConstructor(func(d *dep) *svc { return &svc{dep: d} })

	_, err := newFactory(s).Instantiate(class)

	var mismatch *factory.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "string", mismatch.Got)
}

func TestFactory_BadDefaultLiteral(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func(n int) *svc { return &svc{n: n} }, component.Default("many"))

	_, err := newFactory(container.New()).Instantiate(class)

	var convErr *convert.ConversionError
	assert.True(t, errors.As(err, &convErr))
}

func TestFactory_ConstructorError(t *testing.T) {
	class := component.Of[svc]().
		WithConstructor(func() (*svc, error) { return nil, errBoom })

	_, err := newFactory(container.New()).Instantiate(class)

	var ctorErr *factory.ConstructorError
	require.True(t, errors.As(err, &ctorErr))
	assert.ErrorIs(t, err, errBoom)
}

func TestFactory_ConstructorReturnsNil(t *testing.T) {
	class := component.Of[svc]().WithConstructor(func() *svc { return nil })

	_, err := newFactory(container.New()).Instantiate(class)

	var ctorErr *factory.ConstructorError
	assert.True(t, errors.As(err, &ctorErr))
}
