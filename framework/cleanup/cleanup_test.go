package cleanup_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-ioc/framework/cleanup"
)

func recorder(order *[]int, n int) cleanup.Task {
	return func() error {
		*order = append(*order, n)
		return nil
	}
}

func TestRegistry_Cleanup_PriorityOrder(t *testing.T) {
	r := cleanup.New(nil)
	var order []int

	r.Register("ten", recorder(&order, 10), 10)
	r.Register("one", recorder(&order, 1), 1)
	r.Register("five", recorder(&order, 5), 5)

	require.NoError(t, r.Cleanup())
	assert.Equal(t, []int{1, 5, 10}, order)
}

func TestRegistry_Cleanup_FailureIsolation(t *testing.T) {
	r := cleanup.New(nil)
	var order []int
	boom := errors.New("boom")

	r.Register("ten", recorder(&order, 10), 10)
	r.Register("one", func() error { return boom }, 1)
	r.Register("five", recorder(&order, 5), 5)

	err := r.Cleanup()

	assert.Equal(t, []int{5, 10}, order, "a failing task must not stop the others")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Cleanup_PanicIsolation(t *testing.T) {
	r := cleanup.New(nil)
	var order []int
	var failed []string
	r.OnFailure = func(name string, _ error) { failed = append(failed, name) }

	r.Register("panics", func() error { panic("kaboom") }, 1)
	r.Register("fails", func() error { return errors.New("nope") }, 2)
	r.Register("works", recorder(&order, 3), 3)

	err := r.Cleanup()

	assert.Equal(t, []int{3}, order)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{"panics", "fails"}, failed)
}

func TestRegistry_Cleanup_EqualPrioritiesKeepRegistrationOrder(t *testing.T) {
	r := cleanup.New(nil)
	var order []int

	r.Register("a", recorder(&order, 1), 0)
	r.Register("b", recorder(&order, 2), 0)
	r.Register("c", recorder(&order, 3), -1)

	require.NoError(t, r.Cleanup())
	assert.Equal(t, []int{3, 1, 2}, order)
}

func TestRegistry_Cleanup_RunsOnce(t *testing.T) {
	r := cleanup.New(nil)
	var order []int
	r.Register("a", recorder(&order, 1), 0)

	require.NoError(t, r.Cleanup())
	require.NoError(t, r.Cleanup())

	assert.Equal(t, []int{1}, order)
	assert.True(t, r.Started())
}

func TestRegistry_RegisterAfterCleanup_WarnsAndDrops(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := cleanup.New(zap.New(core))
	require.NoError(t, r.Cleanup())

	ran := false
	r.Register("late", func() error { ran = true; return nil }, 0)

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 1, logs.FilterMessage("task registered after cleanup started; it will not run").Len())
	require.NoError(t, r.Cleanup())
	assert.False(t, ran)
}
