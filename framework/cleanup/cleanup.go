package cleanup

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Task is one unit of shutdown work.
type Task func() error

type entry struct {
	task     Task
	priority int
	name     string
}

// Registry is the ordered list of shutdown tasks of one application run.
//
//	reg := cleanup.New(logger)
//	reg.Register("db", db.Close, 10)
//	reg.Register("cache", cache.Flush, 1)
//	err := reg.Cleanup() // cache, then db
type Registry struct {
	mu      sync.Mutex
	entries []entry
	started bool
	logger  *zap.Logger

	// OnFailure, if set, is called for every failing task.
	OnFailure func(name string, err error)
}

// New creates an empty registry. A nil logger discards output.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger.Named("cleanup")}
}

// Register appends task and re-sorts the list ascending by priority.
// Ties keep their registration order.
//
// Registering after Cleanup has started is accepted for compatibility but
// the task never runs; a warning is logged.
func (r *Registry) Register(name string, task Task, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		r.logger.Warn("task registered after cleanup started; it will not run",
			zap.String("task", name),
			zap.Int("priority", priority),
		)
		return
	}
	r.entries = append(r.entries, entry{task: task, priority: priority, name: name})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority < r.entries[j].priority
	})
}

// Len returns the number of pending tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Started reports whether Cleanup has been called.
func (r *Registry) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Cleanup runs every task once, in priority order. A task that fails or
// panics is logged and skipped; the remaining tasks still run. The
// failures are returned combined. Calls after the first return nil.
func (r *Registry) Cleanup() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	r.logger.Debug("running cleanup tasks", zap.Int("count", len(entries)))

	var errs error
	for _, e := range entries {
		if err := run(e); err != nil {
			r.logger.Error("cleanup task failed",
				zap.String("task", e.name),
				zap.Int("priority", e.priority),
				zap.Error(err),
			)
			if r.OnFailure != nil {
				r.OnFailure(e.name, err)
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func run(e entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cleanup task %q panicked: %v", e.name, p)
		}
	}()
	if err := e.task(); err != nil {
		return fmt.Errorf("cleanup task %q: %w", e.name, err)
	}
	return nil
}
