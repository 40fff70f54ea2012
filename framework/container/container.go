package container

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ── Entry ─────────────────────────────────────────────────────────────────────

// Entry is one registered component: its primary key, its tier and the
// instance itself.
type Entry struct {
	Key      string
	Tier     Tier
	Instance any
}

// ── Store ─────────────────────────────────────────────────────────────────────

// Store is the component store of one application run.
//
// It holds:
//   - key → instance and key → tier for every primary registration
//   - alias → key for capability interface names
//   - the registration order, which ByTier and Entries preserve
//
// The store is filled during scanning and read many times afterwards.
// Plugins may register from other goroutines, so every method locks.
type Store struct {
	mu sync.RWMutex

	// key → instance
	instances map[string]any

	// key → tier
	tiers map[string]Tier

	// alias → key (canonical)
	aliases map[string]string

	// primary keys in registration order
	order []string

	// registered callbacks: []func(Entry)
	onRegister []func(Entry)
}

// New creates an empty store.
func New() *Store {
	return &Store{
		instances: make(map[string]any),
		tiers:     make(map[string]Tier),
		aliases:   make(map[string]string),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds instance under key in the given tier.
// A key already used by another component or alias is rejected with a
// *DuplicateKeyError; a nil instance, typed or not, with ErrNilInstance.
//
//	err := s.Register(container.TypeKey((*UserRepository)(nil)), repo, container.DataAccess)
func (s *Store) Register(key string, instance any, tier Tier) error {
	if isNil(instance) {
		return fmt.Errorf("register [%s]: %w", key, ErrNilInstance)
	}
	s.mu.Lock()
	if err := s.checkFree(key); err != nil {
		s.mu.Unlock()
		return err
	}
	s.instances[key] = instance
	s.tiers[key] = tier
	s.order = append(s.order, key)
	cbs := s.onRegister
	s.mu.Unlock()

	entry := Entry{Key: key, Tier: tier, Instance: instance}
	for _, cb := range cbs {
		cb(entry)
	}
	return nil
}

// Alias makes the component registered under key reachable through alias
// too. Capability interfaces are registered this way. The alias takes part
// in key uniqueness but is never returned by ByTier, so an instance is
// processed once however many names it has.
//
//	s.Alias("main.userService", container.TypeKey((*UserFinder)(nil)))
func (s *Store) Alias(key, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", key))
	}
	if _, ok := s.instances[key]; !ok {
		return fmt.Errorf("container: alias %q: %w: %q", alias, ErrUnknownKey, key)
	}
	if err := s.checkFree(alias); err != nil {
		return err
	}
	s.aliases[alias] = key
	return nil
}

// checkFree must hold mu.
func (s *Store) checkFree(key string) error {
	if _, ok := s.instances[key]; ok {
		return &DuplicateKeyError{Key: key, Existing: "component"}
	}
	if target, ok := s.aliases[key]; ok {
		return &DuplicateKeyError{Key: key, Existing: "alias of " + target}
	}
	return nil
}

// OnRegister registers a callback fired after every successful Register.
func (s *Store) OnRegister(cb func(Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRegister = append(s.onRegister, cb)
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Get returns the instance registered under key or one of its aliases.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[s.canonical(key)]
	return inst, ok
}

// Has reports whether key (or an alias) is registered.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// TierOf returns the tier of the component registered under key.
func (s *Store) TierOf(key string) (Tier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers[s.canonical(key)]
	return t, ok
}

// Canonical resolves an alias to its primary key.
func (s *Store) Canonical(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canonical(key)
}

// Aliases returns every alias pointing at key, sorted.
func (s *Store) Aliases(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for alias, target := range s.aliases {
		if target == key {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// ByTier returns a snapshot of the primary entries of tier in registration order.
func (s *Store) ByTier(tier Tier) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, key := range s.order {
		if s.tiers[key] == tier {
			out = append(out, Entry{Key: key, Tier: tier, Instance: s.instances[key]})
		}
	}
	return out
}

// Entries returns a snapshot of every primary entry in registration order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, Entry{Key: key, Tier: s.tiers[key], Instance: s.instances[key]})
	}
	return out
}

// Keys returns a copy of all primary keys in registration order (for debugging).
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of primary registrations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) canonical(key string) string {
	if target, ok := s.aliases[key]; ok {
		return target
	}
	return key
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// TypeKey returns the package-qualified type name of v with any pointer
// stripped. It is the default key of a component and the key a constructor
// parameter or an untagged injected field is looked up under.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "github.com/acme/app/users.UserRepository"
func TypeKey(v any) string {
	return TypeKeyOf(reflect.TypeOf(v))
}

// TypeKeyOf is TypeKey for a reflect.Type.
func TypeKeyOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve looks key up and type-asserts the result.
//
//	repo, ok := container.Resolve[*users.Repository](s, key)
func Resolve[T any](s *Store, key string) (T, bool) {
	var zero T
	instance, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := instance.(T)
	return typed, ok
}

// MustResolve is like Resolve but panics when key is missing or has another type.
func MustResolve[T any](s *Store, key string) T {
	instance, ok := s.Get(key)
	if !ok {
		panic(fmt.Sprintf("container: MustResolve[%T]: no component registered for [%s]", *new(T), key))
	}
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: MustResolve[%T]: [%s] resolved to %T", *new(T), key, instance))
	}
	return typed
}
