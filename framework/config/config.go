package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Properties is the Property Table: flat key=value pairs loaded once before
// scanning. A later source overrides the value of an earlier one. Keys are
// listed in the order their source was merged; the keys of one source are
// added in sorted order, so the line order inside a file is not kept.
//
// Keys may contain letters, digits, '_' and '.':
//
//	app.name=Demo
//	persistence.nats.url=nats://localhost:4222
//
// Files are read with godotenv, so unquoted and double-quoted values expand
// $NAME and ${NAME}, where NAME is upper-case letters, digits and '_',
// against the keys defined earlier in the same file; an unknown NAME
// expands to "". A '$' not followed by such a name is kept. Single-quote the
// value, or write \$, to keep it literal:
//
//	db.password=pa$word             # pa$word
//	BASE=http://x
//	api.url=${BASE}/api             # http://x/api
//	raw.url='http://x/${HOME}'      # http://x/${HOME}
//	esc.url=http://x/\${HOME}       # http://x/${HOME}
type Properties struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
}

// NewProperties creates an empty table.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// FromMap creates a table from m, keys in sorted order.
func FromMap(m map[string]string) *Properties {
	p := NewProperties()
	p.Merge(m)
	return p
}

// Load reads files, relative to dir, in order. A missing or malformed file
// fails with a *LoadError.
//
//	props, err := config.Load("./config", "application.properties", "local.properties")
func Load(dir string, files ...string) (*Properties, error) {
	p := NewProperties()
	for _, name := range files {
		path := name
		if dir != "" && !filepath.IsAbs(name) {
			path = filepath.Join(dir, name)
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, &LoadError{File: path, Err: err}
		}
		p.Merge(values)
	}
	return p, nil
}

// Merge sets every entry of m, new keys in sorted order.
func (p *Properties) Merge(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		p.set(k, m[k])
	}
}

// Set stores value under key.
func (p *Properties) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(key, value)
}

func (p *Properties) set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Lookup returns the value of key and whether it is present.
func (p *Properties) Lookup(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Get returns a raw value, falling back to defaultVal.
func (p *Properties) Get(key, defaultVal string) string {
	if v, ok := p.Lookup(key); ok {
		return v
	}
	return defaultVal
}

// GetInt returns an int value, falling back to defaultVal when absent or malformed.
func (p *Properties) GetInt(key string, defaultVal int) int {
	v, ok := p.Lookup(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool value, falling back to defaultVal when absent or malformed.
func (p *Properties) GetBool(key string, defaultVal bool) bool {
	v, ok := p.Lookup(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// WithPrefix returns the entries under prefix with the prefix removed.
//
//	props.WithPrefix("persistence.nats.") // {"url": "...", "bucket": "..."}
func (p *Properties) WithPrefix(prefix string) map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string)
	for _, k := range p.keys {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = p.values[k]
		}
	}
	return out
}

// Keys returns the keys in first-seen order.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.keys...)
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// ── errors ───────────────────────────────────────────────────────────────────

// LoadError is returned when a property file cannot be read.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load properties %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
