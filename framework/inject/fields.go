package inject

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-ioc/framework/component"
)

// Struct tags understood on component fields.
const (
	TagInject   = "inject"
	TagProperty = "property"
	TagPersist  = "persist"
	TagDefault  = "default"
)

// fieldSpec is one bound field of a struct type.
type fieldSpec struct {
	index []int
	name  string
	typ   reflect.Type
	kind  component.BindingKind
	key   string
	def   *string
}

// fieldCache caches the tag-derived bindings of each struct type.
type fieldCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]fieldSpec
}

func newFieldCache() *fieldCache {
	return &fieldCache{fields: make(map[reflect.Type][]fieldSpec)}
}

// get returns the bindings of t, computing them on first use.
func (fc *fieldCache) get(t reflect.Type) ([]fieldSpec, error) {
	fc.mu.RLock()
	specs, ok := fc.fields[t]
	fc.mu.RUnlock()
	if ok {
		return specs, nil
	}

	specs, err := collect(t, nil)
	if err != nil {
		return nil, err
	}

	fc.mu.Lock()
	fc.fields[t] = specs
	fc.mu.Unlock()
	return specs, nil
}

// collect walks t and its embedded structs, recursively, and returns the
// tagged fields in declaration order.
func collect(t reflect.Type, prefix []int) ([]fieldSpec, error) {
	var specs []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		spec, tagged, err := fromTags(f, index)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
		if tagged {
			specs = append(specs, spec)
			continue
		}
		if !f.Anonymous {
			continue
		}
		switch {
		case f.Type.Kind() == reflect.Struct:
			inner, err := collect(f.Type, index)
			if err != nil {
				return nil, err
			}
			specs = append(specs, inner...)
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			if hasBindings(f.Type.Elem(), map[reflect.Type]bool{t: true}) {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.Name, ErrEmbeddedPointer)
			}
		}
	}
	return specs, nil
}

// hasBindings reports whether t, or a struct embedded in it at any depth,
// carries a binding tag.
func hasBindings(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, tag := range []string{TagInject, TagProperty, TagPersist} {
			if _, ok := f.Tag.Lookup(tag); ok {
				return true
			}
		}
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && hasBindings(ft, seen) {
			return true
		}
	}
	return false
}

func fromTags(f reflect.StructField, index []int) (fieldSpec, bool, error) {
	spec := fieldSpec{index: index, name: f.Name, typ: f.Type}
	found := 0

	if key, ok := f.Tag.Lookup(TagInject); ok {
		spec.kind, spec.key = component.InjectBinding, key
		found++
	}
	if key, ok := f.Tag.Lookup(TagProperty); ok {
		spec.kind, spec.key = component.PropertyBinding, key
		found++
	}
	if key, ok := f.Tag.Lookup(TagPersist); ok {
		spec.kind, spec.key = component.PersistBinding, key
		found++
	}
	if found == 0 {
		return fieldSpec{}, false, nil
	}
	if found > 1 {
		return fieldSpec{}, false, fmt.Errorf("field carries more than one of %s, %s and %s", TagInject, TagProperty, TagPersist)
	}
	if def, ok := f.Tag.Lookup(TagDefault); ok {
		spec.def = &def
	}
	if err := spec.check(f); err != nil {
		return fieldSpec{}, false, err
	}
	return spec, true, nil
}

func (s *fieldSpec) check(f reflect.StructField) error {
	if !f.IsExported() {
		return fmt.Errorf("%w: %s", ErrUnexportedField, f.Name)
	}
	if s.kind == component.PropertyBinding && s.key == "" {
		return fmt.Errorf("property binding on %s needs a key", f.Name)
	}
	if s.kind == component.PersistBinding && s.key == "" {
		s.key = f.Name
	}
	return nil
}

// explicit resolves the Binding declarations of a class against t.
func explicit(t reflect.Type, bindings []component.Binding) ([]fieldSpec, error) {
	specs := make([]fieldSpec, 0, len(bindings))
	for _, b := range bindings {
		f, ok := t.FieldByName(b.Field)
		if !ok {
			return nil, fmt.Errorf("%s has no field %s", t.Name(), b.Field)
		}
		if throughPointer(t, f.Index) {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), b.Field, ErrEmbeddedPointer)
		}
		spec := fieldSpec{index: f.Index, name: f.Name, typ: f.Type, kind: b.Kind, key: b.Key, def: b.Default}
		if err := spec.check(f); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// throughPointer reports whether the field at index is reached through an
// embedded pointer.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		t = t.Field(i).Type
		if t.Kind() == reflect.Pointer {
			return true
		}
	}
	return false
}
