package component

import (
	"fmt"
	"reflect"
	"strings"
)

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag is a declarative marker attached to a Class.
type Tag string

const (
	// TagComponent marks a class as a managed component.
	TagComponent Tag = "component"

	// Stereotypes. Each implies TagComponent and assigns a tier.
	TagDataAccess    Tag = "data-access"
	TagBusinessLogic Tag = "business-logic"
	TagPresentation  Tag = "presentation"

	// TagEntity and TagPersistenceEntity are the two recognized spellings of
	// the persistence entity marker.
	TagEntity            Tag = "entity"
	TagPersistenceEntity Tag = "persistence-entity"

	// TagSkipInterfaces stops capability interfaces from being registered as
	// extra keys for the component.
	TagSkipInterfaces Tag = "skip-interfaces"
)

// ── Class ─────────────────────────────────────────────────────────────────────

// Class is the explicit registration of one candidate type: everything the
// container needs to know about it, given as plain data.
//
//	var RepositoryClass = component.Of[Repository](component.TagDataAccess).
//	    WithConstructor(NewRepository, component.Default("users")).
//	    WithInit("Open", 1).
//	    WithDestroy("Close", 10).
//	    Implementing((*Finder)(nil))
type Class struct {
	// Type is the struct type. Instances are *Type.
	Type reflect.Type

	// Namespace is the slash-separated package path the class is scanned under.
	Namespace string

	// Name is the explicit component key. Empty means the type key.
	Name string

	Tags []Tag

	// Constructors are the declared constructor functions. A class with none
	// is built with the zero value.
	Constructors []Constructor

	InitMethods    []Method
	DestroyMethods []Method

	// Skip disables field and method injection for the instance.
	Skip bool

	// Implements lists capability interfaces as interface pointers, e.g.
	// (*Finder)(nil). Each becomes an extra key for the instance.
	Implements []any

	// Requires lists type keys that must be present in the catalog for the
	// class to load.
	Requires []string

	// Fields are explicit bindings in addition to struct tags.
	Fields []Binding
}

// Of creates a Class for T with its namespace taken from T's package path.
func Of[T any](tags ...Tag) *Class {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return &Class{Type: t, Namespace: t.PkgPath(), Tags: tags}
}

// In overrides the namespace.
func (c *Class) In(namespace string) *Class {
	c.Namespace = namespace
	return c
}

// Named sets the explicit component key.
func (c *Class) Named(name string) *Class {
	c.Name = name
	return c
}

// Tagged adds tags.
func (c *Class) Tagged(tags ...Tag) *Class {
	c.Tags = append(c.Tags, tags...)
	return c
}

// WithConstructor declares a constructor. params optionally carry a default
// literal per parameter, by position.
func (c *Class) WithConstructor(fn any, params ...Param) *Class {
	c.Constructors = append(c.Constructors, Constructor{Func: fn, Params: params})
	return c
}

// WithDesignatedConstructor declares the constructor that is always used.
func (c *Class) WithDesignatedConstructor(fn any, params ...Param) *Class {
	c.Constructors = append(c.Constructors, Constructor{Func: fn, Params: params, Designated: true})
	return c
}

// WithInit declares an init method invoked after field binding.
// Lower order runs first.
func (c *Class) WithInit(method string, order int) *Class {
	c.InitMethods = append(c.InitMethods, Method{Name: method, Order: order})
	return c
}

// WithDestroy declares a method run by the cleanup registry at shutdown.
// Lower priority runs first.
func (c *Class) WithDestroy(method string, priority int) *Class {
	c.DestroyMethods = append(c.DestroyMethods, Method{Name: method, Order: priority})
	return c
}

// Implementing declares capability interfaces, given as interface pointers.
func (c *Class) Implementing(ifaces ...any) *Class {
	c.Implements = append(c.Implements, ifaces...)
	return c
}

// Requiring declares type keys the class depends on to load.
func (c *Class) Requiring(keys ...string) *Class {
	c.Requires = append(c.Requires, keys...)
	return c
}

// Binding adds an explicit field binding.
func (c *Class) Binding(b Binding) *Class {
	c.Fields = append(c.Fields, b)
	return c
}

// Skipped sets the skip flag.
func (c *Class) Skipped() *Class {
	c.Skip = true
	return c
}

// Has reports whether the class directly carries tag.
func (c *Class) Has(tag Tag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// QualifiedName is Namespace plus the type name.
func (c *Class) QualifiedName() string {
	return c.Namespace + "." + c.Type.Name()
}

func (c *Class) String() string {
	return c.QualifiedName()
}

// InNamespace reports whether the class lies in ns or below it.
// The empty namespace contains every class.
func (c *Class) InNamespace(ns string) bool {
	return ns == "" || c.Namespace == ns || strings.HasPrefix(c.Namespace, ns+"/")
}

// Validate checks the shape of the declaration itself.
func (c *Class) Validate() error {
	if c.Type == nil {
		return fmt.Errorf("component: class in %q has no type", c.Namespace)
	}
	if c.Type.Kind() != reflect.Struct {
		return fmt.Errorf("component: class %s must be a struct type, got %s", c.Type, c.Type.Kind())
	}
	for _, ctor := range c.Constructors {
		if err := ctor.validate(c.Type); err != nil {
			return fmt.Errorf("component: class %s: %w", c, err)
		}
	}
	for _, iface := range c.Implements {
		t := reflect.TypeOf(iface)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
			return fmt.Errorf("component: class %s: Implements wants interface pointers like (*I)(nil), got %T", c, iface)
		}
		if !reflect.PointerTo(c.Type).Implements(t.Elem()) {
			return fmt.Errorf("component: class %s does not implement %s", c, t.Elem())
		}
	}
	return nil
}

// ── Constructor ───────────────────────────────────────────────────────────────

// Constructor is a function returning *T or (*T, error).
type Constructor struct {
	Func       any
	Params     []Param
	Designated bool
}

// Param carries the optional default literal of one constructor parameter.
type Param struct {
	Default *string
}

// Default declares a default literal for a parameter.
func Default(literal string) Param {
	return Param{Default: &literal}
}

// NoDefault is a placeholder for a parameter without a default literal.
var NoDefault = Param{}

// Arity is the number of parameters of the constructor function.
func (c Constructor) Arity() int {
	return reflect.TypeOf(c.Func).NumIn()
}

// DefaultFor returns the default literal of parameter i, if declared.
func (c Constructor) DefaultFor(i int) (string, bool) {
	if i < len(c.Params) && c.Params[i].Default != nil {
		return *c.Params[i].Default, true
	}
	return "", false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (c Constructor) validate(t reflect.Type) error {
	ft := reflect.TypeOf(c.Func)
	if ft == nil || ft.Kind() != reflect.Func {
		return fmt.Errorf("constructor must be a function, got %T", c.Func)
	}
	if ft.IsVariadic() {
		return fmt.Errorf("constructor %s must not be variadic", ft)
	}
	want := reflect.PointerTo(t)
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return fmt.Errorf("constructor %s: second result must be error", ft)
		}
	default:
		return fmt.Errorf("constructor %s must return *%s or (*%s, error)", ft, t.Name(), t.Name())
	}
	if ft.Out(0) != want {
		return fmt.Errorf("constructor %s must return %s", ft, want)
	}
	if len(c.Params) > ft.NumIn() {
		return fmt.Errorf("constructor %s: %d params declared for %d arguments", ft, len(c.Params), ft.NumIn())
	}
	return nil
}

// ── Method ────────────────────────────────────────────────────────────────────

// Method names a method on *T with its order (init) or priority (destroy).
type Method struct {
	Name  string
	Order int
}

// ── Binding ───────────────────────────────────────────────────────────────────

// BindingKind selects the source of a field value.
type BindingKind int

const (
	// InjectBinding binds a registered component.
	InjectBinding BindingKind = iota
	// PropertyBinding binds a Property Table entry.
	PropertyBinding
	// PersistBinding binds a value from the persistence service.
	PersistBinding
)

func (k BindingKind) String() string {
	switch k {
	case InjectBinding:
		return "inject"
	case PropertyBinding:
		return "property"
	case PersistBinding:
		return "persist"
	}
	return fmt.Sprintf("binding(%d)", int(k))
}

// Binding binds one struct field. It is the data form of the struct tags
//
//	inject:"key"
//	property:"key" default:"literal"
//	persist:"key"  default:"literal"
type Binding struct {
	Field   string
	Kind    BindingKind
	Key     string
	Default *string
}

// Inject binds field to the component under key (empty means the field's type key).
func Inject(field, key string) Binding {
	return Binding{Field: field, Kind: InjectBinding, Key: key}
}

// Property binds field to a Property Table key.
func Property(field, key string, def ...string) Binding {
	return Binding{Field: field, Kind: PropertyBinding, Key: key, Default: first(def)}
}

// Persist binds field to a persisted value (empty key means the field name).
func Persist(field, key string, def ...string) Binding {
	return Binding{Field: field, Kind: PersistBinding, Key: key, Default: first(def)}
}

func first(s []string) *string {
	if len(s) == 0 {
		return nil
	}
	v := s[0]
	return &v
}
