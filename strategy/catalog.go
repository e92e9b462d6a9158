package strategy

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/validation"
)

var (
	// ErrEmptyName is returned when an empty name is provided.
	ErrEmptyName = errors.New("yamlext(catalog): empty name provided")
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("yamlext(catalog): nil reflect.Type provided")
	// ErrConflictingRegistration indicates an attempt to re-register
	// a name with a different target.
	ErrConflictingRegistration = errors.New("yamlext(catalog): conflicting registration")
	// ErrIndirectRef indicates an attempt to register a name for another name.
	ErrIndirectRef = errors.New("yamlext(catalog): a name cannot be registered as another name")
)

// A reference to a strategy: a name to lookup in a `Catalog`, a type to
// instantiate reflectively, a factory or a ready-made instance.
type Ref struct {
	name     string
	class    reflect.Type
	factory  func() (any, error)
	instance any
}

// Refer to a strategy registered in the catalog under `name`.
func Named(name string) Ref {
	return Ref{name: name} //nolint:exhaustruct
}

// Refer to a strategy type, instantiated with `reflect.New`.
//
// If `*T` implements `validation.Initializer`, `Initialize()` is called on
// the new instance.
func Class(class reflect.Type) Ref {
	return Ref{class: class} //nolint:exhaustruct
}

// Refer to strategy type `T`.
func ClassOf[T any]() Ref {
	return Class(reflect.TypeOf((*T)(nil)).Elem())
}

// Refer to a factory for a strategy.
func Factory(factory func() (any, error)) Ref {
	return Ref{factory: factory} //nolint:exhaustruct
}

// Refer to a ready-made strategy.
func Instance(instance any) Ref {
	return Ref{instance: instance} //nolint:exhaustruct
}

// Return true if this reference refers to nothing.
func (r Ref) IsZero() bool {
	return r.name == "" && r.class == nil && r.factory == nil && r.instance == nil
}

// The name of a `Named` reference, or "".
func (r Ref) Name() string {
	return r.name
}

func (r Ref) String() string {
	switch {
	case r.name != "":
		return r.name
	case r.class != nil:
		return r.class.String()
	case r.factory != nil:
		return "<factory>"
	case r.instance != nil:
		return fmt.Sprintf("%T", r.instance)
	default:
		return "<none>"
	}
}

// A catalog of named strategies and named types.
//
// Names let struct tags refer to strategies (`convert:"meters"`) and to
// substitution candidates (`subtypes:"Dog,Cat"`). A catalog belongs to a
// single pipeline and is not safe for concurrent registration.
type Catalog struct {
	strategies map[string]Ref
	types      map[string]reflect.Type
	names      map[reflect.Type]string

	// Instances already created from names and classes.
	byName  map[string]any
	byClass map[reflect.Type]any

	witness initialized.IsInitialized
}

func NewCatalog() *Catalog {
	return &Catalog{
		strategies: make(map[string]Ref),
		types:      make(map[string]reflect.Type),
		names:      make(map[reflect.Type]string),
		byName:     make(map[string]any),
		byClass:    make(map[reflect.Type]any),
		witness:    initialized.Make(),
	}
}

// Register a strategy under a name.
//
// It is idempotent for the same (name, instance) or (name, class) pair.
func (c *Catalog) Register(name string, ref Ref) error {
	c.witness.Assert()
	if name == "" {
		return ErrEmptyName
	}
	if ref.name != "" {
		return ErrIndirectRef
	}
	if ref.IsZero() {
		return fmt.Errorf("yamlext(catalog): cannot register empty reference as %s", name)
	}
	if old, ok := c.strategies[name]; ok {
		if old.class != nil && old.class == ref.class {
			return nil
		}
		if old.instance != nil && ref.instance != nil && reflect.TypeOf(old.instance).Comparable() && reflect.TypeOf(ref.instance).Comparable() && old.instance == ref.instance {
			return nil
		}
		return fmt.Errorf("%w: strategy %s", ErrConflictingRegistration, name)
	}
	c.strategies[name] = ref
	return nil
}

// Register a type under a name. Each type has at most one name.
func (c *Catalog) RegisterType(name string, typ reflect.Type) error {
	c.witness.Assert()
	if name == "" {
		return ErrEmptyName
	}
	if typ == nil {
		return ErrNilType
	}
	if old, ok := c.types[name]; ok {
		if old == typ {
			return nil
		}
		return fmt.Errorf("%w: type name %s", ErrConflictingRegistration, name)
	}
	if old, ok := c.names[typ]; ok {
		return fmt.Errorf("%w: type %s is already registered as %s", ErrConflictingRegistration, typ, old)
	}
	c.types[name] = typ
	c.names[typ] = name
	return nil
}

// Lookup a type by name.
func (c *Catalog) LookupType(name string) (reflect.Type, bool) {
	c.witness.Assert()
	typ, ok := c.types[name]
	return typ, ok
}

// Lookup the name of a type.
func (c *Catalog) TypeName(typ reflect.Type) (string, bool) {
	c.witness.Assert()
	name, ok := c.names[typ]
	return name, ok
}

// Forget a strategy name and any instance created from it.
func (c *Catalog) Unregister(name string) {
	c.witness.Assert()
	delete(c.strategies, name)
	delete(c.byName, name)
}

// Forget everything.
func (c *Catalog) Reset() {
	c.witness.Assert()
	c.strategies = make(map[string]Ref)
	c.types = make(map[string]reflect.Type)
	c.names = make(map[reflect.Type]string)
	c.byName = make(map[string]any)
	c.byClass = make(map[reflect.Type]any)
}

// Turn a reference into an instance.
//
// Instances created from names and classes are cached, so a stateless
// strategy is instantiated once per catalog. On failure, returns a
// `shared.StrategyInstantiationError` whose requester fields are blank.
func (c *Catalog) Instantiate(ref Ref) (any, error) {
	c.witness.Assert()
	switch {
	case ref.instance != nil:
		return ref.instance, nil
	case ref.name != "":
		if cached, ok := c.byName[ref.name]; ok {
			return cached, nil
		}
		registered, ok := c.strategies[ref.name]
		if !ok {
			return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
				Strategy: ref.name,
				Reason:   "no strategy registered under this name",
			}
		}
		result, err := c.Instantiate(registered)
		if err != nil {
			var instErr shared.StrategyInstantiationError
			if errors.As(err, &instErr) {
				instErr.Strategy = fmt.Sprintf("%s (%s)", ref.name, instErr.Strategy)
				return nil, instErr
			}
			return nil, err
		}
		c.byName[ref.name] = result
		return result, nil
	case ref.class != nil:
		if cached, ok := c.byClass[ref.class]; ok {
			return cached, nil
		}
		result, err := instantiateClass(ref.class)
		if err != nil {
			return nil, err
		}
		c.byClass[ref.class] = result
		return result, nil
	case ref.factory != nil:
		return callFactory(ref)
	default:
		return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
			Strategy: ref.String(),
			Reason:   "empty reference",
		}
	}
}

func instantiateClass(class reflect.Type) (any, error) {
	base := class
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Interface {
		return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
			Strategy: class.String(),
			Reason:   "an interface type cannot be instantiated",
		}
	}
	ptr := reflect.New(base)
	if initializer, ok := ptr.Interface().(validation.Initializer); ok {
		if err := initializer.Initialize(); err != nil {
			return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
				Strategy: class.String(),
				Reason:   "initialization failed",
				Wrapped:  err,
			}
		}
	}
	return ptr.Interface(), nil
}

func callFactory(ref Ref) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = shared.StrategyInstantiationError{ //nolint:exhaustruct
				Strategy: ref.String(),
				Reason:   fmt.Sprintf("factory panicked: %v", recovered),
			}
		}
	}()
	result, err = ref.factory()
	if err != nil {
		return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
			Strategy: ref.String(),
			Reason:   "factory failed",
			Wrapped:  err,
		}
	}
	if result == nil {
		return nil, shared.StrategyInstantiationError{ //nolint:exhaustruct
			Strategy: ref.String(),
			Reason:   "factory returned nil",
		}
	}
	return result, nil
}

// Who is asking for a strategy, for error messages.
type Requester struct {
	Role     string
	Target   reflect.Type
	Property string
}

// Turn a reference into an instance of strategy interface `S`.
func Resolve[S any](c *Catalog, ref Ref, requester Requester) (S, error) {
	var zero S
	instance, err := c.Instantiate(ref)
	if err != nil {
		var instErr shared.StrategyInstantiationError
		if errors.As(err, &instErr) {
			instErr.Role, instErr.Target, instErr.Property = requester.Role, requester.Target, requester.Property
			return zero, instErr
		}
		return zero, err
	}
	result, ok := instance.(S)
	if !ok {
		return zero, shared.StrategyInstantiationError{ //nolint:exhaustruct
			Strategy: ref.String(),
			Role:     requester.Role,
			Target:   requester.Target,
			Property: requester.Property,
			Reason:   fmt.Sprintf("%T does not implement %s", instance, reflect.TypeOf((*S)(nil)).Elem()),
		}
	}
	return result, nil
}
