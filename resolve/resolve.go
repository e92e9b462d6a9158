// Decide which strategy applies to a type or a property.
//
// Every query walks the ancestry of the type, from the most specific
// level to the least specific. At each level, a registration on the
// `registry.Registry` beats a declaration (tags or `meta.Table`). The first
// level with an entry of either origin wins. A strategy attached to the
// property being populated beats all of them.
package resolve

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/property"
	"github.com/pasqal-io/yamlext/registry"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
)

// Where a winning entry comes from.
type Origin int

const (
	// No entry.
	None Origin = iota
	// Attached to the property being populated.
	Property
	// Registered at runtime.
	Programmatic
	// Read from tags or a `meta.Table`.
	Declarative
)

func (o Origin) String() string {
	switch o {
	case None:
		return "none"
	case Property:
		return "property"
	case Programmatic:
		return "programmatic"
	case Declarative:
		return "declarative"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// The winning entry of a query.
type Choice struct {
	Ref    strategy.Ref
	Origin Origin

	// The ancestry level the entry was found at, nil for property entries.
	Level reflect.Type
}

// Return true if some entry was found.
func (c Choice) Found() bool {
	return c.Origin != None
}

// What a strategy is requested for.
type Query struct {
	// The type to build.
	Type reflect.Type

	// The struct owning the property being populated, if any.
	Owner reflect.Type

	// The property being populated, if any.
	Property *property.Descriptor
}

func (q Query) propertyName() string {
	if q.Property == nil {
		return ""
	}
	return q.Property.Name
}

func (q Query) requester(role string) strategy.Requester {
	if q.Property != nil {
		return strategy.Requester{Role: role, Target: q.Owner, Property: q.Property.Name}
	}
	return strategy.Requester{Role: role, Target: q.Type, Property: ""}
}

type Resolver struct {
	introspector *property.Introspector
	registry     *registry.Registry
	witness      initialized.IsInitialized
}

func New(introspector *property.Introspector, reg *registry.Registry) *Resolver {
	return &Resolver{
		introspector: introspector,
		registry:     reg,
		witness:      initialized.Make(),
	}
}

func (r *Resolver) Introspector() *property.Introspector {
	return r.introspector
}

func (r *Resolver) Registry() *registry.Registry {
	return r.registry
}

// The ancestry of a type, most specific first.
//
// That is the type itself, then (for a pointer) the type it points to,
// then the embedded structs breadth-first, then every interface with a
// registration or a declaration that the type or a pointer to it
// implements, sorted by name.
func (r *Resolver) Ancestry(typ reflect.Type) ([]reflect.Type, error) {
	r.witness.Assert()
	result := []reflect.Type{typ}
	base := typ
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
		result = append(result, base)
	}
	info, err := r.introspector.Inspect(base)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	result = append(result, info.Embedded...)

	var interfaces []reflect.Type
	seen := make(map[reflect.Type]bool)
	candidates := append(r.registry.Interfaces(), r.introspector.Table().Types()...)
	for _, candidate := range candidates {
		if candidate.Kind() != reflect.Interface || candidate == base || seen[candidate] {
			continue
		}
		seen[candidate] = true
		if base.Implements(candidate) || (base.Kind() != reflect.Interface && reflect.PointerTo(base).Implements(candidate)) {
			interfaces = append(interfaces, candidate)
		}
	}
	sort.Slice(interfaces, func(i, j int) bool {
		return interfaces[i].String() < interfaces[j].String()
	})
	return append(result, interfaces...), nil
}

// Walk the ancestry, stopping at the first level with an entry.
func (r *Resolver) walk(typ reflect.Type, programmatic func(reflect.Type) (strategy.Ref, bool), declarative func(*property.TypeInfo) strategy.Ref) (Choice, error) {
	ancestry, err := r.Ancestry(typ)
	if err != nil {
		return Choice{}, err //nolint:exhaustruct
	}
	for _, level := range ancestry {
		if ref, ok := programmatic(level); ok {
			return Choice{Ref: ref, Origin: Programmatic, Level: level}, nil
		}
		if level.Kind() == reflect.Pointer {
			continue
		}
		info, err := r.introspector.Inspect(level)
		if err != nil {
			return Choice{}, err //nolint:exhaustruct,wrapcheck
		}
		if ref := declarative(info); !ref.IsZero() {
			return Choice{Ref: ref, Origin: Declarative, Level: level}, nil
		}
	}
	return Choice{}, nil //nolint:exhaustruct
}

// Find the construction strategy for a query.
func (r *Resolver) ConstructorChoice(query Query) (Choice, error) {
	r.witness.Assert()
	if query.Property != nil {
		if ref, ok := r.registry.PropertyConstructor(query.Owner, query.Property.Name); ok {
			return Choice{Ref: ref, Origin: Property, Level: nil}, nil
		}
		if !query.Property.Constructor.IsZero() {
			return Choice{Ref: query.Property.Constructor, Origin: Property, Level: nil}, nil
		}
	}
	return r.walk(query.Type, r.registry.Constructor, func(info *property.TypeInfo) strategy.Ref {
		return info.Decl.Constructor
	})
}

// Find and instantiate the construction strategy for a query.
//
// Returns nil if the default construction applies.
func (r *Resolver) Constructor(query Query) (strategy.Constructor, error) {
	choice, err := r.ConstructorChoice(query)
	if err != nil || !choice.Found() {
		return nil, err
	}
	return strategy.Resolve[strategy.Constructor](r.registry.Catalog(), choice.Ref, query.requester("constructor")) //nolint:wrapcheck
}

// Find the instantiator for a query, excluding the global instantiator.
func (r *Resolver) InstantiatorChoice(query Query) (Choice, error) {
	r.witness.Assert()
	if query.Property != nil {
		if ref, ok := r.registry.PropertyInstantiator(query.Owner, query.Property.Name); ok {
			return Choice{Ref: ref, Origin: Property, Level: nil}, nil
		}
		if !query.Property.Instantiator.IsZero() {
			return Choice{Ref: query.Property.Instantiator, Origin: Property, Level: nil}, nil
		}
	}
	return r.walk(query.Type, r.registry.Instantiator, func(info *property.TypeInfo) strategy.Ref {
		return info.Decl.Instantiator
	})
}

// Allocate an instance of `query.Type`.
//
// Tiers, highest first: the instantiator of the property, the instantiator
// of the type (walking the ancestry), the global instantiator, `reflect.New`.
// An instantiator may delegate to a lower tier through
// `InstantiationRequest.Default()` or `InstantiationRequest.Global()`.
//
// Returns a pointer to the new instance.
func (r *Resolver) Instantiate(query Query, n *node.Node, path string) (reflect.Value, error) {
	r.witness.Assert()
	typ := query.Type
	defaultFn := func() (reflect.Value, error) {
		return reflect.New(typ), nil
	}
	globalFn := defaultFn
	if ref, ok := r.registry.GlobalInstantiator(); ok {
		globalFn = func() (reflect.Value, error) {
			requester := strategy.Requester{Role: "global instantiator", Target: typ, Property: query.propertyName()}
			instantiator, err := strategy.Resolve[strategy.Instantiator](r.registry.Catalog(), ref, requester)
			if err != nil {
				return reflect.Value{}, err //nolint:wrapcheck
			}
			// The global instantiator delegates to reflection, never to itself.
			request := strategy.NewInstantiationRequest(typ, n, query.Owner, query.propertyName(), path, defaultFn, defaultFn)
			return r.runInstantiator(query, instantiator, ref, request, path)
		}
	}

	choice, err := r.InstantiatorChoice(query)
	if err != nil {
		return reflect.Value{}, err
	}
	if !choice.Found() {
		return globalFn()
	}
	instantiator, err := strategy.Resolve[strategy.Instantiator](r.registry.Catalog(), choice.Ref, query.requester("instantiator"))
	if err != nil {
		return reflect.Value{}, err //nolint:wrapcheck
	}
	request := strategy.NewInstantiationRequest(typ, n, query.Owner, query.propertyName(), path, defaultFn, globalFn)
	return r.runInstantiator(query, instantiator, choice.Ref, request, path)
}

func (r *Resolver) runInstantiator(query Query, instantiator strategy.Instantiator, ref strategy.Ref, request strategy.InstantiationRequest, path string) (reflect.Value, error) {
	typ := query.Type
	instance, err := instantiator.Instantiate(request)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("at %s, instantiator %s failed:\n\t * %w", path, ref, err)
	}
	value := reflect.ValueOf(instance)
	switch {
	case !value.IsValid():
		// Falls through to the error below.
	case value.Type() == reflect.PointerTo(typ) && !value.IsNil():
		return value, nil
	case value.Type().AssignableTo(typ):
		ptr := reflect.New(typ)
		ptr.Elem().Set(value)
		return ptr, nil
	}
	owner := query.Owner
	if owner == nil {
		owner = typ
	}
	var actual reflect.Type
	if value.IsValid() {
		actual = value.Type()
	}
	return reflect.Value{}, shared.PropertyAssignmentError{
		Type:     owner,
		Property: query.propertyName(),
		Expected: typ,
		Actual:   actual,
		Wrapped:  fmt.Errorf("instantiator %s must return a %s or a *%s", ref, shared.TypeName(typ), shared.TypeName(typ)),
	}
}

// Find the converter of a property.
func (r *Resolver) ConverterChoice(owner reflect.Type, descriptor *property.Descriptor) Choice {
	r.witness.Assert()
	if ref, ok := r.registry.Converter(owner, descriptor.Name); ok {
		return Choice{Ref: ref, Origin: Programmatic, Level: owner}
	}
	if !descriptor.Converter.IsZero() {
		return Choice{Ref: descriptor.Converter, Origin: Declarative, Level: owner}
	}
	return Choice{} //nolint:exhaustruct
}

// Find and instantiate the converter of a property, nil if there is none.
func (r *Resolver) Converter(owner reflect.Type, descriptor *property.Descriptor) (strategy.Converter, strategy.Ref, error) {
	choice := r.ConverterChoice(owner, descriptor)
	if !choice.Found() {
		return nil, choice.Ref, nil
	}
	requester := strategy.Requester{Role: "converter", Target: owner, Property: descriptor.Name}
	converter, err := strategy.Resolve[strategy.Converter](r.registry.Catalog(), choice.Ref, requester)
	return converter, choice.Ref, err //nolint:wrapcheck
}

// Instantiate the named dump predicate of a property, nil if there is none.
func (r *Resolver) SkipPredicate(owner reflect.Type, descriptor *property.Descriptor) (strategy.SkipPredicate, error) {
	r.witness.Assert()
	if descriptor.SkipDumpIf.IsZero() {
		return nil, nil
	}
	requester := strategy.Requester{Role: "dump predicate", Target: owner, Property: descriptor.Name}
	return strategy.Resolve[strategy.SkipPredicate](r.registry.Catalog(), descriptor.SkipDumpIf, requester) //nolint:wrapcheck
}

// Find the substitution candidates of a type.
//
// Only the exact type is consulted. A registration replaces the
// declaration for the same type.
func (r *Resolver) Substitution(typ reflect.Type) (registry.Substitution, bool, error) {
	r.witness.Assert()
	if substitution, ok := r.registry.Substitution(typ); ok {
		return substitution, true, nil
	}
	info, err := r.introspector.Inspect(typ)
	if err != nil {
		return registry.Substitution{}, false, err //nolint:exhaustruct,wrapcheck
	}
	decl := info.Decl
	if !decl.HasSubtypes() && decl.Selector.IsZero() {
		return registry.Substitution{}, false, nil //nolint:exhaustruct
	}
	candidates := append([]reflect.Type(nil), decl.Subtypes...)
	for _, name := range decl.SubtypeNames {
		candidate, ok := r.registry.Catalog().LookupType(name)
		if !ok {
			return registry.Substitution{}, false, fmt.Errorf("at %s, unknown subtype %q, did you register it in the catalog?", shared.TypeName(typ), name) //nolint:exhaustruct
		}
		candidates = append(candidates, candidate)
	}
	return registry.Substitution{
		Candidates:       candidates,
		Selector:         decl.Selector,
		DisableFiltering: false,
	}, true, nil
}

// Instantiate the selector of a substitution, nil if there is none.
func (r *Resolver) Selector(typ reflect.Type, substitution registry.Substitution) (strategy.Selector, error) {
	if substitution.Selector.IsZero() {
		return nil, nil
	}
	requester := strategy.Requester{Role: "selector", Target: typ, Property: ""}
	return strategy.Resolve[strategy.Selector](r.registry.Catalog(), substitution.Selector, requester) //nolint:wrapcheck
}
