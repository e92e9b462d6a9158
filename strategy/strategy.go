// Pluggable customization points of the pipeline.
//
// Each customization (construction strategy, instantiator, converter,
// subtype selector, dump predicate) is an interface. Declarations and
// registrations refer to implementations through a `Ref`, which a
// `Catalog` turns into an instance on demand.
package strategy

import (
	"reflect"

	"github.com/pasqal-io/yamlext/node"
)

// The information handed to a construction strategy.
type ConstructionContext struct {
	// The node being constructed.
	Node *node.Node

	// The type to construct.
	Type reflect.Type

	// The type containing the property being populated, nil at the root
	// of the document or inside collections.
	Owner reflect.Type

	// The natural name of the property being populated, if any.
	Property string

	// A human-readable path, for error messages.
	Path string

	construct func(n *node.Node, typ reflect.Type) (reflect.Value, error)
}

// Build a context. Used by the pipeline.
func NewConstructionContext(n *node.Node, typ reflect.Type, owner reflect.Type, property string, path string, construct func(*node.Node, reflect.Type) (reflect.Value, error)) ConstructionContext {
	return ConstructionContext{
		Node:      n,
		Type:      typ,
		Owner:     owner,
		Property:  property,
		Path:      path,
		construct: construct,
	}
}

// Construct the node with the default routine, as if no strategy had been
// registered for this type.
func (ctx ConstructionContext) Default() (any, error) {
	return ctx.DefaultAs(ctx.Node, ctx.Type)
}

// Construct any node as any type with the default routine.
func (ctx ConstructionContext) DefaultAs(n *node.Node, typ reflect.Type) (any, error) {
	result, err := ctx.construct(n, typ)
	if err != nil {
		return nil, err
	}
	return result.Interface(), nil
}

// A construction strategy: builds a value of `ctx.Type` from `ctx.Node`.
//
// The result must be assignable or convertible to `ctx.Type`.
type Constructor interface {
	Construct(ctx ConstructionContext) (any, error)
}

// Adapt a function into a Constructor.
type ConstructorFunc func(ctx ConstructionContext) (any, error)

func (f ConstructorFunc) Construct(ctx ConstructionContext) (any, error) {
	return f(ctx)
}

// The information handed to an instantiator.
type InstantiationRequest struct {
	// The type to instantiate. Never a pointer type.
	Type reflect.Type

	// The node the instance will be populated from.
	Node *node.Node

	// The type containing the property being populated, if any.
	Owner reflect.Type

	// The natural name of the property being populated, if any.
	Property string

	// A human-readable path, for error messages.
	Path string

	defaultFn func() (reflect.Value, error)
	globalFn  func() (reflect.Value, error)
}

// Build a request. Used by the pipeline.
func NewInstantiationRequest(typ reflect.Type, n *node.Node, owner reflect.Type, property string, path string, defaultFn func() (reflect.Value, error), globalFn func() (reflect.Value, error)) InstantiationRequest {
	return InstantiationRequest{
		Type:      typ,
		Node:      n,
		Owner:     owner,
		Property:  property,
		Path:      path,
		defaultFn: defaultFn,
		globalFn:  globalFn,
	}
}

// Delegate to reflective instantiation. Returns a pointer to a zero value.
func (req InstantiationRequest) Default() (any, error) {
	result, err := req.defaultFn()
	if err != nil {
		return nil, err
	}
	return result.Interface(), nil
}

// Delegate to the process-wide instantiator, or to reflective instantiation
// if there is none.
func (req InstantiationRequest) Global() (any, error) {
	result, err := req.globalFn()
	if err != nil {
		return nil, err
	}
	return result.Interface(), nil
}

// An instantiator: allocates the instance that the pipeline then populates.
//
// The result must be a `*T` or a `T`, where `T` is `req.Type`.
type Instantiator interface {
	Instantiate(req InstantiationRequest) (any, error)
}

// Adapt a function into an Instantiator.
type InstantiatorFunc func(req InstantiationRequest) (any, error)

func (f InstantiatorFunc) Instantiate(req InstantiationRequest) (any, error) {
	return f(req)
}

// A bidirectional transform between the model value of a property and its
// YAML-level value.
type Converter interface {
	// Convert a value (either the plain value extracted from the document
	// or the result of a construction strategy) into a value assignable to
	// `target`.
	ToModel(value any, target reflect.Type) (any, error)

	// Convert a model value into a value to represent in the document.
	ToYAML(value any) (any, error)
}

// Picks one concrete type among substitution candidates.
type Selector interface {
	Select(n *node.Node, declared reflect.Type, candidates []reflect.Type) (reflect.Type, error)
}

// Adapt a function into a Selector.
type SelectorFunc func(n *node.Node, declared reflect.Type, candidates []reflect.Type) (reflect.Type, error)

func (f SelectorFunc) Select(n *node.Node, declared reflect.Type, candidates []reflect.Type) (reflect.Type, error) {
	return f(n, declared, candidates)
}

// Implemented by selectors that take over compatibility filtering. If
// `DisableFiltering()` returns true, `Select` receives every candidate,
// unfiltered.
type UnfilteredSelector interface {
	Selector
	DisableFiltering() bool
}

// Decides whether a property is left out of a dump.
type SkipPredicate interface {
	Skip(bean any, property string, value any, tag string) (bool, error)
}

// Adapt a function into a SkipPredicate.
type SkipPredicateFunc func(bean any, property string, value any, tag string) (bool, error)

func (f SkipPredicateFunc) Skip(bean any, property string, value any, tag string) (bool, error) {
	return f(bean, property, value, tag)
}
