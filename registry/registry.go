// Programmatic registrations of a pipeline.
//
// A `Registry` holds the runtime counterpart of struct tags and table
// declarations: strategies registered for a type or for one property of a
// type, the process-wide instantiator and substitution candidates. At the
// same level of the ancestry, a registration always beats a declaration.
//
// A registry belongs to a single pipeline. It is not safe for concurrent
// registration and resolution.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/strategy"
)

// ErrEmptyRef is returned when registering a reference to nothing.
var ErrEmptyRef = errors.New("yamlext(registry): empty strategy reference")

// Substitution candidates for a type.
type Substitution struct {
	// The concrete candidates, in order of preference.
	Candidates []reflect.Type

	// An optional `strategy.Selector` picking among candidates.
	Selector strategy.Ref

	// If true, the selector receives every candidate, unfiltered.
	DisableFiltering bool
}

type propertyKey struct {
	typ      reflect.Type
	property string
}

type Registry struct {
	catalog *strategy.Catalog

	constructors          map[reflect.Type]strategy.Ref
	propertyConstructors  map[propertyKey]strategy.Ref
	instantiators         map[reflect.Type]strategy.Ref
	propertyInstantiators map[propertyKey]strategy.Ref
	converters            map[propertyKey]strategy.Ref
	substitutions         map[reflect.Type]Substitution
	global                strategy.Ref

	witness initialized.IsInitialized
}

func New() *Registry {
	return &Registry{
		catalog:               strategy.NewCatalog(),
		constructors:          make(map[reflect.Type]strategy.Ref),
		propertyConstructors:  make(map[propertyKey]strategy.Ref),
		instantiators:         make(map[reflect.Type]strategy.Ref),
		propertyInstantiators: make(map[propertyKey]strategy.Ref),
		converters:            make(map[propertyKey]strategy.Ref),
		substitutions:         make(map[reflect.Type]Substitution),
		global:                strategy.Ref{}, //nolint:exhaustruct
		witness:               initialized.Make(),
	}
}

// The catalog of named strategies and named types.
func (r *Registry) Catalog() *strategy.Catalog {
	r.witness.Assert()
	return r.catalog
}

func check(typ reflect.Type, ref strategy.Ref) error {
	if typ == nil {
		return strategy.ErrNilType
	}
	if ref.IsZero() {
		return fmt.Errorf("%w for %s", ErrEmptyRef, typ)
	}
	return nil
}

// Register the construction strategy of a type.
func (r *Registry) RegisterConstructor(typ reflect.Type, ref strategy.Ref) error {
	r.witness.Assert()
	if err := check(typ, ref); err != nil {
		return err
	}
	r.constructors[typ] = ref
	return nil
}

// Register the construction strategy of one property of a struct type.
//
// `property` is the natural name of the property.
func (r *Registry) RegisterPropertyConstructor(typ reflect.Type, property string, ref strategy.Ref) error {
	r.witness.Assert()
	if err := check(typ, ref); err != nil {
		return err
	}
	r.propertyConstructors[propertyKey{typ: typ, property: property}] = ref
	return nil
}

// Register the instantiator of a type.
func (r *Registry) RegisterInstantiator(typ reflect.Type, ref strategy.Ref) error {
	r.witness.Assert()
	if err := check(typ, ref); err != nil {
		return err
	}
	r.instantiators[typ] = ref
	return nil
}

// Register the instantiator of one property of a struct type.
func (r *Registry) RegisterPropertyInstantiator(typ reflect.Type, property string, ref strategy.Ref) error {
	r.witness.Assert()
	if err := check(typ, ref); err != nil {
		return err
	}
	r.propertyInstantiators[propertyKey{typ: typ, property: property}] = ref
	return nil
}

// Set the instantiator used when neither the property nor the type
// has one. A zero reference restores reflective instantiation.
func (r *Registry) SetGlobalInstantiator(ref strategy.Ref) {
	r.witness.Assert()
	r.global = ref
}

// Register the converter of one property of a struct type.
func (r *Registry) RegisterConverter(typ reflect.Type, property string, ref strategy.Ref) error {
	r.witness.Assert()
	if err := check(typ, ref); err != nil {
		return err
	}
	r.converters[propertyKey{typ: typ, property: property}] = ref
	return nil
}

// Register the substitution candidates of a type.
//
// This replaces any declaration for the exact same type, candidates and
// selector alike.
func (r *Registry) RegisterSubtypes(typ reflect.Type, substitution Substitution) error {
	r.witness.Assert()
	if typ == nil {
		return strategy.ErrNilType
	}
	if len(substitution.Candidates) == 0 && substitution.Selector.IsZero() {
		return fmt.Errorf("yamlext(registry): no candidates and no selector for %s", typ)
	}
	for _, candidate := range substitution.Candidates {
		if candidate == nil {
			return fmt.Errorf("%w among the candidates of %s", strategy.ErrNilType, typ)
		}
	}
	substitution.Candidates = append([]reflect.Type(nil), substitution.Candidates...)
	r.substitutions[typ] = substitution
	return nil
}

func (r *Registry) UnregisterConstructor(typ reflect.Type) {
	r.witness.Assert()
	delete(r.constructors, typ)
}

func (r *Registry) UnregisterPropertyConstructor(typ reflect.Type, property string) {
	r.witness.Assert()
	delete(r.propertyConstructors, propertyKey{typ: typ, property: property})
}

func (r *Registry) UnregisterInstantiator(typ reflect.Type) {
	r.witness.Assert()
	delete(r.instantiators, typ)
}

func (r *Registry) UnregisterPropertyInstantiator(typ reflect.Type, property string) {
	r.witness.Assert()
	delete(r.propertyInstantiators, propertyKey{typ: typ, property: property})
}

func (r *Registry) UnregisterConverter(typ reflect.Type, property string) {
	r.witness.Assert()
	delete(r.converters, propertyKey{typ: typ, property: property})
}

func (r *Registry) UnregisterSubtypes(typ reflect.Type) {
	r.witness.Assert()
	delete(r.substitutions, typ)
}

// Forget every registration, including the catalog.
func (r *Registry) Reset() {
	r.witness.Assert()
	r.catalog.Reset()
	r.constructors = make(map[reflect.Type]strategy.Ref)
	r.propertyConstructors = make(map[propertyKey]strategy.Ref)
	r.instantiators = make(map[reflect.Type]strategy.Ref)
	r.propertyInstantiators = make(map[propertyKey]strategy.Ref)
	r.converters = make(map[propertyKey]strategy.Ref)
	r.substitutions = make(map[reflect.Type]Substitution)
	r.global = strategy.Ref{} //nolint:exhaustruct
}

func (r *Registry) Constructor(typ reflect.Type) (strategy.Ref, bool) {
	r.witness.Assert()
	ref, ok := r.constructors[typ]
	return ref, ok
}

func (r *Registry) PropertyConstructor(typ reflect.Type, property string) (strategy.Ref, bool) {
	r.witness.Assert()
	ref, ok := r.propertyConstructors[propertyKey{typ: typ, property: property}]
	return ref, ok
}

func (r *Registry) Instantiator(typ reflect.Type) (strategy.Ref, bool) {
	r.witness.Assert()
	ref, ok := r.instantiators[typ]
	return ref, ok
}

func (r *Registry) PropertyInstantiator(typ reflect.Type, property string) (strategy.Ref, bool) {
	r.witness.Assert()
	ref, ok := r.propertyInstantiators[propertyKey{typ: typ, property: property}]
	return ref, ok
}

func (r *Registry) GlobalInstantiator() (strategy.Ref, bool) {
	r.witness.Assert()
	return r.global, !r.global.IsZero()
}

func (r *Registry) Converter(typ reflect.Type, property string) (strategy.Ref, bool) {
	r.witness.Assert()
	ref, ok := r.converters[propertyKey{typ: typ, property: property}]
	return ref, ok
}

func (r *Registry) Substitution(typ reflect.Type) (Substitution, bool) {
	r.witness.Assert()
	substitution, ok := r.substitutions[typ]
	return substitution, ok
}

// Every interface type with at least one type-level registration, sorted
// by name.
func (r *Registry) Interfaces() []reflect.Type {
	r.witness.Assert()
	seen := make(map[reflect.Type]bool)
	var result []reflect.Type
	collect := func(typ reflect.Type) {
		if typ.Kind() == reflect.Interface && !seen[typ] {
			seen[typ] = true
			result = append(result, typ)
		}
	}
	for typ := range r.constructors {
		collect(typ)
	}
	for typ := range r.instantiators {
		collect(typ)
	}
	for typ := range r.substitutions {
		collect(typ)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}
