// Build Go values from YAML nodes.
//
// Out of the box, `gopkg.in/yaml.v3` maps keys to fields by name and lets
// types take over with `UnmarshalYAML`. This package adds the customization
// points declared with `meta`, `registry` and struct tags:
//
//   - `alias:"XXX"` renames a property for loading, and the natural name is
//     then rejected (this catches documents that still use the old key);
//   - `construct:"XXX"` and `instantiate:"XXX"` replace the construction or
//     the allocation of a value, for a property or (on a `meta.Type` marker)
//     for a type, with programmatic registrations taking precedence;
//   - `convert:"XXX"` transforms the document value of a property into its
//     model value;
//   - `ignoreErrors:""` leaves a property unset instead of failing the whole
//     document;
//   - `anySetter` collects keys that match no property;
//   - interface-typed values are resolved to one of their declared subtypes,
//     or to the type named by a local tag such as `!Dog`;
//   - `default:"XXX"` provides a value (in YAML) for absent keys.
//
// Same behavior as `gopkg.in/yaml.v3`:
//   - lower-case field names mean that we NEVER accept external data;
//   - a field renamed to `yaml:"-"` will not accept external data;
//   - a type implementing `yaml.Unmarshaler` builds itself (with the yaml
//     driver, see `deserialize/yaml`).
//
// Different behavior:
//   - unknown keys are an error, unless the type has an any-setter or
//     skip-missing mode is enabled;
//   - if a value implements `validation.Initializer`, we run the initializer
//     before assigning its properties, and `validation.Validator` after;
//   - a scalar or a mapping where a sequence is expected is loaded as a
//     sequence of one item.
package deserialize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/property"
	"github.com/pasqal-io/yamlext/resolve"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
	"github.com/pasqal-io/yamlext/subtype"
	"github.com/pasqal-io/yamlext/validation"
)

// -------- Public API --------

// Options for building a loader.
type Options struct {
	// Human-readable information on the document being loaded, used
	// for logging and error messages, e.g. the name of a file.
	//
	// Optional. If you leave this blank, paths start with the name of
	// the root type.
	RootPath string

	// If true, keys that match no property are dropped, for every type,
	// bypassing any-setters.
	SkipMissing bool

	// A driver for types that build themselves, e.g. `yaml.Driver{}`.
	//
	// Optional.
	Driver shared.Driver
}

// A loader, scoped to one pipeline.
//
// Not safe for concurrent use.
type Loader struct {
	options  Options
	resolver *resolve.Resolver
	driver   shared.Driver
	witness  initialized.IsInitialized
}

func NewLoader(resolver *resolve.Resolver, options Options) *Loader {
	driver := options.Driver
	if driver == nil {
		driver = shared.NoDriver{}
	}
	return &Loader{
		options:  options,
		resolver: resolver,
		driver:   driver,
		witness:  initialized.Make(),
	}
}

// Build a value of type `typ` from a node.
func (l *Loader) BuildObject(n *node.Node, typ reflect.Type) (reflect.Value, error) {
	l.witness.Assert()
	return l.build(l.root(typ), n, typ)
}

// Build a node into `out`, which must be a non-nil pointer.
func (l *Loader) LoadInto(n *node.Node, out any) error {
	l.witness.Assert()
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("expected a non-nil pointer, got %T", out)
	}
	typ := ptr.Type().Elem()
	value, err := l.build(l.root(typ), n, typ)
	if err != nil {
		return err
	}
	ptr.Elem().Set(value)
	return nil
}

// Build a sequence of `item` from a node.
//
// Every item of the sequence is tagged with `item` before construction.
// A node that is not a sequence is loaded as a sequence of one item.
func (l *Loader) LoadSequence(n *node.Node, item reflect.Type) (reflect.Value, error) {
	l.witness.Assert()
	if n.IsNull() {
		return reflect.MakeSlice(reflect.SliceOf(item), 0, 0), nil
	}
	if n.Kind != node.SequenceKind {
		n = node.Sequence(n)
	}
	for _, child := range n.Items {
		if child.Type == nil {
			child.Type = item
		}
	}
	typ := reflect.SliceOf(item)
	return l.build(l.root(typ), n, typ)
}

// Build the value of a property from a node and write it into `container`,
// an addressable struct value.
//
// If the property is marked with `ignoreErrors`, errors are logged and the
// property is left untouched.
func (l *Loader) BuildProperty(container reflect.Value, descriptor *property.Descriptor, n *node.Node) error {
	l.witness.Assert()
	f := l.root(container.Type())
	return l.buildProperty(f, container, descriptor, n)
}

// An error that arises because of a bug in a custom hook: an initializer,
// a construction strategy or an instantiator.
type CustomDeserializerError struct {
	// The operation that failed, e.g. "initialize", "construct".
	Operation string

	// The kind of value we were applying it to, e.g. "struct", "property".
	Structure string

	// The underlying error.
	Wrapped error
}

// Return the user-facing message.
func (e CustomDeserializerError) Error() string {
	return e.Wrapped.Error()
}

// Unwrap the error.
func (e CustomDeserializerError) Unwrap() error {
	return e.Wrapped
}

var _ error = CustomDeserializerError{} //nolint:exhaustruct

// ----------------- Private

// Where we are in the document.
type frame struct {
	// A human-readable path, for error messages.
	path string

	// The struct owning the property being built, if any.
	owner reflect.Type

	// The property being built, if any. Reset when entering its content.
	property *property.Descriptor
}

func (l *Loader) root(typ reflect.Type) frame {
	path := l.options.RootPath
	if path == "" {
		path = shared.TypeName(typ)
	}
	return frame{path: path, owner: nil, property: nil}
}

// The frame of the content of the current value, e.g. a field or an item.
func (f frame) child(path string) frame {
	return frame{path: path, owner: nil, property: nil}
}

func (f frame) query(typ reflect.Type) resolve.Query {
	return resolve.Query{Type: typ, Owner: f.owner, Property: f.property}
}

func (f frame) propertyName() string {
	if f.property == nil {
		return ""
	}
	return f.property.Name
}

// The interfaces we use throughout the code to pre-initialize and validate structs.
var (
	initializerInterface = reflect.TypeOf((*validation.Initializer)(nil)).Elem()
	validatorInterface   = reflect.TypeOf((*validation.Validator)(nil)).Elem()
)

// Build a value of type `declared`, after picking its concrete type.
func (l *Loader) build(f frame, n *node.Node, declared reflect.Type) (reflect.Value, error) {
	concrete, err := l.concreteType(f, n, declared)
	if err != nil {
		return reflect.Value{}, err
	}
	value, err := l.buildConcrete(f, n, concrete)
	if err != nil {
		return reflect.Value{}, err
	}
	if concrete == declared {
		return value, nil
	}
	return adapt(f, value, declared)
}

// Pick the type a node is built as: a type set on the node, a type named by
// its local tag, or a subtype picked among declared candidates.
func (l *Loader) concreteType(f frame, n *node.Node, declared reflect.Type) (reflect.Type, error) {
	if n.IsNull() {
		return declared, nil
	}
	if n.Type != nil && n.Type != declared {
		switch {
		case n.Type.Kind() == reflect.Pointer && n.Type.Elem() == declared:
			// Building the content of a pointer.
		case subtype.Compatible(n.Type, declared):
			return n.Type, nil
		default:
			return nil, fmt.Errorf("at %s, a %s cannot stand for a %s", f.path, shared.TypeName(n.Type), shared.TypeName(declared))
		}
	}
	if tag, ok := n.LocalTag(); ok {
		named, found := l.resolver.Registry().Catalog().LookupType(tag)
		switch {
		case found && subtype.Compatible(named, declared):
			return named, nil
		case found:
			return nil, fmt.Errorf("at %s, type !%s (%s) cannot stand for a %s", f.path, tag, shared.TypeName(named), shared.TypeName(declared))
		case declared.Kind() == reflect.Interface && declared.NumMethod() > 0:
			return nil, fmt.Errorf("at %s, unknown type tag !%s", f.path, tag)
		}
	}

	substitution, ok, err := l.resolver.Substitution(declared)
	if err != nil {
		return nil, fmt.Errorf("at %s, cannot setup subtypes of %s:\n\t * %w", f.path, shared.TypeName(declared), err)
	}
	if !ok {
		return declared, nil
	}
	selector, err := l.resolver.Selector(declared, substitution)
	if err != nil {
		return nil, fmt.Errorf("at %s:\n\t * %w", f.path, err)
	}
	trial := func(clone *node.Node, candidate reflect.Type) error {
		_, err := l.buildConcrete(f, clone, candidate)
		return err
	}
	chosen, err := subtype.Select(n, declared, substitution, selector, trial)
	if err != nil {
		return nil, fmt.Errorf("at %s:\n\t * %w", f.path, err)
	}
	n.Type = chosen
	return chosen, nil
}

// Build a value of exactly type `typ`, applying its construction strategy if any.
//
// Pointers are transparent: strategies apply to the pointed type.
func (l *Loader) buildConcrete(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if typ.Kind() == reflect.Pointer {
		return l.buildDefault(f, n, typ)
	}
	constructor, err := l.resolver.Constructor(f.query(typ))
	if err != nil {
		return reflect.Value{}, fmt.Errorf("at %s:\n\t * %w", f.path, err)
	}
	if constructor == nil {
		return l.buildDefault(f, n, typ)
	}
	result, err := l.construct(f, constructor, n, typ)
	if err != nil {
		return reflect.Value{}, err
	}
	return coerce(f, reflect.ValueOf(result), typ)
}

// Run a construction strategy.
func (l *Loader) construct(f frame, constructor strategy.Constructor, n *node.Node, typ reflect.Type) (any, error) {
	defaultRoutine := func(n *node.Node, typ reflect.Type) (reflect.Value, error) {
		return l.buildDefault(f, n, typ)
	}
	ctx := strategy.NewConstructionContext(n, typ, f.owner, f.propertyName(), f.path, defaultRoutine)
	result, err := constructor.Construct(ctx)
	if err != nil {
		return nil, CustomDeserializerError{
			Operation: "construct",
			Structure: typ.Kind().String(),
			Wrapped:   fmt.Errorf("at %s, constructor %T failed to build a %s:\n\t * %w", f.path, constructor, shared.TypeName(typ), err),
		}
	}
	return result, nil
}

// Build a value of type `typ` without looking for a construction strategy
// for `typ` itself. Nested values still get theirs.
func (l *Loader) buildDefault(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if l.driver.ShouldUnmarshal(typ) {
		ptr := reflect.New(typ)
		if err := l.driver.Unmarshal(n, ptr.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("at %s, expected to be able to parse a %s:\n\t * %w", f.path, shared.TypeName(typ), err)
		}
		return ptr.Elem(), nil
	}
	if n.IsNull() {
		return reflect.Zero(typ), nil
	}
	if n.Kind == node.ScalarKind {
		if parser := shared.LookupParser(typ); parser != nil {
			return buildScalar(f, n, typ, *parser)
		}
	}

	switch typ.Kind() {
	case reflect.Pointer:
		return l.buildPointer(f, n, typ)
	case reflect.Struct:
		return l.buildStruct(f, n, typ)
	case reflect.Map:
		return l.buildMap(f, n, typ)
	case reflect.Slice, reflect.Array:
		return l.buildSlice(f, n, typ)
	case reflect.Interface:
		return l.buildInterface(f, n, typ)
	default:
		return reflect.Value{}, fmt.Errorf("at %s, expected a %s, got a %s", f.path, shared.TypeName(typ), n.Kind)
	}
}

func buildScalar(f frame, n *node.Node, typ reflect.Type, parser shared.Parser) (reflect.Value, error) {
	parsed, err := parser(n.Value)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("at %s, invalid value %q for %s:\n\t * %w", f.path, n.Value, shared.TypeName(typ), err)
	}
	return reflect.ValueOf(parsed).Convert(typ), nil
}

func (l *Loader) buildPointer(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	elem, err := l.build(f, n, typ.Elem())
	if err != nil {
		return reflect.Value{}, err
	}
	if elem.CanAddr() {
		// Keep the instance allocated by the instantiator.
		return elem.Addr(), nil
	}
	ptr := reflect.New(typ.Elem())
	ptr.Elem().Set(elem)
	return ptr, nil
}

// Build a struct, property by property.
func (l *Loader) buildStruct(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if n.Kind != node.MappingKind {
		return reflect.Value{}, fmt.Errorf("invalid value at %s, expected an object of type %s, got a %s", f.path, shared.TypeName(typ), n.Kind)
	}
	info, err := l.resolver.Introspector().Inspect(typ)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("could not setup %s:\n\t * %w", shared.TypeName(typ), err)
	}
	canInitialize, err := canInterface(typ, initializerInterface)
	if err != nil {
		return reflect.Value{}, err
	}
	canValidate, err := canInterface(typ, validatorInterface)
	if err != nil {
		return reflect.Value{}, err
	}

	resultPtr, err := l.resolver.Instantiate(f.query(typ), n, f.path)
	if err != nil {
		return reflect.Value{}, CustomDeserializerError{
			Operation: "instantiate",
			Structure: "struct",
			Wrapped:   err,
		}
	}
	container := resultPtr.Elem()

	// If possible, perform pre-initialization with default values.
	if canInitialize {
		if initializer, ok := resultPtr.Interface().(validation.Initializer); ok {
			if err = initializer.Initialize(); err != nil {
				err = fmt.Errorf("at %s, encountered an error while initializing optional fields:\n\t * %w", f.path, err)
				slog.Error("Internal error during deserialization", "error", err)
				return reflect.Value{}, CustomDeserializerError{
					Wrapped:   err,
					Operation: "initialize",
					Structure: "struct",
				}
			}
		}
	}

	seen := make(map[*property.Descriptor]bool)
	var dropped []string
	for _, entry := range n.Entries {
		if entry.Key.Kind != node.ScalarKind {
			return reflect.Value{}, fmt.Errorf("at %s, keys of %s must be scalars, got a %s", f.path, shared.TypeName(typ), entry.Key.Kind)
		}
		name := entry.Key.Value
		descriptor, err := info.Resolve(name)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("at %s:\n\t * %w", f.path, err)
		}
		if descriptor == nil {
			skipped, err := l.buildUnknown(f, info, container, name, entry.Value)
			if err != nil {
				return reflect.Value{}, err
			}
			if skipped {
				dropped = append(dropped, name)
			}
			continue
		}
		seen[descriptor] = true
		if descriptor.SkipLoad {
			continue
		}
		if err := l.buildProperty(f, container, descriptor, entry.Value); err != nil {
			return reflect.Value{}, err
		}
	}

	// Skipped keys are pruned from the document.
	for _, name := range dropped {
		n.Remove(name)
	}

	// Absent keys with a default value.
	for _, descriptor := range info.Properties {
		if seen[descriptor] || descriptor.Default == nil || descriptor.SkipLoad {
			continue
		}
		source, err := node.ParseOne([]byte(*descriptor.Default))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("at %s.%s, invalid `default` value:\n\t * %w", f.path, descriptor.Name, err)
		}
		if err := l.buildProperty(f, container, descriptor, source); err != nil {
			return reflect.Value{}, err
		}
	}

	if canValidate {
		if validator, ok := resultPtr.Interface().(validation.Validator); ok {
			if err := validator.Validate(); err != nil {
				// Validation error, abort struct construction, wrap the error so that we can catch it.
				return reflect.Value{}, validation.WrapError(f.path, err)
			}
		}
	}
	return container, nil
}

// Handle a key that matches no property.
// Returns true if the key was skipped.
func (l *Loader) buildUnknown(f frame, info *property.TypeInfo, container reflect.Value, name string, n *node.Node) (bool, error) {
	if l.options.SkipMissing || info.Decl.SkipMissing {
		return true, nil
	}
	if info.AnySetter == nil {
		return false, fmt.Errorf("at %s:\n\t * %w", f.path, shared.UnknownPropertyError{Type: info.Type, Name: name})
	}
	path := fmt.Sprint(f.path, ".", name)
	value, err := l.build(f.child(path), n, info.AnySetter.ValueType)
	if err != nil {
		return false, err
	}
	if err := info.AnySetter.Set(container, name, value); err != nil {
		return false, fmt.Errorf("at %s, any-setter %s rejected %q:\n\t * %w", f.path, info.AnySetter.Name(), name, err)
	}
	return false, nil
}

// Build a property, containing errors if the property asks for it.
func (l *Loader) buildProperty(f frame, container reflect.Value, descriptor *property.Descriptor, n *node.Node) error {
	err := l.assignProperty(f, container, descriptor, n)
	if err != nil && descriptor.IgnoreErrors {
		slog.Debug("Ignoring error on property", "path", f.path, "property", descriptor.Name, "error", err)
		return nil
	}
	return err
}

// Build a property and write it. On error, the property is left untouched.
func (l *Loader) assignProperty(f frame, container reflect.Value, descriptor *property.Descriptor, n *node.Node) error {
	owner := container.Type()
	inner := frame{
		path:     fmt.Sprint(f.path, ".", descriptor.Name),
		owner:    owner,
		property: descriptor,
	}
	converter, converterRef, err := l.resolver.Converter(owner, descriptor)
	if err != nil {
		return fmt.Errorf("at %s:\n\t * %w", inner.path, err)
	}

	var value reflect.Value
	if converter == nil {
		value, err = l.build(inner, n, descriptor.Type)
		if err != nil {
			return err
		}
	} else {
		value, err = l.convert(inner, converter, converterRef, n, descriptor)
		if err != nil {
			return err
		}
	}

	coerced, err := coerce(inner, value, descriptor.Type)
	if err != nil {
		return err
	}
	descriptor.Slot(container).Set(coerced)
	return nil
}

// Feed a converter with the result of the construction strategy or, if there
// is none, with the plain value of the node.
func (l *Loader) convert(f frame, converter strategy.Converter, ref strategy.Ref, n *node.Node, descriptor *property.Descriptor) (reflect.Value, error) {
	constructor, err := l.resolver.Constructor(f.query(descriptor.Type))
	if err != nil {
		return reflect.Value{}, fmt.Errorf("at %s:\n\t * %w", f.path, err)
	}
	var input any
	if constructor != nil {
		input, err = l.construct(f, constructor, n, descriptor.Type)
	} else {
		input, err = node.Extract(n)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	output, err := converter.ToModel(input, descriptor.Type)
	if err != nil {
		return reflect.Value{}, shared.ConversionError{
			Converter: ref.String(),
			Type:      f.owner,
			Property:  descriptor.Name,
			Direction: shared.ToModel,
			Wrapped:   err,
		}
	}
	return reflect.ValueOf(output), nil
}

func (l *Loader) buildMap(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if n.Kind != node.MappingKind {
		return reflect.Value{}, fmt.Errorf("invalid value at %s, expected a mapping, got a %s", f.path, n.Kind)
	}
	result := reflect.MakeMapWithSize(typ, len(n.Entries))
	for _, entry := range n.Entries {
		key, err := l.build(f.child(fmt.Sprint(f.path, "[key]")), entry.Key, typ.Key())
		if err != nil {
			return reflect.Value{}, err
		}
		path := fmt.Sprintf("%s[%s]", f.path, entry.Key.Value)
		value, err := l.build(f.child(path), entry.Value, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		result.SetMapIndex(key, value)
	}
	return result, nil
}

func (l *Loader) buildSlice(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if n.Kind != node.SequenceKind {
		// A single value where a list is expected.
		n = node.Sequence(n)
	}
	var result reflect.Value
	if typ.Kind() == reflect.Array {
		if len(n.Items) > typ.Len() {
			return reflect.Value{}, fmt.Errorf("at %s, expected at most %d items, got %d", f.path, typ.Len(), len(n.Items))
		}
		result = reflect.New(typ).Elem()
	} else {
		result = reflect.MakeSlice(typ, len(n.Items), len(n.Items))
	}
	for i, item := range n.Items {
		value, err := l.build(f.child(fmt.Sprintf("%s[%d]", f.path, i)), item, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		result.Index(i).Set(value)
	}
	return result, nil
}

// Build an interface for which no concrete type was found.
//
// This is only possible for empty interfaces, which receive plain values.
func (l *Loader) buildInterface(f frame, n *node.Node, typ reflect.Type) (reflect.Value, error) {
	if typ.NumMethod() > 0 {
		return reflect.Value{}, fmt.Errorf("at %s, cannot build a %s: no subtype declared and no type tag", f.path, shared.TypeName(typ))
	}
	plain, err := node.Resolve(n)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("at %s:\n\t * %w", f.path, err)
	}
	result := reflect.New(typ).Elem()
	if plain != nil {
		result.Set(reflect.ValueOf(plain))
	}
	return result, nil
}

// Store a value of a concrete type where `declared` is expected.
func adapt(f frame, value reflect.Value, declared reflect.Type) (reflect.Value, error) {
	switch {
	case value.Type().AssignableTo(declared):
		result := reflect.New(declared).Elem()
		result.Set(value)
		return result, nil
	case reflect.PointerTo(value.Type()).AssignableTo(declared):
		ptr := reflect.New(value.Type())
		ptr.Elem().Set(value)
		result := reflect.New(declared).Elem()
		result.Set(ptr)
		return result, nil
	}
	return coerce(f, value, declared)
}

// Convert the result of a strategy or a converter into `typ`.
func coerce(f frame, value reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if !value.IsValid() {
		switch typ.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return reflect.Zero(typ), nil
		default:
		}
		return reflect.Value{}, assignmentError(f, nil, typ, nil)
	}
	actual := value.Type()
	switch {
	case actual.AssignableTo(typ):
		return value, nil
	case actual.Kind() == reflect.Pointer && actual.Elem().AssignableTo(typ):
		if value.IsNil() {
			return reflect.Value{}, assignmentError(f, actual, typ, errors.New("nil pointer"))
		}
		return value.Elem(), nil
	case isNumeric(actual) && isNumeric(typ), actual.Kind() == typ.Kind() && actual.ConvertibleTo(typ):
		converted := value.Convert(typ)
		if isNumeric(typ) && !sameNumber(value, converted) {
			return reflect.Value{}, assignmentError(f, actual, typ, fmt.Errorf("%v does not fit", value.Interface()))
		}
		return converted, nil
	}
	return reflect.Value{}, assignmentError(f, actual, typ, nil)
}

func assignmentError(f frame, actual reflect.Type, expected reflect.Type, wrapped error) error {
	owner := f.owner
	if owner == nil {
		owner = expected
	}
	return fmt.Errorf("at %s:\n\t * %w", f.path, shared.PropertyAssignmentError{
		Type:     owner,
		Property: f.propertyName(),
		Expected: expected,
		Actual:   actual,
		Wrapped:  wrapped,
	})
}

func isNumeric(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Return true if a numeric conversion lost nothing.
func sameNumber(original reflect.Value, converted reflect.Value) bool {
	if original.CanFloat() && math.IsNaN(original.Float()) {
		return converted.CanFloat()
	}
	back := converted.Convert(original.Type())
	return back.Equal(original)
}

// Check that a type implements an interface *on pointers*.
func canInterface(typ reflect.Type, interfaceType reflect.Type) (bool, error) {
	ptrTyp := reflect.PointerTo(typ)
	if typ.Implements(interfaceType) {
		return false, fmt.Errorf("type %s implements %s - it should be implemented by pointer type *%s instead", typ, interfaceType, typ)
	}
	if ptrTyp.Implements(interfaceType) {
		return true, nil
	}
	return false, nil
}
