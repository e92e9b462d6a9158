// Turn Go values into YAML nodes.
//
// The dumper is the reverse of `deserialize`: it walks a value, reads the
// properties of structs from the same `property.Introspector` and applies
// the dump-time declarations:
//
//   - properties are emitted by descending `order:"n"`, ties broken by name;
//   - `skipDump:""` always hides a property, `skipDumpIf:"name"` and
//     `skipDumpExpr:"..."` hide it when a predicate says so, and the
//     `SkipEmpty` option hides empty strings, sequences and mappings of
//     properties that declare none of these;
//   - `convert:"name"` transforms model values before emission;
//   - `anyGetter:""` maps are flattened into their parent, declared
//     properties winning over flattened entries of the same name.
//
// Properties are emitted under the name they are loaded from, so that dumps
// load back.
package serialize

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/property"
	"github.com/pasqal-io/yamlext/resolve"
	"github.com/pasqal-io/yamlext/shared"
)

// Options for building a dumper.
type Options struct {
	// If true, properties holding an empty string, sequence or mapping are
	// left out, unless they declare their own skip rule.
	SkipEmpty bool

	// If true, interface-typed values whose dynamic type has a name in the
	// catalog are emitted with a local tag, e.g. `!Dog`, so that loading
	// the dump picks the same type.
	EmitTypeTags bool

	// Human-readable information on the value being dumped, used in
	// error messages.
	//
	// Optional. If you leave this blank, paths start with the name of
	// the root type.
	RootPath string
}

// A dumper, scoped to one pipeline.
//
// Not safe for concurrent use.
type Dumper struct {
	options  Options
	resolver *resolve.Resolver

	// Compiled `skipDumpExpr` programs, by source.
	programs map[string]*vm.Program

	witness initialized.IsInitialized
}

func NewDumper(resolver *resolve.Resolver, options Options) *Dumper {
	return &Dumper{
		options:  options,
		resolver: resolver,
		programs: make(map[string]*vm.Program),
		witness:  initialized.Make(),
	}
}

// Convert a value into a node tree.
func (d *Dumper) Dump(value any) (*node.Node, error) {
	d.witness.Assert()
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return node.Null(), nil
	}
	path := d.options.RootPath
	if path == "" {
		path = shared.TypeName(v.Type())
	}
	return d.dump(path, v, v.Type())
}

// Convert a value into a YAML document.
func (d *Dumper) Marshal(value any) ([]byte, error) {
	n, err := d.Dump(value)
	if err != nil {
		return nil, err
	}
	return n.Marshal()
}

// Order and filter the properties of a struct for emission.
//
// `instance` is a struct value of type `info.Type`. The any-getter, if any,
// is not part of the result.
func (d *Dumper) OrderAndFilter(info *property.TypeInfo, instance reflect.Value) ([]*property.Descriptor, error) {
	d.witness.Assert()
	ordered := append([]*property.Descriptor(nil), info.Properties...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order > ordered[j].Order
		}
		return ordered[i].Name < ordered[j].Name
	})
	result := make([]*property.Descriptor, 0, len(ordered))
	for _, descriptor := range ordered {
		skip, err := d.skip(info, instance, descriptor)
		if err != nil {
			return nil, err
		}
		if !skip {
			result = append(result, descriptor)
		}
	}
	return result, nil
}

// The environment of `skipDumpExpr` expressions.
type skipEnv struct {
	// The struct being dumped.
	Bean any

	// The natural name of the property.
	Property string

	// The model value of the property.
	Value any

	// The tag the value would be emitted with, e.g. "!!str".
	Tag string
}

func (d *Dumper) skip(info *property.TypeInfo, instance reflect.Value, descriptor *property.Descriptor) (bool, error) {
	if descriptor.SkipDump {
		return true, nil
	}
	value, ok := descriptor.Get(instance)
	if !ok {
		// Promoted through a nil embedded pointer.
		return true, nil
	}
	declared := false
	if !descriptor.SkipDumpIf.IsZero() {
		declared = true
		predicate, err := d.resolver.SkipPredicate(info.Type, descriptor)
		if err != nil {
			return false, err //nolint:wrapcheck
		}
		skip, err := predicate.Skip(instance.Interface(), descriptor.Name, value.Interface(), d.tagOf(value))
		if err != nil {
			return false, fmt.Errorf("dump predicate %s of %s.%s failed:\n\t * %w", descriptor.SkipDumpIf, shared.TypeName(info.Type), descriptor.Name, err)
		}
		if skip {
			return true, nil
		}
	}
	if descriptor.SkipDumpExpr != "" {
		declared = true
		skip, err := d.evaluate(descriptor.SkipDumpExpr, skipEnv{
			Bean:     instance.Interface(),
			Property: descriptor.Name,
			Value:    value.Interface(),
			Tag:      d.tagOf(value),
		})
		if err != nil {
			return false, fmt.Errorf("`skipDumpExpr` of %s.%s failed:\n\t * %w", shared.TypeName(info.Type), descriptor.Name, err)
		}
		if skip {
			return true, nil
		}
	}
	if !declared && d.options.SkipEmpty {
		return isEmpty(value), nil
	}
	return false, nil
}

// Run a `skipDumpExpr` expression, compiling it on first use.
func (d *Dumper) evaluate(source string, env skipEnv) (bool, error) {
	program, ok := d.programs[source]
	if !ok {
		compiled, err := expr.Compile(source, expr.Env(skipEnv{}), expr.AsBool()) //nolint:exhaustruct
		if err != nil {
			return false, err //nolint:wrapcheck
		}
		d.programs[source] = compiled
		program = compiled
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, err //nolint:wrapcheck
	}
	skip, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected a bool, got %T", result)
	}
	return skip, nil
}

func isEmpty(value reflect.Value) bool {
	switch value.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return value.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return false
		}
		return isEmpty(value.Elem())
	default:
		return false
	}
}

var (
	marshalerInterface     = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	textMarshalerInterface = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	durationType           = reflect.TypeOf(time.Duration(0))
)

// The tag a value is emitted with.
func (d *Dumper) tagOf(value reflect.Value) string {
	for value.IsValid() && (value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface) {
		if value.IsNil() {
			return node.NullTag
		}
		value = value.Elem()
	}
	if !value.IsValid() {
		return node.NullTag
	}
	if name, ok := d.resolver.Registry().Catalog().TypeName(value.Type()); ok {
		return "!" + name
	}
	if _, ok := shared.FormatScalar(value); ok {
		return scalarTag(value)
	}
	switch value.Kind() {
	case reflect.Struct, reflect.Map:
		return node.MapTag
	case reflect.Slice, reflect.Array:
		return node.SeqTag
	default:
		return ""
	}
}

// The tag of a value that `shared.FormatScalar` accepts.
func scalarTag(value reflect.Value) string {
	if value.Type() == durationType || value.Type().Implements(textMarshalerInterface) {
		return node.StrTag
	}
	switch value.Kind() {
	case reflect.Bool:
		return node.BoolTag
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return node.IntTag
	case reflect.Float32, reflect.Float64:
		return node.FloatTag
	default:
		return node.StrTag
	}
}

// Convert a value into a node. `declared` is the static type of the slot the
// value is read from.
func (d *Dumper) dump(path string, value reflect.Value, declared reflect.Type) (*node.Node, error) {
	if !value.IsValid() {
		return node.Null(), nil
	}
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return node.Null(), nil
		}
	default:
	}
	if value.Kind() == reflect.Interface {
		return d.dump(path, value.Elem(), declared)
	}
	if marshaler, ok := asMarshaler(value); ok {
		return dumpMarshaler(path, marshaler)
	}
	if value.Kind() == reflect.Pointer {
		return d.dump(path, value.Elem(), declared)
	}

	var result *node.Node
	if text, ok := shared.FormatScalar(value); ok {
		result = node.Scalar(scalarTag(value), formatFloat(value, text))
	} else {
		var err error
		switch value.Kind() {
		case reflect.Struct:
			result, err = d.dumpStruct(path, value)
		case reflect.Map:
			result, err = d.dumpMap(path, value)
		case reflect.Slice, reflect.Array:
			result, err = d.dumpSequence(path, value)
		default:
			err = fmt.Errorf("at %s, cannot dump a %s", path, shared.TypeName(value.Type()))
		}
		if err != nil {
			return nil, err
		}
	}

	if d.options.EmitTypeTags && declared != nil && declared.Kind() == reflect.Interface {
		if name, ok := d.resolver.Registry().Catalog().TypeName(value.Type()); ok {
			result.Tag = "!" + name
		}
	}
	return result, nil
}

// Keep floats recognizable as floats, e.g. 2 is emitted as 2.0.
func formatFloat(value reflect.Value, text string) string {
	if value.Kind() != reflect.Float32 && value.Kind() != reflect.Float64 {
		return text
	}
	switch text {
	case "NaN":
		return ".nan"
	case "+Inf":
		return ".inf"
	case "-Inf":
		return "-.inf"
	}
	if strings.ContainsAny(text, ".eE") {
		return text
	}
	return text + ".0"
}

func asMarshaler(value reflect.Value) (yaml.Marshaler, bool) {
	if value.Type().Implements(marshalerInterface) && value.CanInterface() {
		marshaler, ok := value.Interface().(yaml.Marshaler)
		return marshaler, ok
	}
	if value.CanAddr() && reflect.PointerTo(value.Type()).Implements(marshalerInterface) {
		marshaler, ok := value.Addr().Interface().(yaml.Marshaler)
		return marshaler, ok
	}
	return nil, false
}

// Let a type implementing `yaml.Marshaler` represent itself.
func dumpMarshaler(path string, marshaler yaml.Marshaler) (*node.Node, error) {
	result, err := marshaler.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("at %s, MarshalYAML failed:\n\t * %w", path, err)
	}
	represented, ok := result.(*yaml.Node)
	if !ok {
		represented = &yaml.Node{} //nolint:exhaustruct
		if err := represented.Encode(result); err != nil {
			return nil, fmt.Errorf("at %s, cannot represent the result of MarshalYAML:\n\t * %w", path, err)
		}
	}
	converted, err := node.FromYAML(represented)
	if err != nil {
		return nil, fmt.Errorf("at %s:\n\t * %w", path, err)
	}
	return converted, nil
}

func (d *Dumper) dumpStruct(path string, value reflect.Value) (*node.Node, error) {
	typ := value.Type()
	info, err := d.resolver.Introspector().Inspect(typ)
	if err != nil {
		return nil, fmt.Errorf("could not setup %s:\n\t * %w", shared.TypeName(typ), err)
	}
	// Fields with pointer-receiver marshalers need an addressable copy.
	if !value.CanAddr() {
		addressable := reflect.New(typ).Elem()
		addressable.Set(value)
		value = addressable
	}
	descriptors, err := d.OrderAndFilter(info, value)
	if err != nil {
		return nil, fmt.Errorf("at %s:\n\t * %w", path, err)
	}
	result := node.Mapping()
	for _, descriptor := range descriptors {
		child, err := d.dumpProperty(path, value, descriptor)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, node.Pair(descriptor.LoadName(), child))
	}

	if info.AnyGetter != nil {
		flattened, err := d.flatten(path, info, value)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, flattened...)
	}
	return result, nil
}

func (d *Dumper) dumpProperty(path string, container reflect.Value, descriptor *property.Descriptor) (*node.Node, error) {
	inner := fmt.Sprint(path, ".", descriptor.Name)
	value, _ := descriptor.Get(container)
	converter, ref, err := d.resolver.Converter(container.Type(), descriptor)
	if err != nil {
		return nil, fmt.Errorf("at %s:\n\t * %w", inner, err)
	}
	if converter == nil {
		return d.dump(inner, value, descriptor.Type)
	}
	if (value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface) && value.IsNil() {
		// Converters only see actual values.
		return node.Null(), nil
	}
	converted, err := converter.ToYAML(value.Interface())
	if err != nil {
		return nil, shared.ConversionError{
			Converter: ref.String(),
			Type:      container.Type(),
			Property:  descriptor.Name,
			Direction: shared.ToYAML,
			Wrapped:   err,
		}
	}
	if converted == nil {
		return node.Null(), nil
	}
	result := reflect.ValueOf(converted)
	return d.dump(inner, result, result.Type())
}

// The entries of the any-getter, sorted by key, minus those whose key is the
// natural name or the alias of a declared property.
func (d *Dumper) flatten(path string, info *property.TypeInfo, container reflect.Value) ([]node.Entry, error) {
	getter := info.AnyGetter
	collected, ok := getter.Get(container)
	if !ok || collected.IsNil() {
		return nil, nil
	}
	keys := collected.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	result := make([]node.Entry, 0, len(keys))
	for _, key := range keys {
		name := key.String()
		if _, taken := info.Lookup(name); taken {
			continue
		}
		if declared, _ := info.Resolve(name); declared != nil {
			// An alias.
			continue
		}
		child, err := d.dump(fmt.Sprint(path, ".", name), collected.MapIndex(key), getter.Type.Elem())
		if err != nil {
			return nil, err
		}
		result = append(result, node.Pair(name, child))
	}
	return result, nil
}

func (d *Dumper) dumpMap(path string, value reflect.Value) (*node.Node, error) {
	if value.IsNil() {
		return node.Null(), nil
	}
	type pair struct {
		key   *node.Node
		value reflect.Value
	}
	pairs := make([]pair, 0, value.Len())
	iter := value.MapRange()
	for iter.Next() {
		key, err := d.dump(fmt.Sprint(path, "[key]"), iter.Key(), value.Type().Key())
		if err != nil {
			return nil, err
		}
		if key.Kind != node.ScalarKind {
			return nil, fmt.Errorf("at %s, cannot dump non-scalar key of type %s", path, shared.TypeName(iter.Key().Type()))
		}
		pairs = append(pairs, pair{key: key, value: iter.Value()})
	}
	// Map iteration order is random, dumps are not.
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].key.Value < pairs[j].key.Value
	})
	result := node.Mapping()
	for _, p := range pairs {
		child, err := d.dump(fmt.Sprintf("%s[%s]", path, p.key.Value), p.value, value.Type().Elem())
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, node.Entry{Key: p.key, Value: child})
	}
	return result, nil
}

func (d *Dumper) dumpSequence(path string, value reflect.Value) (*node.Node, error) {
	if value.Kind() == reflect.Slice && value.IsNil() {
		return node.Sequence(), nil
	}
	result := node.Sequence()
	result.Items = make([]*node.Node, 0, value.Len())
	for i := 0; i < value.Len(); i++ {
		child, err := d.dump(fmt.Sprintf("%s[%d]", path, i), value.Index(i), value.Type().Elem())
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, child)
	}
	return result, nil
}
