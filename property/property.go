// The property model: what a type exposes to documents.
//
// An `Introspector` walks a type once, merges its struct tags with the
// declarations of a `meta.Table` and caches the result as a `TypeInfo`.
// Configuration errors (malformed tags, a non-map any-getter, an any-setter
// with the wrong shape) are reported here, before any document is read.
package property

import (
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/meta"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
	tagsPkg "github.com/pasqal-io/yamlext/tags"
)

// One property of a struct type.
type Descriptor struct {
	// The natural name of the property, e.g. `yaml:"name"`.
	Name string

	// The Go name of the field.
	Field string

	// The path to the field, for `reflect.Value.FieldByIndex`.
	//
	// Longer than 1 for properties promoted from embedded structs.
	Index []int

	// The declared type of the property.
	Type reflect.Type

	// The struct type that declares the field.
	Owner reflect.Type

	// If non-empty, the only key under which the property may be loaded.
	Alias string

	Converter    strategy.Ref
	Constructor  strategy.Ref
	Instantiator strategy.Ref

	IgnoreErrors bool
	SkipLoad     bool
	SkipDump     bool
	SkipDumpIf   strategy.Ref
	SkipDumpExpr string

	// Dump order, higher first.
	Order int

	// The value used when the key is absent, if any.
	Default *string

	// True for a map collecting unknown keys.
	AnySetter bool

	// True for a map flattened into its parent at dump time.
	AnyGetter bool
}

// The key under which the property is loaded.
func (d *Descriptor) LoadName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Name
}

// Read the property from a struct value.
//
// Returns false if the property is promoted through a nil embedded pointer.
func (d *Descriptor) Get(owner reflect.Value) (reflect.Value, bool) {
	value, err := owner.FieldByIndexErr(d.Index)
	if err != nil {
		return reflect.Value{}, false
	}
	return value, true
}

// The field of the property, ready to be written.
//
// `owner` must be addressable. Nil embedded pointers on the way are allocated.
func (d *Descriptor) Slot(owner reflect.Value) reflect.Value {
	return slot(owner, d.Index)
}

func slot(owner reflect.Value, index []int) reflect.Value {
	value := owner
	for i, step := range index {
		if i > 0 && value.Kind() == reflect.Pointer {
			if value.IsNil() {
				value.Set(reflect.New(value.Type().Elem()))
			}
			value = value.Elem()
		}
		value = value.Field(step)
	}
	return value
}

// A collector for unknown keys.
type AnySetter struct {
	// The map field collecting unknown keys, if the collector is a field.
	Field *Descriptor

	// The collector method, if the collector is a method of `*T`.
	Method *reflect.Method

	// The type of the values accepted by the collector.
	ValueType reflect.Type
}

// A human-readable name for the collector.
func (s *AnySetter) Name() string {
	if s.Field != nil {
		return s.Field.Field
	}
	return s.Method.Name
}

// Hand an unknown entry to the collector.
//
// `target` must be an addressable struct value.
func (s *AnySetter) Set(target reflect.Value, name string, value reflect.Value) error {
	if s.Field != nil {
		collector := s.Field.Slot(target)
		if collector.IsNil() {
			collector.Set(reflect.MakeMap(collector.Type()))
		}
		collector.SetMapIndex(reflect.ValueOf(name).Convert(collector.Type().Key()), value)
		return nil
	}
	out := target.Addr().Method(s.Method.Index).Call([]reflect.Value{reflect.ValueOf(name).Convert(s.Method.Type.In(1)), value})
	if len(out) == 1 && !out[0].IsNil() {
		err, _ := out[0].Interface().(error)
		return err
	}
	return nil
}

// Everything we know about a type.
type TypeInfo struct {
	Type reflect.Type

	// Type-level declarations (marker tags merged with the table).
	//
	// `AnySetter` and `SkipMissing` also include the declarations of
	// embedded structs and declared interfaces.
	Decl meta.TypeDecl

	// The properties, in declaration order, promoted properties after
	// the fields of the outer struct.
	Properties []*Descriptor

	// Embedded structs, breadth-first.
	Embedded []reflect.Type

	AnySetter *AnySetter
	AnyGetter *Descriptor

	byLoadName map[string]*Descriptor
	byName     map[string]*Descriptor
	normalize  func(string) string
}

// Find the property loaded under `name`.
//
// Returns (nil, nil) if no property matches. Returns a
// `shared.AliasConflictError` if `name` is the natural name of a
// property that declares an alias.
func (info *TypeInfo) Resolve(name string) (*Descriptor, error) {
	key := info.normalize(name)
	if found, ok := info.byLoadName[key]; ok {
		return found, nil
	}
	if found, ok := info.byName[key]; ok && found.Alias != "" {
		return nil, shared.AliasConflictError{
			Type:     info.Type,
			Property: found.Name,
			Alias:    found.Alias,
		}
	}
	return nil, nil
}

// Find a property by natural name, ignoring aliases.
func (info *TypeInfo) Lookup(name string) (*Descriptor, bool) {
	found, ok := info.byName[info.normalize(name)]
	return found, ok
}

// Options for building an introspector.
type Options struct {
	// The tag holding natural names. Defaults to "yaml".
	TagName string

	// If true, names are compared after case folding.
	CaseInsensitive bool

	// Declarations overriding struct tags. Optional.
	Table *meta.Table
}

// A cache of `TypeInfo`, scoped to one pipeline.
type Introspector struct {
	options Options
	cache   map[reflect.Type]*TypeInfo
	folder  cases.Caser
	witness initialized.IsInitialized
}

func NewIntrospector(options Options) *Introspector {
	if options.TagName == "" {
		options.TagName = "yaml"
	}
	return &Introspector{
		options: options,
		cache:   make(map[reflect.Type]*TypeInfo),
		folder:  cases.Fold(),
		witness: initialized.Make(),
	}
}

// The declarations this introspector reads, possibly nil.
func (in *Introspector) Table() *meta.Table {
	return in.options.Table
}

// Forget every cached type.
func (in *Introspector) Reset() {
	in.witness.Assert()
	in.cache = make(map[reflect.Type]*TypeInfo)
}

func (in *Introspector) normalize(name string) string {
	if in.options.CaseInsensitive {
		return in.folder.String(name)
	}
	return name
}

// Introspect a type.
//
// Any type may be introspected. Only structs have properties.
func (in *Introspector) Inspect(typ reflect.Type) (*TypeInfo, error) {
	in.witness.Assert()
	if cached, ok := in.cache[typ]; ok {
		return cached, nil
	}
	info, err := in.inspect(typ)
	if err != nil {
		return nil, err
	}
	in.cache[typ] = info
	return info, nil
}

func (in *Introspector) inspect(typ reflect.Type) (*TypeInfo, error) {
	info := &TypeInfo{ //nolint:exhaustruct
		Type:       typ,
		byLoadName: make(map[string]*Descriptor),
		byName:     make(map[string]*Descriptor),
		normalize:  in.normalize,
	}
	decl, err := in.declaredType(typ)
	if err != nil {
		return nil, err
	}
	info.Decl = decl
	if typ.Kind() != reflect.Struct {
		return info, nil
	}

	// Breadth-first walk of the struct and its embedded structs. At each
	// name, the shallowest declaration wins, like Go's own promotion.
	type level struct {
		typ   reflect.Type
		index []int
	}
	queue := []level{{typ: typ, index: nil}}
	visited := map[reflect.Type]bool{typ: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for i := 0; i < current.typ.NumField(); i++ {
			field := current.typ.Field(i)
			index := append(append([]int(nil), current.index...), i)
			if meta.IsMarker(field) {
				continue
			}
			if embedded := embeddedStruct(field); embedded != nil {
				if !visited[embedded] {
					visited[embedded] = true
					info.Embedded = append(info.Embedded, embedded)
					queue = append(queue, level{typ: embedded, index: index})
				}
				continue
			}
			if !field.IsExported() {
				continue
			}
			descriptor, err := in.describe(current.typ, field, index)
			if err != nil {
				return nil, fmt.Errorf("at %s.%s:\n\t * %w", shared.TypeName(current.typ), field.Name, err)
			}
			if descriptor == nil {
				continue
			}
			if err := info.add(descriptor); err != nil {
				return nil, err
			}
		}
	}

	if err := in.inheritDeclarations(info); err != nil {
		return nil, err
	}
	if err := in.setupAnySetter(info); err != nil {
		return nil, err
	}
	return info, nil
}

// The struct type promoted by an embedded field `S` or `*S`, or nil.
//
// Pointers to unexported structs cannot be allocated, so they are not promoted.
func embeddedStruct(field reflect.StructField) reflect.Type {
	if !field.Anonymous {
		return nil
	}
	switch {
	case field.Type.Kind() == reflect.Struct:
		return field.Type
	case field.Type.Kind() == reflect.Pointer && field.Type.Elem().Kind() == reflect.Struct && field.IsExported():
		return field.Type.Elem()
	default:
		return nil
	}
}

// Register a property, unless a shallower or earlier one already uses the name.
func (info *TypeInfo) add(descriptor *Descriptor) error {
	if descriptor.AnyGetter {
		if info.AnyGetter != nil {
			return fmt.Errorf("at %s, a type accepts a single any-getter, %s is already one", shared.TypeName(info.Type), info.AnyGetter.Field)
		}
		info.AnyGetter = descriptor
		return nil
	}
	if descriptor.AnySetter {
		if info.AnySetter != nil {
			return shared.AnySetterArityError{
				Type:   info.Type,
				Member: descriptor.Field,
				Reason: fmt.Sprintf("a type accepts a single any-setter, %s is already one", info.AnySetter.Name()),
			}
		}
		info.AnySetter = &AnySetter{Field: descriptor, Method: nil, ValueType: descriptor.Type.Elem()}
		return nil
	}
	name := info.normalize(descriptor.Name)
	if _, taken := info.byName[name]; taken {
		// Either a shallower field or, in case-insensitive mode, an
		// earlier field folding to the same name.
		return nil
	}
	info.byName[name] = descriptor
	info.byLoadName[info.normalize(descriptor.LoadName())] = descriptor
	info.Properties = append(info.Properties, descriptor)
	return nil
}

// Build the descriptor of a field, or nil if the field is hidden with `yaml:"-"`.
func (in *Introspector) describe(owner reflect.Type, field reflect.StructField, index []int) (*Descriptor, error) {
	tags, err := tagsPkg.Parse(field.Tag)
	if err != nil {
		return nil, fmt.Errorf("invalid tags\n\t * %w", err)
	}
	name := strings.ToLower(field.Name)
	if public := tags.PublicFieldName(in.options.TagName); public != nil {
		if *public == "-" {
			return nil, nil
		}
		name = *public
	}
	order, err := tags.Order()
	if err != nil {
		return nil, err
	}
	descriptor := &Descriptor{
		Name:         name,
		Field:        field.Name,
		Index:        index,
		Type:         field.Type,
		Owner:        owner,
		Alias:        "",
		Converter:    named(tags.Converter()),
		Constructor:  named(tags.Constructor()),
		Instantiator: named(tags.Instantiator()),
		IgnoreErrors: tags.Has(tagsPkg.IgnoreErrors),
		SkipLoad:     tags.Has(tagsPkg.SkipLoad),
		SkipDump:     tags.Has(tagsPkg.SkipDump),
		SkipDumpIf:   named(tags.SkipDumpIf()),
		SkipDumpExpr: "",
		Order:        order,
		Default:      tags.Default(),
		AnySetter:    tags.Has(tagsPkg.AnySetter),
		AnyGetter:    tags.Has(tagsPkg.AnyGetter),
	}
	if alias := tags.Alias(); alias != nil {
		descriptor.Alias = *alias
	}
	if expression := tags.SkipDumpExpr(); expression != nil {
		descriptor.SkipDumpExpr = *expression
	}

	if decl, ok := in.options.Table.LookupProperty(owner, field.Name); ok {
		override(descriptor, decl)
	}

	if descriptor.AnyGetter && descriptor.AnySetter {
		return nil, fmt.Errorf("field %s cannot be both an any-setter and an any-getter", field.Name)
	}
	if descriptor.AnyGetter && !isStringKeyedMap(field.Type) {
		return nil, shared.AnyGetterTypeError{
			Type:     owner,
			Property: field.Name,
			Actual:   field.Type,
		}
	}
	if descriptor.AnySetter && !isStringKeyedMap(field.Type) {
		return nil, shared.AnySetterArityError{
			Type:   owner,
			Member: field.Name,
			Reason: fmt.Sprintf("an any-setter field must be a map with string keys, got %s", field.Type),
		}
	}
	return descriptor, nil
}

func override(descriptor *Descriptor, decl meta.PropertyDecl) {
	if decl.Alias != nil {
		descriptor.Alias = *decl.Alias
	}
	if !decl.Converter.IsZero() {
		descriptor.Converter = decl.Converter
	}
	if !decl.Constructor.IsZero() {
		descriptor.Constructor = decl.Constructor
	}
	if !decl.Instantiator.IsZero() {
		descriptor.Instantiator = decl.Instantiator
	}
	if decl.IgnoreErrors != nil {
		descriptor.IgnoreErrors = *decl.IgnoreErrors
	}
	if decl.SkipLoad != nil {
		descriptor.SkipLoad = *decl.SkipLoad
	}
	if decl.SkipDump != nil {
		descriptor.SkipDump = *decl.SkipDump
	}
	if !decl.SkipDumpIf.IsZero() {
		descriptor.SkipDumpIf = decl.SkipDumpIf
	}
	if decl.SkipDumpExpr != nil {
		descriptor.SkipDumpExpr = *decl.SkipDumpExpr
	}
	if decl.Order != nil {
		descriptor.Order = *decl.Order
	}
}

func named(name *string) strategy.Ref {
	if name == nil {
		return strategy.Ref{} //nolint:exhaustruct
	}
	return strategy.Named(*name)
}

func isStringKeyedMap(typ reflect.Type) bool {
	return typ.Kind() == reflect.Map && typ.Key().Kind() == reflect.String
}

// The declarations of a type itself: marker tags, then the table.
func (in *Introspector) declaredType(typ reflect.Type) (meta.TypeDecl, error) {
	decl := meta.TypeDecl{} //nolint:exhaustruct
	if typ.Kind() == reflect.Struct {
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !meta.IsMarker(field) {
				continue
			}
			tags, err := tagsPkg.Parse(field.Tag)
			if err != nil {
				return decl, fmt.Errorf("at %s, invalid type-level tags\n\t * %w", shared.TypeName(typ), err)
			}
			decl = decl.Merge(meta.FromTags(tags))
		}
	}
	if fromTable, ok := in.options.Table.Lookup(typ); ok {
		decl = decl.Merge(fromTable)
	}
	return decl, nil
}

// Fill `AnySetter` and `SkipMissing` from embedded structs, then from
// declared interfaces that `*T` implements.
func (in *Introspector) inheritDeclarations(info *TypeInfo) error {
	inherited := make([]reflect.Type, 0, len(info.Embedded))
	inherited = append(inherited, info.Embedded...)
	ptr := reflect.PointerTo(info.Type)
	for _, declared := range in.options.Table.Types() {
		if declared.Kind() == reflect.Interface && ptr.Implements(declared) {
			inherited = append(inherited, declared)
		}
	}
	for _, ancestor := range inherited {
		decl, err := in.declaredType(ancestor)
		if err != nil {
			return err
		}
		if info.Decl.AnySetter == "" {
			info.Decl.AnySetter = decl.AnySetter
		}
		info.Decl.SkipMissing = info.Decl.SkipMissing || decl.SkipMissing
	}
	return nil
}

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

// Check the shape of an any-setter method: `func (*T) Name(string, V) [error]`.
func (in *Introspector) setupAnySetter(info *TypeInfo) error {
	name := info.Decl.AnySetter
	if name == "" {
		return nil
	}
	if info.AnySetter != nil {
		return shared.AnySetterArityError{
			Type:   info.Type,
			Member: name,
			Reason: fmt.Sprintf("a type accepts a single any-setter, %s is already one", info.AnySetter.Name()),
		}
	}
	method, ok := reflect.PointerTo(info.Type).MethodByName(name)
	if !ok {
		return shared.AnySetterArityError{
			Type:   info.Type,
			Member: name,
			Reason: "no such method, note that the method must be public",
		}
	}
	typ := method.Type
	switch {
	case typ.NumIn() != 3: //nolint:mnd
		return shared.AnySetterArityError{
			Type:   info.Type,
			Member: name,
			Reason: fmt.Sprintf("expected 2 arguments (name, value), got %d", typ.NumIn()-1),
		}
	case typ.In(1).Kind() != reflect.String:
		return shared.AnySetterArityError{
			Type:   info.Type,
			Member: name,
			Reason: fmt.Sprintf("the first argument must be a string, got %s", typ.In(1)),
		}
	case typ.NumOut() > 1 || (typ.NumOut() == 1 && typ.Out(0) != errorInterface):
		return shared.AnySetterArityError{
			Type:   info.Type,
			Member: name,
			Reason: "the method may only return an error",
		}
	}
	info.AnySetter = &AnySetter{Field: nil, Method: &method, ValueType: typ.In(2)}
	return nil
}
