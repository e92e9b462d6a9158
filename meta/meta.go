// Declarative metadata attached to types and their properties.
//
// Metadata comes from two static sources:
//
//   - struct tags, either on fields (property level) or on a blank field of
//     type `meta.Type` (type level):
//
//     type Point struct {
//     _ meta.Type `construct:"point"`
//     X int       `yaml:"x" order:"2"`
//     Y int       `yaml:"y" order:"1"`
//     }
//
//   - a `Table`, populated once at startup, which can also describe types
//     that cannot carry tags, such as interfaces:
//
//     table := meta.NewTable()
//     meta.Declare[Animal](table).Subtypes(reflect.TypeOf(Dog{}), reflect.TypeOf(Cat{}))
//
// Table entries override tags. Both are "declarative": programmatic
// registrations on a `registry.Registry` take precedence over them.
package meta

import (
	"fmt"
	"reflect"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/strategy"
	"github.com/pasqal-io/yamlext/tags"
)

// A marker whose tags declare type-level metadata.
type Type struct{}

var markerType = reflect.TypeOf(Type{})

// Return true if a field is a `meta.Type` marker.
func IsMarker(field reflect.StructField) bool {
	return field.Type == markerType
}

// Type-level metadata.
type TypeDecl struct {
	Constructor  strategy.Ref
	Instantiator strategy.Ref

	// Substitution candidates, in order of preference.
	Subtypes []reflect.Type

	// Substitution candidates referred to by catalog name.
	SubtypeNames []string

	Selector strategy.Ref

	// The name of an any-setter method `func (*T) Method(name string, value V) [error]`.
	AnySetter string

	// If true, unknown keys are silently dropped, bypassing any any-setter.
	SkipMissing bool
}

// Return true if at least one substitution candidate is declared.
func (d TypeDecl) HasSubtypes() bool {
	return len(d.Subtypes) > 0 || len(d.SubtypeNames) > 0
}

// Read type-level metadata from the tags of a marker field.
func FromTags(parsed tags.Tags) TypeDecl {
	decl := TypeDecl{} //nolint:exhaustruct
	if name := parsed.Constructor(); name != nil {
		decl.Constructor = strategy.Named(*name)
	}
	if name := parsed.Instantiator(); name != nil {
		decl.Instantiator = strategy.Named(*name)
	}
	decl.SubtypeNames = parsed.Subtypes()
	if name := parsed.Selector(); name != nil {
		decl.Selector = strategy.Named(*name)
	}
	if name := parsed.AnySetterMethod(); name != nil {
		decl.AnySetter = *name
	}
	decl.SkipMissing = parsed.Has(tags.SkipMissing)
	return decl
}

// Overlay `override` on top of `d`: every field set in `override` wins.
func (d TypeDecl) Merge(override TypeDecl) TypeDecl {
	if !override.Constructor.IsZero() {
		d.Constructor = override.Constructor
	}
	if !override.Instantiator.IsZero() {
		d.Instantiator = override.Instantiator
	}
	if override.HasSubtypes() {
		d.Subtypes = override.Subtypes
		d.SubtypeNames = override.SubtypeNames
	}
	if !override.Selector.IsZero() {
		d.Selector = override.Selector
	}
	if override.AnySetter != "" {
		d.AnySetter = override.AnySetter
	}
	d.SkipMissing = d.SkipMissing || override.SkipMissing
	return d
}

// Property-level metadata declared in a `Table`. Nil/zero fields leave
// the corresponding tag untouched.
type PropertyDecl struct {
	Alias        *string
	Converter    strategy.Ref
	Constructor  strategy.Ref
	Instantiator strategy.Ref
	IgnoreErrors *bool
	SkipLoad     *bool
	SkipDump     *bool
	SkipDumpIf   strategy.Ref
	SkipDumpExpr *string
	Order        *int
}

// A table of declarations, keyed by type and by Go field name.
type Table struct {
	types      map[reflect.Type]*TypeDecl
	properties map[reflect.Type]map[string]*PropertyDecl

	// Declared types, in declaration order.
	order []reflect.Type

	witness initialized.IsInitialized
}

func NewTable() *Table {
	return &Table{
		types:      make(map[reflect.Type]*TypeDecl),
		properties: make(map[reflect.Type]map[string]*PropertyDecl),
		order:      nil,
		witness:    initialized.Make(),
	}
}

// Start declaring metadata for `typ`.
func (t *Table) Type(typ reflect.Type) *TypeDeclaration {
	t.witness.Assert()
	decl, ok := t.types[typ]
	if !ok {
		decl = &TypeDecl{} //nolint:exhaustruct
		t.types[typ] = decl
		t.order = append(t.order, typ)
	}
	return &TypeDeclaration{table: t, typ: typ, decl: decl}
}

// Start declaring metadata for `T`.
func Declare[T any](t *Table) *TypeDeclaration {
	return t.Type(reflect.TypeOf((*T)(nil)).Elem())
}

// Lookup the declarations for a type.
func (t *Table) Lookup(typ reflect.Type) (TypeDecl, bool) {
	if t == nil {
		return TypeDecl{}, false //nolint:exhaustruct
	}
	t.witness.Assert()
	decl, ok := t.types[typ]
	if !ok {
		return TypeDecl{}, false //nolint:exhaustruct
	}
	return *decl, true
}

// Lookup the declarations for a field of a type.
func (t *Table) LookupProperty(typ reflect.Type, field string) (PropertyDecl, bool) {
	if t == nil {
		return PropertyDecl{}, false //nolint:exhaustruct
	}
	t.witness.Assert()
	decl, ok := t.properties[typ][field]
	if !ok {
		return PropertyDecl{}, false //nolint:exhaustruct
	}
	return *decl, true
}

// Every type with declarations, in declaration order.
func (t *Table) Types() []reflect.Type {
	if t == nil {
		return nil
	}
	t.witness.Assert()
	return append([]reflect.Type(nil), t.order...)
}

// A fluent declaration of type-level metadata.
type TypeDeclaration struct {
	table *Table
	typ   reflect.Type
	decl  *TypeDecl
}

func (d *TypeDeclaration) ConstructWith(ref strategy.Ref) *TypeDeclaration {
	d.decl.Constructor = ref
	return d
}

func (d *TypeDeclaration) InstantiateWith(ref strategy.Ref) *TypeDeclaration {
	d.decl.Instantiator = ref
	return d
}

// Declare substitution candidates. Order matters: it is the default
// tie-break and the order in which selectors see candidates.
func (d *TypeDeclaration) Subtypes(candidates ...reflect.Type) *TypeDeclaration {
	d.decl.Subtypes = append([]reflect.Type(nil), candidates...)
	d.decl.SubtypeNames = nil
	return d
}

// Declare substitution candidates by catalog name.
func (d *TypeDeclaration) SubtypeNames(names ...string) *TypeDeclaration {
	d.decl.SubtypeNames = append([]string(nil), names...)
	d.decl.Subtypes = nil
	return d
}

func (d *TypeDeclaration) SelectWith(ref strategy.Ref) *TypeDeclaration {
	d.decl.Selector = ref
	return d
}

func (d *TypeDeclaration) AnySetter(method string) *TypeDeclaration {
	d.decl.AnySetter = method
	return d
}

func (d *TypeDeclaration) SkipMissing() *TypeDeclaration {
	d.decl.SkipMissing = true
	return d
}

// Start declaring metadata for the Go field `field` of this type.
func (d *TypeDeclaration) Property(field string) *PropertyDeclaration {
	if d.typ.Kind() != reflect.Struct {
		panic(fmt.Sprintf("cannot declare property %s on non-struct type %s", field, d.typ))
	}
	byField, ok := d.table.properties[d.typ]
	if !ok {
		byField = make(map[string]*PropertyDecl)
		d.table.properties[d.typ] = byField
	}
	decl, ok := byField[field]
	if !ok {
		decl = &PropertyDecl{} //nolint:exhaustruct
		byField[field] = decl
	}
	return &PropertyDeclaration{parent: d, decl: decl}
}

// A fluent declaration of property-level metadata.
type PropertyDeclaration struct {
	parent *TypeDeclaration
	decl   *PropertyDecl
}

func (d *PropertyDeclaration) Alias(alias string) *PropertyDeclaration {
	d.decl.Alias = &alias
	return d
}

func (d *PropertyDeclaration) ConvertWith(ref strategy.Ref) *PropertyDeclaration {
	d.decl.Converter = ref
	return d
}

func (d *PropertyDeclaration) ConstructWith(ref strategy.Ref) *PropertyDeclaration {
	d.decl.Constructor = ref
	return d
}

func (d *PropertyDeclaration) InstantiateWith(ref strategy.Ref) *PropertyDeclaration {
	d.decl.Instantiator = ref
	return d
}

func (d *PropertyDeclaration) IgnoreErrors() *PropertyDeclaration {
	yes := true
	d.decl.IgnoreErrors = &yes
	return d
}

func (d *PropertyDeclaration) SkipLoad() *PropertyDeclaration {
	yes := true
	d.decl.SkipLoad = &yes
	return d
}

func (d *PropertyDeclaration) SkipDump() *PropertyDeclaration {
	yes := true
	d.decl.SkipDump = &yes
	return d
}

func (d *PropertyDeclaration) SkipDumpIf(ref strategy.Ref) *PropertyDeclaration {
	d.decl.SkipDumpIf = ref
	return d
}

func (d *PropertyDeclaration) SkipDumpExpr(expression string) *PropertyDeclaration {
	d.decl.SkipDumpExpr = &expression
	return d
}

func (d *PropertyDeclaration) Order(order int) *PropertyDeclaration {
	d.decl.Order = &order
	return d
}

// Return to the enclosing type declaration.
func (d *PropertyDeclaration) Done() *TypeDeclaration {
	return d.parent
}
