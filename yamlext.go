// Annotation-driven extensions to `gopkg.in/yaml.v3`.
//
// A `Pipeline` owns everything a document needs to be loaded or dumped:
// a declaration table (`meta`), a registry of programmatic strategies
// (`registry`), a property cache (`property`), a resolver deciding which
// strategy applies (`resolve`), a loader (`deserialize`) and a dumper
// (`serialize`).
//
// Pipelines do not share state. A pipeline is not safe for concurrent use:
// use one pipeline per goroutine or synchronize registration and loading.
package yamlext

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/pasqal-io/yamlext/assertions/initialized"
	"github.com/pasqal-io/yamlext/deserialize"
	yamlDriver "github.com/pasqal-io/yamlext/deserialize/yaml"
	"github.com/pasqal-io/yamlext/meta"
	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/property"
	"github.com/pasqal-io/yamlext/registry"
	"github.com/pasqal-io/yamlext/resolve"
	"github.com/pasqal-io/yamlext/serialize"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
)

// Options for building a pipeline.
type Options struct {
	// The struct tag holding natural names. Defaults to "yaml".
	TagName string

	// If true, property names are matched regardless of case.
	CaseInsensitive bool

	// If true, unknown keys are dropped for every type.
	SkipMissing bool

	// If true, dumps leave out empty strings, sequences and mappings.
	SkipEmpty bool

	// If true, dumps tag interface-typed values with their catalog name.
	EmitTypeTags bool

	// Human-readable name of the documents, for error messages.
	RootPath string

	// A driver for types that build themselves. See `DefaultOptions`.
	Driver shared.Driver
}

// Sensible defaults: natural names in `yaml` tags, types implementing
// `yaml.Unmarshaler` build themselves.
func DefaultOptions(root string) Options {
	return Options{
		TagName:         "yaml",
		CaseInsensitive: false,
		SkipMissing:     false,
		SkipEmpty:       false,
		EmitTypeTags:    false,
		RootPath:        root,
		Driver:          yamlDriver.Driver{},
	}
}

type Pipeline struct {
	table        *meta.Table
	registry     *registry.Registry
	introspector *property.Introspector
	resolver     *resolve.Resolver
	loader       *deserialize.Loader
	dumper       *serialize.Dumper
	witness      initialized.IsInitialized
}

func New(options Options) *Pipeline {
	table := meta.NewTable()
	reg := registry.New()
	introspector := property.NewIntrospector(property.Options{
		TagName:         options.TagName,
		CaseInsensitive: options.CaseInsensitive,
		Table:           table,
	})
	resolver := resolve.New(introspector, reg)
	return &Pipeline{
		table:        table,
		registry:     reg,
		introspector: introspector,
		resolver:     resolver,
		loader: deserialize.NewLoader(resolver, deserialize.Options{
			RootPath:    options.RootPath,
			SkipMissing: options.SkipMissing,
			Driver:      options.Driver,
		}),
		dumper: serialize.NewDumper(resolver, serialize.Options{
			SkipEmpty:    options.SkipEmpty,
			EmitTypeTags: options.EmitTypeTags,
			RootPath:     options.RootPath,
		}),
		witness: initialized.Make(),
	}
}

// The declarations of this pipeline.
//
// Declare types before loading or dumping them: types are introspected
// once, on first use.
func (p *Pipeline) Table() *meta.Table {
	p.witness.Assert()
	return p.table
}

// The programmatic registrations of this pipeline.
func (p *Pipeline) Registry() *registry.Registry {
	p.witness.Assert()
	return p.registry
}

// The named strategies and named types of this pipeline.
func (p *Pipeline) Catalog() *strategy.Catalog {
	p.witness.Assert()
	return p.registry.Catalog()
}

func (p *Pipeline) Resolver() *resolve.Resolver {
	p.witness.Assert()
	return p.resolver
}

// Drop every registration and every introspected type. Declarations in
// `Table()` are kept.
func (p *Pipeline) Reset() {
	p.witness.Assert()
	p.registry.Reset()
	p.introspector.Reset()
}

// Load a single YAML document into `out`, a non-nil pointer.
func (p *Pipeline) Load(data []byte, out any) error {
	p.witness.Assert()
	n, err := node.ParseOne(data)
	if err != nil {
		return err //nolint:wrapcheck
	}
	return p.loader.LoadInto(n, out) //nolint:wrapcheck
}

// Load a pre-parsed node into `out`, a non-nil pointer.
func (p *Pipeline) LoadNode(n *node.Node, out any) error {
	p.witness.Assert()
	return p.loader.LoadInto(n, out) //nolint:wrapcheck
}

// Load a document holding a sequence of `item`. A document holding a
// single item is loaded as a sequence of one.
func (p *Pipeline) LoadSequence(data []byte, item reflect.Type) (reflect.Value, error) {
	p.witness.Assert()
	n, err := node.ParseOne(data)
	if err != nil {
		return reflect.Value{}, err //nolint:wrapcheck
	}
	return p.loader.LoadSequence(n, item) //nolint:wrapcheck
}

// Load every document of a multi-document stream, each as a `typ`.
func (p *Pipeline) LoadAll(data []byte, typ reflect.Type) ([]reflect.Value, error) {
	p.witness.Assert()
	documents, err := node.Parse(data)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	result := make([]reflect.Value, 0, len(documents))
	for i, document := range documents {
		value, err := p.loader.BuildObject(document, typ)
		if err != nil {
			return nil, fmt.Errorf("in document %d:\n\t * %w", i, err)
		}
		result = append(result, value)
	}
	return result, nil
}

// Convert a value into a node tree.
func (p *Pipeline) Dump(value any) (*node.Node, error) {
	p.witness.Assert()
	return p.dumper.Dump(value) //nolint:wrapcheck
}

// Convert a value into a YAML document.
func (p *Pipeline) Marshal(value any) ([]byte, error) {
	p.witness.Assert()
	return p.dumper.Marshal(value) //nolint:wrapcheck
}

// Load a single YAML document as a `T`.
func Load[T any](p *Pipeline, data []byte) (T, error) {
	var result T
	err := p.Load(data, &result)
	return result, err
}

// Load a document holding a sequence of `T`.
func LoadList[T any](p *Pipeline, data []byte) ([]T, error) {
	value, err := p.LoadSequence(data, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	result, ok := value.Interface().([]T)
	if !ok {
		return nil, errors.New("internal error: unexpected sequence type")
	}
	return result, nil
}
