//nolint:exhaustruct
package deserialize_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pasqal-io/yamlext/assertions/testutils"
	"github.com/pasqal-io/yamlext/deserialize"
	yamlDriver "github.com/pasqal-io/yamlext/deserialize/yaml"
	"github.com/pasqal-io/yamlext/meta"
	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/property"
	"github.com/pasqal-io/yamlext/registry"
	"github.com/pasqal-io/yamlext/resolve"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
	"github.com/pasqal-io/yamlext/validation"
	"gotest.tools/v3/assert"
)

type fixture struct {
	table    *meta.Table
	registry *registry.Registry
	loader   *deserialize.Loader
}

func setup(options deserialize.Options) fixture {
	table := meta.NewTable()
	reg := registry.New()
	introspector := property.NewIntrospector(property.Options{Table: table})
	return fixture{
		table:    table,
		registry: reg,
		loader:   deserialize.NewLoader(resolve.New(introspector, reg), options),
	}
}

func load[T any](t *testing.T, f fixture, source string) (T, error) {
	t.Helper()
	var result T
	err := f.loader.LoadInto(testutils.MustParse(t, source), &result)
	return result, err
}

type StellarObject struct {
	Name string `alias:"nameAlias"`
	Kind string
}

func TestAlias(t *testing.T) {
	f := setup(deserialize.Options{})
	sun, err := load[StellarObject](t, f, "{nameAlias: Sun, kind: star}")
	assert.NilError(t, err)
	assert.Equal(t, sun.Name, "Sun")
	assert.Equal(t, sun.Kind, "star")

	_, err = load[StellarObject](t, f, "{name: Sun}")
	conflict := shared.AliasConflictError{}
	assert.Assert(t, errors.As(err, &conflict))
	assert.Equal(t, conflict.Property, "name")
	assert.Equal(t, conflict.Alias, "nameAlias")
}

func TestUnknownProperty(t *testing.T) {
	f := setup(deserialize.Options{})
	_, err := load[StellarObject](t, f, "{nameAlias: Sun, mass: 1}")
	unknown := shared.UnknownPropertyError{}
	assert.Assert(t, errors.As(err, &unknown))
	assert.Equal(t, unknown.Name, "mass")
	assert.ErrorContains(t, err, "at StellarObject")
}

type Lenient struct {
	_    meta.Type `skipMissing:""`
	Name string
}

func TestSkipMissing(t *testing.T) {
	f := setup(deserialize.Options{})
	lenient, err := load[Lenient](t, f, "{name: a, other: b}")
	assert.NilError(t, err)
	assert.Equal(t, lenient.Name, "a")

	f = setup(deserialize.Options{SkipMissing: true})
	document := testutils.MustParse(t, "{nameAlias: Sun, mass: 1}")
	sun := StellarObject{}
	assert.NilError(t, f.loader.LoadInto(document, &sun))
	assert.Equal(t, sun.Name, "Sun")
	testutils.AssertEqualArrays(t, document.Keys(), []string{"nameAlias"}, "skipped keys are pruned")
}

func TestPrimitiveTypes(t *testing.T) {
	type Primitives struct {
		SomeBool    bool
		SomeString  string
		SomeFloat32 float32
		SomeFloat64 float64
		SomeInt     int
		SomeInt8    int8
		SomeUint16  uint16
		SomeHex     int
		Timeout     time.Duration
		ID          uuid.UUID
		Pointer     *int
		Missing     *int
	}
	f := setup(deserialize.Options{})
	id := uuid.New()
	source := fmt.Sprintf(`
		someBool: true
		someString: "text"
		someFloat32: 1.5
		someFloat64: -2.25
		someInt: 42
		someInt8: -8
		someUint16: 16
		someHex: 0x10
		timeout: 1m30s
		id: %s
		pointer: 7
		missing: null
	`, id)
	result, err := load[Primitives](t, f, source)
	assert.NilError(t, err)
	assert.Equal(t, result.SomeBool, true)
	assert.Equal(t, result.SomeString, "text")
	assert.Equal(t, result.SomeFloat32, float32(1.5))
	assert.Equal(t, result.SomeFloat64, -2.25)
	assert.Equal(t, result.SomeInt, 42)
	assert.Equal(t, result.SomeInt8, int8(-8))
	assert.Equal(t, result.SomeUint16, uint16(16))
	assert.Equal(t, result.SomeHex, 16)
	assert.Equal(t, result.Timeout, 90*time.Second)
	assert.Equal(t, result.ID, id)
	assert.Equal(t, *result.Pointer, 7)
	assert.Assert(t, result.Missing == nil)

	_, err = load[Primitives](t, f, "{someInt8: 300}")
	assert.ErrorContains(t, err, "Primitives.someInt8")

	result, err = load[Primitives](t, f, "{someFloat32: -.INF, someFloat64: .inf}")
	assert.NilError(t, err)
	assert.Assert(t, math.IsInf(float64(result.SomeFloat32), -1))
	assert.Assert(t, math.IsInf(result.SomeFloat64, 1))
	for _, spelling := range []string{".nan", ".NaN", ".NAN"} {
		result, err = load[Primitives](t, f, "someFloat64: "+spelling)
		assert.NilError(t, err)
		assert.Assert(t, math.IsNaN(result.SomeFloat64), spelling)
	}
}

type Animal interface {
	Sound() string
}

type Dog struct {
	Loudness int
}

func (d *Dog) Sound() string { return strings.Repeat("woof", d.Loudness) }

type Cat struct {
	Lives int
}

func (c *Cat) Sound() string { return "meow" }

var (
	dogType = reflect.TypeOf(Dog{})
	catType = reflect.TypeOf(Cat{})
)

type Zoo struct {
	Star    Animal
	Animals []Animal
}

func TestSubtypeFiltering(t *testing.T) {
	f := setup(deserialize.Options{})
	meta.Declare[Animal](f.table).Subtypes(catType, dogType)

	zoo, err := load[Zoo](t, f, `
		star: {loudness: 5}
		animals:
		  - {lives: 9}
		  - {loudness: 1}
		  - {}
	`)
	assert.NilError(t, err)
	dog, ok := zoo.Star.(*Dog)
	assert.Assert(t, ok, "expected a dog, got %T", zoo.Star)
	assert.Equal(t, dog.Loudness, 5)

	assert.Equal(t, len(zoo.Animals), 3)
	_, ok = zoo.Animals[0].(*Cat)
	assert.Assert(t, ok)
	_, ok = zoo.Animals[1].(*Dog)
	assert.Assert(t, ok)
	// The first candidate that accepts the document wins.
	_, ok = zoo.Animals[2].(*Cat)
	assert.Assert(t, ok)

	_, err = load[Zoo](t, f, "{animals: [{fins: 2}]}")
	noSubtype := shared.NoApplicableSubtypeError{}
	assert.Assert(t, errors.As(err, &noSubtype))
	assert.Equal(t, len(noSubtype.Failures), 2)
	assert.ErrorContains(t, err, "at Zoo.animals[0]")
}

func TestSubtypeRegistrationReplacesDeclaration(t *testing.T) {
	f := setup(deserialize.Options{})
	meta.Declare[Animal](f.table).Subtypes(catType)
	err := f.registry.RegisterSubtypes(reflect.TypeOf((*Animal)(nil)).Elem(), registry.Substitution{
		Candidates: []reflect.Type{dogType},
	})
	assert.NilError(t, err)

	zoo, err := load[Zoo](t, f, "star: {}")
	assert.NilError(t, err)
	_, ok := zoo.Star.(*Dog)
	assert.Assert(t, ok)
}

func TestLocalTag(t *testing.T) {
	f := setup(deserialize.Options{})
	assert.NilError(t, f.registry.Catalog().RegisterType("Dog", dogType))
	assert.NilError(t, f.registry.Catalog().RegisterType("Cat", catType))

	zoo, err := load[Zoo](t, f, "{star: !Dog {loudness: 2}, animals: [!Cat {lives: 3}]}")
	assert.NilError(t, err)
	assert.Equal(t, zoo.Star.Sound(), "woofwoof")
	cat, ok := zoo.Animals[0].(*Cat)
	assert.Assert(t, ok)
	assert.Equal(t, cat.Lives, 3)

	_, err = load[Zoo](t, f, "{star: !Fish {}}")
	assert.ErrorContains(t, err, "unknown type tag !Fish")
}

// Heights are written in meters and stored in centimeters.
type heightConverter struct{}

func (heightConverter) ToModel(value any, target reflect.Type) (any, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	meters, err := strconv.ParseFloat(strings.TrimSuffix(text, " m"), 64)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return int(math.Round(meters * 100)), nil //nolint:mnd
}

func (heightConverter) ToYAML(value any) (any, error) {
	return fmt.Sprintf("%dcm", value), nil
}

type failingConverter struct{}

func (failingConverter) ToModel(any, reflect.Type) (any, error) {
	return nil, errors.New("this converter always fails")
}

func (failingConverter) ToYAML(any) (any, error) {
	return nil, errors.New("this converter always fails")
}

type Person struct {
	Name   string
	Height int `convert:"height"`
}

type Fragile struct {
	Name   string
	Weight int `convert:"failing" ignoreErrors:""`
	Age    int `ignoreErrors:""`
}

type Brittle struct {
	Weight int `convert:"failing"`
}

func registerConverters(t *testing.T, f fixture) {
	t.Helper()
	assert.NilError(t, f.registry.Catalog().Register("height", strategy.Instance(heightConverter{})))
	assert.NilError(t, f.registry.Catalog().Register("failing", strategy.Instance(failingConverter{})))
}

func TestConverter(t *testing.T) {
	f := setup(deserialize.Options{})
	registerConverters(t, f)

	person, err := load[Person](t, f, "{name: Ada, height: 1.85 m}")
	assert.NilError(t, err)
	assert.Equal(t, person.Height, 185)

	_, err = load[Brittle](t, f, "{weight: 12}")
	conversion := shared.ConversionError{}
	assert.Assert(t, errors.As(err, &conversion))
	assert.Equal(t, conversion.Direction, shared.ToModel)
	assert.Equal(t, conversion.Property, "weight")
}

func TestProgrammaticConverterWins(t *testing.T) {
	f := setup(deserialize.Options{})
	registerConverters(t, f)
	doubling := strategy.Instance(converterFunc(func(value any) (any, error) {
		parsed, err := strconv.Atoi(value.(string)) //nolint:forcetypeassert
		return parsed * 2, err                     //nolint:wrapcheck
	}))
	assert.NilError(t, f.registry.RegisterConverter(reflect.TypeOf(Person{}), "height", doubling))

	person, err := load[Person](t, f, "{height: 21}")
	assert.NilError(t, err)
	assert.Equal(t, person.Height, 42)
}

type converterFunc func(value any) (any, error)

func (c converterFunc) ToModel(value any, _ reflect.Type) (any, error) { return c(value) }
func (c converterFunc) ToYAML(value any) (any, error)                  { return value, nil }

func TestIgnoreErrors(t *testing.T) {
	f := setup(deserialize.Options{})
	registerConverters(t, f)

	fragile, err := load[Fragile](t, f, "{name: glass, weight: 12, age: not a number}")
	assert.NilError(t, err)
	assert.Equal(t, fragile.Name, "glass")
	assert.Equal(t, fragile.Weight, 0)
	assert.Equal(t, fragile.Age, 0)
}

type Collector struct {
	Name  string
	Extra map[string]any `anySetter:""`
}

type Props struct {
	_      meta.Type `anySetter:"Set"`
	Name   string
	values map[string]int
}

func (p *Props) Set(name string, value int) error {
	if value < 0 {
		return errors.New("negative values are not accepted")
	}
	if p.values == nil {
		p.values = make(map[string]int)
	}
	p.values[name] = value
	return nil
}

func TestAnySetter(t *testing.T) {
	f := setup(deserialize.Options{})
	collector, err := load[Collector](t, f, "{name: a, extra: 1}")
	assert.NilError(t, err)
	assert.Equal(t, collector.Name, "a")
	assert.DeepEqual(t, collector.Extra, map[string]any{"extra": 1})

	props, err := load[Props](t, f, "{name: b, x: 1, y: 2}")
	assert.NilError(t, err)
	assert.DeepEqual(t, props.values, map[string]int{"x": 1, "y": 2})

	_, err = load[Props](t, f, "{z: -1}")
	assert.ErrorContains(t, err, "negative values are not accepted")

	// Skip-missing mode bypasses the any-setter.
	f = setup(deserialize.Options{SkipMissing: true})
	collector, err = load[Collector](t, f, "{name: a, extra: 1}")
	assert.NilError(t, err)
	assert.Assert(t, collector.Extra == nil)
}

type Tagged struct {
	Tags   []string
	Points [2]int
}

func TestSingleValueAsList(t *testing.T) {
	f := setup(deserialize.Options{})
	tagged, err := load[Tagged](t, f, "{tags: solo, points: 3}")
	assert.NilError(t, err)
	testutils.AssertEqualArrays(t, tagged.Tags, []string{"solo"}, "a single value is a list of one")
	assert.Equal(t, tagged.Points, [2]int{3, 0})

	_, err = load[Tagged](t, f, "{points: [1, 2, 3]}")
	assert.ErrorContains(t, err, "expected at most 2 items")
}

func TestLoadSequence(t *testing.T) {
	f := setup(deserialize.Options{})
	result, err := f.loader.LoadSequence(testutils.MustParse(t, "[{nameAlias: Sun}, {nameAlias: Moon}]"), reflect.TypeOf(StellarObject{}))
	assert.NilError(t, err)
	objects, ok := result.Interface().([]StellarObject)
	assert.Assert(t, ok)
	assert.Equal(t, len(objects), 2)
	assert.Equal(t, objects[1].Name, "Moon")

	result, err = f.loader.LoadSequence(testutils.MustParse(t, "{nameAlias: Sun}"), reflect.TypeOf(StellarObject{}))
	assert.NilError(t, err)
	assert.Equal(t, result.Len(), 1)

	result, err = f.loader.LoadSequence(testutils.MustParse(t, ""), reflect.TypeOf(StellarObject{}))
	assert.NilError(t, err)
	assert.Equal(t, result.Len(), 0)
}

type Point struct {
	X int
	Y int
}

// Build a point from "x,y".
var pointConstructor = strategy.ConstructorFunc(func(ctx strategy.ConstructionContext) (any, error) {
	if ctx.Node.Kind != node.ScalarKind {
		return ctx.Default()
	}
	x, y, found := strings.Cut(ctx.Node.Value, ",")
	if !found {
		return nil, fmt.Errorf("expected x,y, got %q", ctx.Node.Value)
	}
	px, err := strconv.Atoi(strings.TrimSpace(x))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	py, err := strconv.Atoi(strings.TrimSpace(y))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &Point{X: px, Y: py}, nil
})

type Shape struct {
	Origin Point
	Corner *Point
	Labels map[string]Point
}

func TestTypeConstructor(t *testing.T) {
	f := setup(deserialize.Options{})
	assert.NilError(t, f.registry.Catalog().Register("point", strategy.Instance(pointConstructor)))
	meta.Declare[Point](f.table).ConstructWith(strategy.Named("point"))

	shape, err := load[Shape](t, f, `
		origin: 1,2
		corner: {x: 3, y: 4}
		labels:
		  a: 5, 6
	`)
	assert.NilError(t, err)
	assert.Equal(t, shape.Origin, Point{X: 1, Y: 2})
	assert.Equal(t, *shape.Corner, Point{X: 3, Y: 4})
	assert.Equal(t, shape.Labels["a"], Point{X: 5, Y: 6})

	_, err = load[Shape](t, f, "{origin: 1}")
	custom := deserialize.CustomDeserializerError{}
	assert.Assert(t, errors.As(err, &custom))
	assert.Equal(t, custom.Operation, "construct")
	assert.ErrorContains(t, err, `expected x,y, got "1"`)
}

type Banner struct {
	Title   string `construct:"upper"`
	Content string
}

func TestPropertyConstructorBeatsTypeConstructor(t *testing.T) {
	f := setup(deserialize.Options{})
	upper := strategy.ConstructorFunc(func(ctx strategy.ConstructionContext) (any, error) {
		return strings.ToUpper(ctx.Node.Value), nil
	})
	assert.NilError(t, f.registry.Catalog().Register("upper", strategy.Instance(upper)))
	banner, err := load[Banner](t, f, "{title: hello, content: world}")
	assert.NilError(t, err)
	assert.Equal(t, banner.Title, "HELLO")
	assert.Equal(t, banner.Content, "world")
}

type Broken struct {
	Field string `construct:"missing"`
}

type WronglyTyped struct {
	Field string `construct:"height"`
}

func TestStrategyInstantiationErrors(t *testing.T) {
	f := setup(deserialize.Options{})
	registerConverters(t, f)

	_, err := load[Broken](t, f, "{field: a}")
	instantiation := shared.StrategyInstantiationError{}
	assert.Assert(t, errors.As(err, &instantiation))
	assert.ErrorContains(t, err, "cannot instantiate constructor missing requested by Broken.field: no strategy registered under this name")

	_, err = load[WronglyTyped](t, f, "{field: a}")
	assert.Assert(t, errors.As(err, &instantiation))
	assert.ErrorContains(t, err, "does not implement strategy.Constructor")
}

type Counted struct {
	Source string
	Value  int
}

type Counters struct {
	First  Counted
	Second Counted `instantiate:"fromProperty"`
}

func TestInstantiators(t *testing.T) {
	f := setup(deserialize.Options{})
	fromType := strategy.InstantiatorFunc(func(req strategy.InstantiationRequest) (any, error) {
		return &Counted{Source: "type"}, nil
	})
	fromProperty := strategy.InstantiatorFunc(func(req strategy.InstantiationRequest) (any, error) {
		return Counted{Source: "property:" + req.Property}, nil
	})
	global := strategy.InstantiatorFunc(func(req strategy.InstantiationRequest) (any, error) {
		instance, err := req.Default()
		if err != nil {
			return nil, err
		}
		if counted, ok := instance.(*Counted); ok {
			counted.Source = "global"
		}
		return instance, nil
	})
	assert.NilError(t, f.registry.Catalog().Register("fromProperty", strategy.Instance(fromProperty)))

	counters, err := load[Counters](t, f, "{first: {value: 1}, second: {value: 2}}")
	assert.NilError(t, err)
	assert.Equal(t, counters.First, Counted{Source: "", Value: 1})
	assert.Equal(t, counters.Second, Counted{Source: "property:second", Value: 2})

	f.registry.SetGlobalInstantiator(strategy.Instance(global))
	counters, err = load[Counters](t, f, "{first: {value: 1}}")
	assert.NilError(t, err)
	assert.Equal(t, counters.First.Source, "global")

	assert.NilError(t, f.registry.RegisterInstantiator(reflect.TypeOf(Counted{}), strategy.Instance(fromType)))
	counters, err = load[Counters](t, f, "{first: {value: 1}, second: {value: 2}}")
	assert.NilError(t, err)
	assert.Equal(t, counters.First.Source, "type")
	assert.Equal(t, counters.Second.Source, "property:second")

	wrong := strategy.InstantiatorFunc(func(req strategy.InstantiationRequest) (any, error) {
		return &Point{}, nil
	})
	assert.NilError(t, f.registry.RegisterInstantiator(reflect.TypeOf(Counted{}), strategy.Instance(wrong)))
	_, err = load[Counters](t, f, "{first: {value: 1}}")
	assignment := shared.PropertyAssignmentError{}
	assert.Assert(t, errors.As(err, &assignment))
	assert.Equal(t, assignment.Property, "first")
}

type Server struct {
	Host    string
	Port    int
	Retries int      `default:"3"`
	Tags    []string `default:"[a, b]"`
}

func (s *Server) Initialize() error {
	s.Port = 80
	return nil
}

func (s *Server) Validate() error {
	if s.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

var _ validation.Initializer = &Server{}
var _ validation.Validator = &Server{}

func TestDefaultsAndValidation(t *testing.T) {
	f := setup(deserialize.Options{RootPath: "server.yaml"})
	server, err := load[Server](t, f, "{host: example.org}")
	assert.NilError(t, err)
	assert.Equal(t, server.Port, 80)
	assert.Equal(t, server.Retries, 3)
	testutils.AssertEqualArrays(t, server.Tags, []string{"a", "b"}, "default list")

	server, err = load[Server](t, f, "{host: example.org, port: 8080, retries: 0}")
	assert.NilError(t, err)
	assert.Equal(t, server.Port, 8080)
	assert.Equal(t, server.Retries, 0)

	_, err = load[Server](t, f, "{port: 8080}")
	invalid := validation.Error{}
	assert.Assert(t, errors.As(err, &invalid))
	assert.Equal(t, invalid.Path, "server.yaml")
	assert.ErrorContains(t, err, "missing host")
}

type ValueInitializer struct {
	Name string
}

func (v ValueInitializer) Initialize() error {
	return nil
}

func TestInitializerOnValueIsRejected(t *testing.T) {
	f := setup(deserialize.Options{})
	_, err := load[ValueInitializer](t, f, "{name: a}")
	assert.ErrorContains(t, err, "it should be implemented by pointer type")
}

type Shout struct {
	Text string
}

func (s *Shout) UnmarshalYAML(value *yaml.Node) error {
	var source string
	if err := value.Decode(&source); err != nil {
		return err //nolint:wrapcheck
	}
	s.Text = strings.ToUpper(source) + "!"
	return nil
}

type Announcement struct {
	Message Shout
}

func TestYAMLDriver(t *testing.T) {
	f := setup(deserialize.Options{Driver: yamlDriver.Driver{}})
	announcement, err := load[Announcement](t, f, "{message: hello}")
	assert.NilError(t, err)
	assert.Equal(t, announcement.Message.Text, "HELLO!")

	// Without the driver, `Shout` is a plain struct.
	f = setup(deserialize.Options{})
	_, err = load[Announcement](t, f, "{message: hello}")
	assert.ErrorContains(t, err, "expected an object of type Shout")
}

type Anything struct {
	Payload any
}

func TestEmptyInterface(t *testing.T) {
	f := setup(deserialize.Options{})
	anything, err := load[Anything](t, f, "{payload: {a: 1, b: [true, x]}}")
	assert.NilError(t, err)
	assert.DeepEqual(t, anything.Payload, map[string]any{"a": 1, "b": []any{true, "x"}})
}

type Embedded struct {
	Shared string
}

type Outer struct {
	Embedded
	Own string
}

func TestEmbeddedStruct(t *testing.T) {
	f := setup(deserialize.Options{})
	outer, err := load[Outer](t, f, "{shared: a, own: b}")
	assert.NilError(t, err)
	assert.Equal(t, outer.Shared, "a")
	assert.Equal(t, outer.Own, "b")
}

type OuterByPointer struct {
	*Embedded
	Own string
}

func TestEmbeddedPointer(t *testing.T) {
	f := setup(deserialize.Options{})
	outer, err := load[OuterByPointer](t, f, "{shared: a, own: b}")
	assert.NilError(t, err)
	assert.Assert(t, outer.Embedded != nil)
	assert.Equal(t, outer.Shared, "a")
	assert.Equal(t, outer.Own, "b")

	outer, err = load[OuterByPointer](t, f, "{own: b}")
	assert.NilError(t, err)
	assert.Assert(t, outer.Embedded == nil, "allocated only when a promoted key is present")

	_, err = load[OuterByPointer](t, f, "{embedded: {shared: a}}")
	unknown := shared.UnknownPropertyError{}
	assert.Assert(t, errors.As(err, &unknown), "the embedded pointer is not a property of its own")
}

func TestPropertyLeftUntouchedOnError(t *testing.T) {
	f := setup(deserialize.Options{})
	built, err := f.loader.BuildObject(testutils.MustParse(t, "{name: Ada}"), reflect.TypeOf(Person{}))
	assert.NilError(t, err)
	person := reflect.New(reflect.TypeOf(Person{})).Elem()
	person.Set(built)
	person.FieldByName("Height").SetInt(170)

	introspector := property.NewIntrospector(property.Options{})
	info, err := introspector.Inspect(reflect.TypeOf(Person{}))
	assert.NilError(t, err)
	height, ok := info.Lookup("height")
	assert.Assert(t, ok)

	// No converter registered under "height".
	err = f.loader.BuildProperty(person, height, node.String("1.90 m"))
	assert.ErrorContains(t, err, "cannot instantiate converter height")
	assert.Equal(t, person.Interface().(Person).Height, 170) //nolint:forcetypeassert
}
