//nolint:exhaustruct
package yamlext_test

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/pasqal-io/yamlext"
	"github.com/pasqal-io/yamlext/assertions/testutils"
	"github.com/pasqal-io/yamlext/meta"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
	"gotest.tools/v3/assert"
)

type StellarObject struct {
	Name   string `alias:"nameAlias"`
	Radius int
}

func TestAliasScenario(t *testing.T) {
	pipeline := yamlext.New(yamlext.DefaultOptions("stars.yaml"))
	sun, err := yamlext.Load[StellarObject](pipeline, []byte("{nameAlias: Sun, radius: 4}"))
	assert.NilError(t, err)
	assert.Equal(t, sun, StellarObject{Name: "Sun", Radius: 4})

	_, err = yamlext.Load[StellarObject](pipeline, []byte("{nameAlias: Sun, name: Sun}"))
	conflict := shared.AliasConflictError{}
	assert.Assert(t, errors.As(err, &conflict))
	assert.ErrorContains(t, err, `property "name" of StellarObject has alias "nameAlias"`)
	assert.ErrorContains(t, err, "at stars.yaml")
}

type Animal interface {
	Name() string
}

type Dog struct {
	Loudness int
}

func (*Dog) Name() string { return "dog" }

type Cat struct {
	Lives int
}

func (*Cat) Name() string { return "cat" }

type Shelter struct {
	Resident Animal
}

func TestSubtypeScenario(t *testing.T) {
	for _, candidates := range [][]reflect.Type{
		{reflect.TypeOf(Dog{}), reflect.TypeOf(Cat{})},
		{reflect.TypeOf(Cat{}), reflect.TypeOf(Dog{})},
	} {
		pipeline := yamlext.New(yamlext.DefaultOptions(""))
		meta.Declare[Animal](pipeline.Table()).Subtypes(candidates...)
		shelter, err := yamlext.Load[Shelter](pipeline, []byte("resident: {loudness: 5}"))
		assert.NilError(t, err)
		assert.Equal(t, shelter.Resident.Name(), "dog")
	}
}

type meters struct{}

func (meters) ToModel(value any, _ reflect.Type) (any, error) {
	text, _ := value.(string)
	if centimeters, found := strings.CutSuffix(text, "cm"); found {
		return strconv.Atoi(centimeters) //nolint:wrapcheck
	}
	parsed, err := strconv.ParseFloat(strings.TrimSuffix(text, " m"), 64)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return int(parsed*100 + 0.5), nil //nolint:mnd
}

func (meters) ToYAML(value any) (any, error) {
	return fmt.Sprintf("%dcm", value), nil
}

type throwing struct{}

func (throwing) ToModel(any, reflect.Type) (any, error) { return nil, errors.New("boom") }
func (throwing) ToYAML(any) (any, error)                { return nil, errors.New("boom") }

type Athlete struct {
	Name   string
	Height int            `convert:"meters"`
	Weight *int           `convert:"throwing" ignoreErrors:""`
	Extra  map[string]any `anySetter:""`
}

func newAthletePipeline(t *testing.T) *yamlext.Pipeline {
	t.Helper()
	pipeline := yamlext.New(yamlext.DefaultOptions("athletes.yaml"))
	assert.NilError(t, pipeline.Catalog().Register("meters", strategy.Instance(meters{})))
	assert.NilError(t, pipeline.Catalog().Register("throwing", strategy.Instance(throwing{})))
	return pipeline
}

func TestConverterScenario(t *testing.T) {
	pipeline := newAthletePipeline(t)
	athlete, err := yamlext.Load[Athlete](pipeline, []byte("{name: Ada, height: 1.85 m, weight: 60, extra: 1}"))
	assert.NilError(t, err)
	assert.Equal(t, athlete.Height, 185)
	assert.Assert(t, athlete.Weight == nil, "the throwing converter leaves the property unset")
	assert.DeepEqual(t, athlete.Extra, map[string]any{"extra": 1})

	out, err := pipeline.Marshal(Athlete{Name: "Ada", Height: 185})
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(out), "height: 185cm\n"), string(out))
	plain, err := testutils.Unmarshal[struct {
		Height string `yaml:"height"`
	}](t, out)
	assert.NilError(t, err)
	assert.Equal(t, plain.Height, "185cm")

	reloaded, err := yamlext.Load[Athlete](pipeline, out)
	assert.NilError(t, err)
	assert.Equal(t, reloaded.Height, 185)
	assert.Equal(t, reloaded.Name, "Ada")
}

func TestLoadList(t *testing.T) {
	pipeline := yamlext.New(yamlext.DefaultOptions(""))
	stars, err := yamlext.LoadList[StellarObject](pipeline, []byte("- nameAlias: Sun\n- nameAlias: Sirius\n  radius: 2\n"))
	assert.NilError(t, err)
	assert.Equal(t, len(stars), 2)
	assert.Equal(t, stars[1], StellarObject{Name: "Sirius", Radius: 2})

	stars, err = yamlext.LoadList[StellarObject](pipeline, []byte("nameAlias: Sun"))
	assert.NilError(t, err)
	assert.Equal(t, len(stars), 1)
}

func TestLoadAll(t *testing.T) {
	pipeline := yamlext.New(yamlext.DefaultOptions(""))
	documents, err := pipeline.LoadAll([]byte("nameAlias: Sun\n---\nnameAlias: Moon\n"), reflect.TypeOf(StellarObject{}))
	assert.NilError(t, err)
	assert.Equal(t, len(documents), 2)
	assert.Equal(t, documents[1].Interface().(StellarObject).Name, "Moon") //nolint:forcetypeassert

	_, err = pipeline.LoadAll([]byte("nameAlias: Sun\n---\nname: Moon\n"), reflect.TypeOf(StellarObject{}))
	assert.ErrorContains(t, err, "in document 1")
}

func TestCaseInsensitive(t *testing.T) {
	options := yamlext.DefaultOptions("")
	options.CaseInsensitive = true
	pipeline := yamlext.New(options)
	star, err := yamlext.Load[StellarObject](pipeline, []byte("{NAMEALIAS: Sun, Radius: 1}"))
	assert.NilError(t, err)
	assert.Equal(t, star, StellarObject{Name: "Sun", Radius: 1})
}

func TestReset(t *testing.T) {
	pipeline := newAthletePipeline(t)
	pipeline.Reset()
	_, err := yamlext.Load[Athlete](pipeline, []byte("{height: 1.85 m}"))
	instantiation := shared.StrategyInstantiationError{}
	assert.Assert(t, errors.As(err, &instantiation))
	assert.Equal(t, instantiation.Strategy, "meters")
}

func TestPipelinesAreIndependent(t *testing.T) {
	first := yamlext.New(yamlext.DefaultOptions(""))
	second := yamlext.New(yamlext.DefaultOptions(""))
	meta.Declare[Animal](first.Table()).Subtypes(reflect.TypeOf(Cat{}))

	shelter, err := yamlext.Load[Shelter](first, []byte("resident: {lives: 9}"))
	assert.NilError(t, err)
	assert.Equal(t, shelter.Resident.Name(), "cat")

	_, err = yamlext.Load[Shelter](second, []byte("resident: {lives: 9}"))
	assert.ErrorContains(t, err, "no subtype declared")
}
