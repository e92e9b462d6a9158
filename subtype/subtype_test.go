package subtype_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/registry"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
	"github.com/pasqal-io/yamlext/subtype"
	"gotest.tools/v3/assert"
)

type Animal interface {
	Sound() string
}

type Dog struct {
	Loudness int
}

func (d *Dog) Sound() string { return "woof" }

type Cat struct {
	Lives int
}

func (c *Cat) Sound() string { return "meow" }

type Bird struct {
	Wings int
}

func (b *Bird) Sound() string { return "tweet" }

var (
	animalType = reflect.TypeOf((*Animal)(nil)).Elem()
	dogType    = reflect.TypeOf(Dog{})  //nolint:exhaustruct
	catType    = reflect.TypeOf(Cat{})  //nolint:exhaustruct
	birdType   = reflect.TypeOf(Bird{}) //nolint:exhaustruct
)

// Accept a mapping iff every key is a lower-cased field of the candidate.
func fieldTrial(n *node.Node, candidate reflect.Type) error {
	for _, key := range n.Keys() {
		found := false
		for i := 0; i < candidate.NumField(); i++ {
			if key == strings.ToLower(candidate.Field(i).Name) {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("unknown property %q", key)
		}
	}
	// Trials work on copies.
	n.Entries = nil
	return nil
}

func loudDog() *node.Node {
	return node.Mapping(node.Pair("loudness", node.Scalar(node.IntTag, "5")))
}

func TestFilteringPicksTheOnlyCompatibleCandidate(t *testing.T) {
	orders := [][]reflect.Type{
		{dogType, catType, birdType},
		{catType, dogType, birdType},
		{birdType, catType, dogType},
	}
	for _, candidates := range orders {
		n := loudDog()
		chosen, err := subtype.Select(n, animalType, registry.Substitution{Candidates: candidates}, nil, fieldTrial) //nolint:exhaustruct
		assert.NilError(t, err)
		assert.Equal(t, chosen, dogType)
		assert.Equal(t, len(n.Entries), 1, "the original node is untouched")
	}
}

func TestFirstSurvivorWins(t *testing.T) {
	empty := node.Mapping()
	chosen, err := subtype.Select(empty, animalType, registry.Substitution{Candidates: []reflect.Type{catType, dogType}}, nil, fieldTrial) //nolint:exhaustruct
	assert.NilError(t, err)
	assert.Equal(t, chosen, catType)
}

func TestNoApplicableSubtype(t *testing.T) {
	n := node.Mapping(node.Pair("fins", node.Scalar(node.IntTag, "2")))
	_, err := subtype.Select(n, animalType, registry.Substitution{Candidates: []reflect.Type{dogType, catType}}, nil, fieldTrial) //nolint:exhaustruct
	noSubtype := shared.NoApplicableSubtypeError{} //nolint:exhaustruct
	assert.Assert(t, errors.As(err, &noSubtype))
	assert.Equal(t, noSubtype.Declared, animalType)
	assert.Equal(t, len(noSubtype.Failures), 2)
	assert.ErrorContains(t, err, "no applicable subtype of Animal among [Dog, Cat]")
	assert.ErrorContains(t, err, `Dog rejected:`)
}

func TestSelectorReceivesSurvivors(t *testing.T) {
	var offered []reflect.Type
	last := strategy.SelectorFunc(func(n *node.Node, declared reflect.Type, candidates []reflect.Type) (reflect.Type, error) {
		offered = candidates
		return candidates[len(candidates)-1], nil
	})
	empty := node.Mapping()
	substitution := registry.Substitution{Candidates: []reflect.Type{dogType, catType, birdType}} //nolint:exhaustruct
	chosen, err := subtype.Select(empty, animalType, substitution, last, fieldTrial)
	assert.NilError(t, err)
	assert.Equal(t, chosen, birdType)
	assert.Equal(t, len(offered), 3)

	offered = nil
	chosen, err = subtype.Select(loudDog(), animalType, substitution, last, fieldTrial)
	assert.NilError(t, err)
	assert.Equal(t, chosen, dogType)
	assert.Equal(t, len(offered), 1)
}

type byTag struct{}

func (byTag) Select(n *node.Node, declared reflect.Type, candidates []reflect.Type) (reflect.Type, error) {
	kind, ok := n.Lookup("kind")
	if !ok {
		return nil, errors.New("missing kind")
	}
	for _, candidate := range candidates {
		if strings.ToLower(candidate.Name()) == kind.Value {
			return candidate, nil
		}
	}
	return nil, nil
}

func (byTag) DisableFiltering() bool { return true }

func TestUnfilteredSelector(t *testing.T) {
	trialCalled := false
	failing := func(n *node.Node, candidate reflect.Type) error {
		trialCalled = true
		return errors.New("never")
	}
	substitution := registry.Substitution{Candidates: []reflect.Type{dogType, catType}} //nolint:exhaustruct
	n := node.Mapping(node.Pair("kind", node.String("cat")))
	chosen, err := subtype.Select(n, animalType, substitution, byTag{}, failing)
	assert.NilError(t, err)
	assert.Equal(t, chosen, catType)
	assert.Assert(t, !trialCalled)

	_, err = subtype.Select(node.Mapping(), animalType, substitution, byTag{}, failing)
	assert.ErrorContains(t, err, "missing kind")

	n = node.Mapping(node.Pair("kind", node.String("fish")))
	_, err = subtype.Select(n, animalType, substitution, byTag{}, failing)
	assert.ErrorContains(t, err, "chose no candidate")
}

func TestDisableFilteringFlag(t *testing.T) {
	substitution := registry.Substitution{Candidates: []reflect.Type{dogType, catType}, DisableFiltering: true} //nolint:exhaustruct
	chosen, err := subtype.Select(node.Mapping(), animalType, substitution, nil, func(*node.Node, reflect.Type) error {
		return errors.New("never")
	})
	assert.NilError(t, err)
	assert.Equal(t, chosen, dogType)
}

func TestCompatible(t *testing.T) {
	assert.Assert(t, subtype.Compatible(dogType, animalType))
	assert.Assert(t, subtype.Compatible(dogType, reflect.PointerTo(dogType)))
	assert.Assert(t, !subtype.Compatible(dogType, catType))
}
