package testutils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pasqal-io/yamlext/node"
)

// Fail if two values are different.
//
// Does not stop the test.
func AssertEqual[T comparable](t *testing.T, actual, expected T, explanation string) {
	t.Helper()
	if expected != actual {
		t.Errorf("got: %+v; want: %+v (%s)", actual, expected, explanation)
		if reflect.ValueOf(expected).Kind() == reflect.Pointer {
			t.Error("Warning: you're comparing two pointers -- pointers are only equal if they point to the same physical object")
		}
	}
}
func AssertEqualArrays[T comparable](t *testing.T, actual, expected []T, explanation string) {
	t.Helper()
	AssertEqual(t, len(actual), len(expected), fmt.Sprintf("%s - invalid length", explanation))
	for i := 0; i < len(actual) && i < len(expected); i++ {
		AssertEqual(t, actual[i], expected[i], fmt.Sprintf("%s - invalid item %d", explanation, i))
	}
}

func AssertRegexp(t *testing.T, actual string, pattern regexp.Regexp, explanation string) {
	t.Helper()
	if pattern.FindStringIndex(actual) != nil {
		return
	}
	t.Errorf("got: %+v; expected: %+v (%s)", actual, pattern, explanation)
}

// Parse a single YAML document, stopping the test on error.
//
// Leading tabs are stripped, so that documents may be indented with the code.
func MustParse(t *testing.T, source string) *node.Node {
	t.Helper()
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, "\t")
	}
	n, err := node.ParseOne([]byte(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("invalid test document: %s", err)
	}
	return n
}

// Decode a dump with plain `gopkg.in/yaml.v3`, to check that it is readable
// by tools that know nothing about our annotations.
func Unmarshal[T any](t *testing.T, payload []byte) (*T, error) {
	t.Helper()

	// Case 1: Can Payload be unmarshalled to T?
	result := new(T)
	errT := yaml.Unmarshal(payload, result)
	if errT == nil {
		return result, nil
	}

	// Case 2: Can Payload can be unmarshalled to any kind of YAML?
	var debug any
	errYAML := yaml.Unmarshal(payload, &debug)
	if errYAML == nil {
		return nil, fmt.Errorf("payload is valid YAML but not in expected format, got: %+v\n\t%w", debug, errT)
	}
	return nil, fmt.Errorf("payload is invalid YAML, got %s\n\t%w", string(payload), errT)
}
