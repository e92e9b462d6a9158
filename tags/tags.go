package tags

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/pasqal-io/yamlext/assertions/initialized"
)

// Tag keys understood by the pipeline.
const (
	Alias        = "alias"
	Convert      = "convert"
	Construct    = "construct"
	Instantiate  = "instantiate"
	IgnoreErrors = "ignoreErrors"
	SkipLoad     = "skipLoad"
	SkipDump     = "skipDump"
	SkipDumpIf   = "skipDumpIf"
	SkipDumpExpr = "skipDumpExpr"
	Order        = "order"
	AnySetter    = "anySetter"
	AnyGetter    = "anyGetter"
	Default      = "default"
	Subtypes     = "subtypes"
	Selector     = "selector"
	SkipMissing  = "skipMissing"
)

// Keys whose content is kept verbatim instead of being split on commas.
var verbatim = map[string]bool{
	Default:      true,
	SkipDumpExpr: true,
}

// A representation of the tags for a given field.
type Tags struct {
	tags    map[string][]string
	witness initialized.IsInitialized
}

func Empty() Tags {
	return Tags{
		tags:    make(map[string][]string),
		witness: initialized.Make(),
	}
}

// Parse the tag associated to a struct field, according to the specs
// of Go tags.
func Parse(tag reflect.StructTag) (Tags, error) {
	tags := make(map[string][]string)
	// Same scanner as reflect.StructTag.Lookup, but we keep every key.
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}

		// Scan to colon. A space, a quote or a control character is a syntax error.
		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			break
		}
		name := string(tag[:i])
		if name == "" {
			return Tags{}, errors.New("invalid tag with empty name")
		}
		if _, exists := tags[name]; exists {
			return Tags{}, fmt.Errorf("invalid tag, name %s should only be defined once", name)
		}

		tag = tag[i+1:]

		// Scan quoted string to find value.
		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			break
		}
		qvalue := string(tag[:i+1])
		tag = tag[i+1:]

		list, err := strconv.Unquote(qvalue)
		if err != nil {
			return Tags{}, fmt.Errorf("ill-formed tag %s:\n\t * %w", name, err)
		}

		if verbatim[name] {
			tags[name] = []string{list}
			continue
		}
		split := strings.Split(list, ",")
		trimmed := make([]string, 0, len(split))
		for _, s := range split {
			if t := strings.TrimSpace(s); t != "" {
				trimmed = append(trimmed, t)
			}
		}
		// Make sure that we always have at least an empty string.
		if len(trimmed) == 0 {
			trimmed = append(trimmed, "")
		}
		tags[name] = trimmed
	}
	return Tags{
		tags:    tags,
		witness: initialized.Make(),
	}, nil
}

// The first value of a key, if the key is present and non-empty.
func (tags Tags) first(key string) *string {
	tags.witness.Assert()
	result, ok := tags.tags[key]
	if !ok || len(result) == 0 || result[0] == "" {
		return nil
	}
	return &result[0]
}

// Return the public field name for a field.
//
// e.g. for yaml, if there's a tag `yaml:"foo"`, this means
// that the field is known externally as `foo`.
func (tags Tags) PublicFieldName(key string) *string {
	return tags.first(key)
}

// Return the alias under which a field is loaded.
//
// This is tag `alias`. Once an alias is declared, the natural name
// is no longer accepted when loading.
func (tags Tags) Alias() *string {
	return tags.first(Alias)
}

// Return the name of the converter attached to a field.
//
// This is tag `convert`.
func (tags Tags) Converter() *string {
	return tags.first(Convert)
}

// Return the name of the construction strategy attached to a field
// or, on a `meta.Type` marker, to a type.
//
// This is tag `construct`.
func (tags Tags) Constructor() *string {
	return tags.first(Construct)
}

// Return the name of the instantiator attached to a field or a type.
//
// This is tag `instantiate`.
func (tags Tags) Instantiator() *string {
	return tags.first(Instantiate)
}

// Return the default value used when a key is absent.
//
// This is tag `default`. The content is not split on commas.
func (tags Tags) Default() *string {
	tags.witness.Assert()
	result, ok := tags.tags[Default]
	if !ok || len(result) == 0 {
		return nil
	}
	return &result[0]
}

// Return the name of the predicate deciding whether a field is dumped.
//
// This is tag `skipDumpIf`.
func (tags Tags) SkipDumpIf() *string {
	return tags.first(SkipDumpIf)
}

// Return an expr-lang expression deciding whether a field is dumped.
//
// This is tag `skipDumpExpr`.
func (tags Tags) SkipDumpExpr() *string {
	return tags.first(SkipDumpExpr)
}

// Return the dump order of a field, 0 if unspecified.
//
// This is tag `order`.
func (tags Tags) Order() (int, error) {
	source := tags.first(Order)
	if source == nil {
		return 0, nil
	}
	order, err := strconv.Atoi(*source)
	if err != nil {
		return 0, fmt.Errorf("invalid `order` value %q:\n\t * %w", *source, err)
	}
	return order, nil
}

// Return the substitution candidates declared on a `meta.Type` marker.
//
// This is tag `subtypes`.
func (tags Tags) Subtypes() []string {
	tags.witness.Assert()
	result, ok := tags.tags[Subtypes]
	if !ok || len(result) == 0 || result[0] == "" {
		return nil
	}
	return result
}

// Return the name of the subtype selector declared on a `meta.Type` marker.
//
// This is tag `selector`.
func (tags Tags) Selector() *string {
	return tags.first(Selector)
}

// Return the name of the any-setter method declared on a `meta.Type` marker.
//
// This is tag `anySetter` with a value.
func (tags Tags) AnySetterMethod() *string {
	return tags.first(AnySetter)
}

// Return `true` if the tag `key` is present, regardless of its content.
func (tags Tags) Has(key string) bool {
	tags.witness.Assert()
	_, ok := tags.tags[key]
	return ok
}

// Lookup a key.
func (tags Tags) Lookup(key string) ([]string, bool) {
	tags.witness.Assert()
	result, ok := tags.tags[key]
	return result, ok
}
