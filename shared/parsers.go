package shared

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// A parser for strings into primitive values.
type Parser func(source string) (any, error)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	uuidType            = reflect.TypeOf(uuid.UUID{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Lookup a parser able to convert YAML scalar text into a value of
// type `fieldType`, or nil if there is none.
//
// The result of a parser is always convertible to `fieldType`.
func LookupParser(fieldType reflect.Type) *Parser {
	var p Parser
	switch {
	case fieldType == uuidType:
		p = func(source string) (any, error) {
			return uuid.Parse(source) //nolint:wrapcheck
		}
	case fieldType == durationType:
		p = func(source string) (any, error) {
			return time.ParseDuration(source) //nolint:wrapcheck
		}
	case reflect.PointerTo(fieldType).Implements(textUnmarshalerType):
		p = func(source string) (any, error) {
			ptr := reflect.New(fieldType)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(source)); err != nil {
				return nil, err //nolint:wrapcheck
			}
			return ptr.Elem().Interface(), nil
		}
	default:
		p = kindParser(fieldType.Kind())
	}
	if p == nil {
		return nil
	}
	return &p
}

func kindParser(kind reflect.Kind) Parser {
	switch kind {
	case reflect.Bool:
		return func(source string) (any, error) {
			return strconv.ParseBool(source) //nolint:wrapcheck
		}
	case reflect.Float32, reflect.Float64:
		bits := 64
		if kind == reflect.Float32 {
			bits = 32
		}
		return func(source string) (any, error) {
			if special, ok := yamlFloats[source]; ok {
				return special, nil
			}
			return strconv.ParseFloat(source, bits) //nolint:wrapcheck
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := intBits[kind]
		return func(source string) (any, error) {
			// Base 0 accepts YAML's 0x and 0o prefixes.
			return strconv.ParseInt(source, 0, bits) //nolint:wrapcheck
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := intBits[kind]
		return func(source string) (any, error) {
			return strconv.ParseUint(source, 0, bits) //nolint:wrapcheck
		}
	case reflect.String:
		return func(source string) (any, error) {
			return source, nil
		}
	default:
		return nil
	}
}

// The YAML 1.2 core schema spellings of infinities and NaN.
var yamlFloats = map[string]float64{
	".inf": math.Inf(1), ".Inf": math.Inf(1), ".INF": math.Inf(1),
	"+.inf": math.Inf(1), "+.Inf": math.Inf(1), "+.INF": math.Inf(1),
	"-.inf": math.Inf(-1), "-.Inf": math.Inf(-1), "-.INF": math.Inf(-1),
	".nan": math.NaN(), ".NaN": math.NaN(), ".NAN": math.NaN(),
}

var intBits = map[reflect.Kind]int{
	reflect.Int: 64, reflect.Int8: 8, reflect.Int16: 16, reflect.Int32: 32, reflect.Int64: 64,
	reflect.Uint: 64, reflect.Uint8: 8, reflect.Uint16: 16, reflect.Uint32: 32, reflect.Uint64: 64,
}

// Render a scalar value as YAML text, the inverse of `LookupParser`.
//
// Returns false if the value is not a scalar we know how to render.
func FormatScalar(value reflect.Value) (string, bool) {
	if !value.IsValid() {
		return "", false
	}
	typ := value.Type()
	switch {
	case typ == durationType:
		return time.Duration(value.Int()).String(), true
	case typ.Implements(textMarshalerType):
		text, err := value.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false
		}
		return string(text), true
	}
	switch value.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(value.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(value.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(value.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(value.Float(), 'g', -1, 64), true
	case reflect.String:
		return value.String(), true
	default:
		return "", false
	}
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Return a (mostly) human-readable type name for a Go type.
//
// This type name is used for user error messages.
func TypeName(typ reflect.Type) string {
	if typ == nil {
		return "<nil>"
	}
	name := typ.Name()
	if name == "" {
		return typ.String()
	}
	return strings.ReplaceAll(name, fmt.Sprint(typ.PkgPath(), "."), "")
}
