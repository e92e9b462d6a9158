// Code specific to types that implement `yaml.Unmarshaler`.
package yaml

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/shared"
)

// The deserialization driver for `gopkg.in/yaml.v3`.
type Driver struct{}

// The interface for `yaml.Unmarshaler`.
var unmarshaler = reflect.TypeOf(new(yaml.Unmarshaler)).Elem()

// Determine whether we should call the driver to build values of this type.
//
// This is the case if `*typ` implements `yaml.Unmarshaler`.
//
// You probably won't ever need to call this method.
func (u Driver) ShouldUnmarshal(typ reflect.Type) bool {
	if typ.Kind() == reflect.Interface {
		return false
	}
	return reflect.PointerTo(typ).Implements(unmarshaler)
}

// Perform unmarshaling.
//
// You probably won't ever need to call this method.
func (u Driver) Unmarshal(n *node.Node, out any) error {
	unmarshal, ok := out.(yaml.Unmarshaler)
	if !ok {
		return fmt.Errorf("this type cannot be deserialized by yaml: %T", out)
	}
	return unmarshal.UnmarshalYAML(n.ToYAML()) //nolint:wrapcheck
}

var _ shared.Driver = Driver{} // Type assertion.
