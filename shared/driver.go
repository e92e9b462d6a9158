package shared

import (
	"reflect"

	"github.com/pasqal-io/yamlext/node"
)

// A driver for types that know how to build themselves from a node,
// short-circuiting the pipeline.
type Driver interface {
	// Return true if values of type `typ` should be built by this driver.
	ShouldUnmarshal(typ reflect.Type) bool

	// Build the value pointed to by `out` from a node.
	Unmarshal(n *node.Node, out any) error
}

// A driver that never takes over.
type NoDriver struct{}

func (NoDriver) ShouldUnmarshal(reflect.Type) bool {
	return false
}

func (NoDriver) Unmarshal(*node.Node, any) error {
	panic("NoDriver.Unmarshal should never be called")
}

var _ Driver = NoDriver{}
