// Mechanisms to deal with initialization and validation of values.
//
// These interfaces are designed to be implemented by the types loaded
// from YAML documents.
package validation

import "fmt"

// A type that supports initialization.
//
// The loader runs `Initialize()` on every freshly instantiated struct,
// **before** assigning any of its properties. This is the place to set
// defaults for keys that documents may omit.
//
// Important: We expect `Initializer` to be implemented on **pointers**,
// rather than on structs.
//
// Otherwise, all its operations are performed on a copy of the struct and
// the result is lost immediately.
type Initializer interface {
	// Setup the contents of the struct.
	Initialize() error
}

// A type that supports validation.
//
// The loader runs `Validate()` on every struct, **after** assigning all
// of its properties.
//
// Important: We expect `Validator` to be implemented on **pointers**,
// rather than on structs.
//
// This lets `Validate()` perform any necessary changes to the data
// structure. In particular, if necessary, it may be used to populate
// private fields from the contents of public fields.
type Validator interface {
	// Confirm that the data is valid.
	//
	// Return an error if it is invalid.
	//
	// If necessary, this method may alter the contents of the struct.
	Validate() error
}

// An error raised by a `Validator`, wrapped with the path of the value.
type Error struct {
	// The path of the value that failed validation, e.g. "Config.servers[0]".
	Path string

	// The error returned by `Validate()`.
	Wrapped error
}

// Wrap an error returned by `Validate()`.
func WrapError(path string, err error) Error {
	return Error{
		Path:    path,
		Wrapped: err,
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("loaded value %s did not pass validation\n\t * %s", e.Path, e.Wrapped.Error())
}

func (e Error) Unwrap() error {
	return e.Wrapped
}

var _ error = Error{} //nolint:exhaustruct
