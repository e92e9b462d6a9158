package initialized

// A witness type used to detect structs that were not built by their
// constructor.
//
// In Go, `new(T)`, `T{}` or a partial literal all produce a value of type
// `T` without going through the constructor, and with none of the
// guarantees the constructor establishes (e.g. non-nil maps).
//
// Operation manual:
// - add a field `witness IsInitialized` in your struct;
// - call `initialized.Make()` from your constructor;
// - call `self.witness.Assert()` whenever you access data from your struct.
//
// Any access through a zero value then panics instead of silently
// misbehaving.
type IsInitialized struct {
	isInitialized bool
}

// Create a `IsInitialized`.
func Make() IsInitialized {
	return IsInitialized{
		isInitialized: true,
	}
}

// Panic unless this witness was created by `initialized.Make()`.
func (witness IsInitialized) Assert() {
	if !witness.isInitialized {
		panic("Struct was not initialized")
	}
}

// Report whether this witness was created by `initialized.Make()`.
func (witness IsInitialized) IsSet() bool {
	return witness.isInitialized
}
