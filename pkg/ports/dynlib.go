package ports

// DynamicLibrary abstracts loading native shared modules and calling their
// C-linkage entry points.
type DynamicLibrary interface {
	// Open loads the module at path, or resolves a bare name through the
	// platform's default search path.
	Open(path string) (uintptr, error)

	// Resolve returns the address of symbol in the module, or false if the
	// module does not export it.
	Resolve(handle uintptr, symbol string) (uintptr, bool)

	// Call invokes the C function at fn with integer or pointer arguments
	// and returns its integer result.
	Call(fn uintptr, args ...uintptr) uintptr

	// Close releases the module handle.
	Close(handle uintptr) error
}
