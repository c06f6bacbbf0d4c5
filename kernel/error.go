package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error values so they can be returned and compared without
// allocating memory; errors.New is not an option before the heap is mapped.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
