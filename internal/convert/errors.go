package convert

import (
	"fmt"
)

// InputError occurs when the IFC file cannot be read.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("failed to read input '%s': %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// OutputError occurs when the FRAG file cannot be written.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write output '%s': %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}
