package frag

import (
	"fmt"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

// ProcessError occurs when the runtime module rejects the input.
type ProcessError struct {
	Module     string
	InputBytes int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("runtime module '%s' failed to convert %d bytes of IFC", e.Module, e.InputBytes)
}

// MissingExportError occurs when the runtime module does not implement the guest ABI.
type MissingExportError struct {
	Module string
	Export string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("runtime module '%s' does not export '%s' (guest ABI v%d required)", e.Module, e.Export, wasmapi.ABIVersion)
}
