package bundle

import (
	"fmt"
)

// DirNotFoundError occurs when the resolved runtime directory does not exist.
type DirNotFoundError struct {
	Path string
}

func (e *DirNotFoundError) Error() string {
	return fmt.Sprintf("web-ifc wasm directory not found: %s", e.Path)
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when a runtime file is missing from a bundle.
type WasmNotFoundError struct {
	Dir      string
	WasmFile string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found in '%s'", e.WasmFile, e.Dir)
}

// StageError occurs when embedded runtimes cannot be written to disk.
type StageError struct {
	Dir string
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed to stage wasm runtime in '%s': %v", e.Dir, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
