package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

// ManifestFile is the optional metadata file of a bundle directory.
const ManifestFile = "manifest.yaml"

// Manifest represents the bundle manifest.yaml structure.
type Manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	ABI     int    `yaml:"abi,omitempty"`
	Files   Files  `yaml:"files"`

	dir string
}

// Files names the runtime binaries inside the bundle.
type Files struct {
	Core string `yaml:"core"`
	Node string `yaml:"node"`
}

// DefaultManifest describes a bundle laid out like the web-ifc npm package.
func DefaultManifest(dir string) *Manifest {
	return &Manifest{
		Name: "web-ifc",
		Files: Files{
			Core: CoreRuntimeFile,
			Node: NodeRuntimeFile,
		},
		dir: dir,
	}
}

// ParseManifest reads manifest.yaml from dir. A directory without a manifest
// yields DefaultManifest; a manifest must name files present in dir.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultManifest(dir), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest '%s': %w", manifestPath, err)
	}

	m := DefaultManifest(dir)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}
	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := m.checkFiles(); err != nil {
		return nil, err
	}

	return m, nil
}

// checkFiles requires every runtime named by an explicit manifest to exist.
func (m *Manifest) checkFiles() error {
	for _, name := range []string{m.Files.Core, m.Files.Node} {
		info, err := os.Stat(filepath.Join(m.dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return &WasmNotFoundError{Dir: m.dir, WasmFile: name}
		}
	}
	return nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Files.Core == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "files.core",
			Message: "files.core must not be empty",
		}
	}

	if m.Files.Node == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "files.node",
			Message: "files.node must not be empty",
		}
	}

	for field, name := range map[string]string{"files.core": m.Files.Core, "files.node": m.Files.Node} {
		if filepath.Base(name) != name {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   field,
				Message: fmt.Sprintf("%s must be a file name, not a path", name),
			}
		}
	}

	if m.ABI != 0 && m.ABI != wasmapi.ABIVersion {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "abi",
			Message: fmt.Sprintf("unsupported abi %d (host implements %d)", m.ABI, wasmapi.ABIVersion),
		}
	}

	return nil
}

// Write stores the manifest as manifest.yaml in dir.
func (m *Manifest) Write(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	m.dir = dir
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644)
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
