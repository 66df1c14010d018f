// Package bundle locates, opens and stages directories holding the web-ifc
// runtime modules.
package bundle

import (
	"os"
	"path/filepath"
	"strings"
)

// Runtime file names as shipped by the web-ifc package.
const (
	CoreRuntimeFile = "web-ifc.wasm"
	NodeRuntimeFile = "web-ifc-node.wasm"
)

// Bundle is a directory holding the runtime modules.
type Bundle struct {
	Dir      string
	Manifest *Manifest
}

// Open reads the bundle at dir.
func Open(dir string) (*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &DirNotFoundError{Path: dir}
	}

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	return &Bundle{Dir: dir, Manifest: manifest}, nil
}

// RuntimePath returns the module to execute: the node runtime when present,
// otherwise the core runtime.
func (b *Bundle) RuntimePath() (string, error) {
	for _, name := range []string{b.Manifest.Files.Node, b.Manifest.Files.Core} {
		p := filepath.Join(b.Dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", &WasmNotFoundError{Dir: b.Dir, WasmFile: b.Manifest.Files.Node}
}

// WithTrailingSeparator appends the OS path separator unless dir already ends
// with one.
func WithTrailingSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
