package bundle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

// VersionFile optionally records the web-ifc version next to embedded runtimes.
const VersionFile = "VERSION"

// Staged is a bundle written from embedded runtimes.
type Staged struct {
	// Dir is absolute and ends with a path separator.
	Dir      string
	CoreFile string
	NodeFile string
}

// Stage creates a fresh web-ifc-* directory under tmpRoot (the OS temp dir
// when empty) and writes both runtimes from assets into it.
//
// The directory is not removed; it lives until the OS cleans its temp dir.
func Stage(assets fs.FS, tmpRoot string, logger *zap.Logger) (*Staged, error) {
	core, err := fs.ReadFile(assets, CoreRuntimeFile)
	if err != nil {
		return nil, &WasmNotFoundError{Dir: "embedded assets", WasmFile: CoreRuntimeFile}
	}
	node, err := fs.ReadFile(assets, NodeRuntimeFile)
	if err != nil {
		return nil, &WasmNotFoundError{Dir: "embedded assets", WasmFile: NodeRuntimeFile}
	}

	dir, err := os.MkdirTemp(tmpRoot, "web-ifc-")
	if err != nil {
		return nil, &StageError{Dir: tmpRoot, Err: err}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	staged := &Staged{
		Dir:      WithTrailingSeparator(dir),
		CoreFile: filepath.Join(dir, CoreRuntimeFile),
		NodeFile: filepath.Join(dir, NodeRuntimeFile),
	}

	if err := os.WriteFile(staged.CoreFile, core, 0644); err != nil {
		return nil, &StageError{Dir: dir, Err: err}
	}
	if err := os.WriteFile(staged.NodeFile, node, 0644); err != nil {
		return nil, &StageError{Dir: dir, Err: err}
	}

	manifest := DefaultManifest(dir)
	manifest.ABI = wasmapi.ABIVersion
	manifest.Version = embeddedVersion(assets)
	if err := manifest.Write(dir); err != nil {
		return nil, &StageError{Dir: dir, Err: err}
	}

	logger.Debug("Staged embedded wasm runtime",
		zap.String("dir", staged.Dir),
		zap.Int("core_bytes", len(core)),
		zap.Int("node_bytes", len(node)),
		zap.String("version", manifest.Version),
	)

	return staged, nil
}

func embeddedVersion(assets fs.FS) string {
	data, err := fs.ReadFile(assets, VersionFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "unknown"
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
