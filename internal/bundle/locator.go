package bundle

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Locator resolves the runtime directory for the standard build.
type Locator struct {
	// BaseDir is the directory holding the executable.
	BaseDir string
	logger  *zap.Logger
}

// NewLocator creates a locator searching relative to baseDir.
func NewLocator(baseDir string, logger *zap.Logger) *Locator {
	return &Locator{
		BaseDir: baseDir,
		logger:  logger.With(zap.String("component", "bundle-locator")),
	}
}

// ExecutableDir returns the directory of the running binary with symlinks
// resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Candidates returns the search order used when no directory is given.
func (l *Locator) Candidates() []string {
	return []string{
		filepath.Join(l.BaseDir, "node_modules", "web-ifc"),
		filepath.Join(l.BaseDir, "web-ifc"),
	}
}

// Resolve returns the absolute runtime directory with a trailing separator.
// An explicit directory wins; otherwise the first existing candidate is used,
// falling back to the first candidate. The result must exist.
func (l *Locator) Resolve(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		candidates := l.Candidates()
		dir = candidates[0]
		for _, c := range candidates {
			if isDir(c) {
				dir = c
				break
			}
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if !isDir(abs) {
		return "", &DirNotFoundError{Path: abs}
	}

	l.logger.Debug("Resolved wasm directory",
		zap.String("dir", abs),
		zap.Bool("explicit", explicit != ""),
	)

	return WithTrailingSeparator(abs), nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
