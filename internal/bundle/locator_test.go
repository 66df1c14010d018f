package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLocator_Explicit(t *testing.T) {
	base := t.TempDir()
	wasmDir := mkdir(t, base, "custom")

	dir, err := NewLocator(t.TempDir(), zap.NewNop()).Resolve(wasmDir)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if dir != wasmDir+string(filepath.Separator) {
		t.Errorf("expected %s, got %s", wasmDir+string(filepath.Separator), dir)
	}
}

func TestLocator_ExplicitMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	// A sibling web-ifc must not be used when --wasm was given.
	base := t.TempDir()
	mkdir(t, base, "web-ifc")

	_, err := NewLocator(base, zap.NewNop()).Resolve(missing)
	notFound, ok := err.(*DirNotFoundError)
	if !ok {
		t.Fatalf("expected DirNotFoundError, got %T", err)
	}

	if notFound.Path != missing {
		t.Errorf("expected path %s, got %s", missing, notFound.Path)
	}
}

func TestLocator_ExplicitRelative(t *testing.T) {
	_, err := NewLocator(t.TempDir(), zap.NewNop()).Resolve("testdata")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
}

func TestLocator_PrefersNodeModules(t *testing.T) {
	base := t.TempDir()
	nodeModules := mkdir(t, base, "node_modules", "web-ifc")
	mkdir(t, base, "web-ifc")

	dir, err := NewLocator(base, zap.NewNop()).Resolve("")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if dir != nodeModules+string(filepath.Separator) {
		t.Errorf("expected %s, got %s", nodeModules, dir)
	}
}

func TestLocator_SiblingDir(t *testing.T) {
	base := t.TempDir()
	sibling := mkdir(t, base, "web-ifc")

	dir, err := NewLocator(base, zap.NewNop()).Resolve("")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if dir != sibling+string(filepath.Separator) {
		t.Errorf("expected %s, got %s", sibling, dir)
	}
}

func TestLocator_NoneFound(t *testing.T) {
	base := t.TempDir()

	_, err := NewLocator(base, zap.NewNop()).Resolve("")
	notFound, ok := err.(*DirNotFoundError)
	if !ok {
		t.Fatalf("expected DirNotFoundError, got %T", err)
	}

	// Falls back to the first candidate.
	want := filepath.Join(base, "node_modules", "web-ifc")
	if notFound.Path != want {
		t.Errorf("expected path %s, got %s", want, notFound.Path)
	}

	if !strings.HasPrefix(notFound.Error(), "web-ifc wasm directory not found: ") {
		t.Errorf("unexpected message: %s", notFound.Error())
	}
}

func TestExecutableDir(t *testing.T) {
	dir, err := ExecutableDir()
	if err != nil {
		t.Fatalf("ExecutableDir() failed: %v", err)
	}

	if !filepath.IsAbs(dir) {
		t.Errorf("expected absolute dir, got %s", dir)
	}
}
