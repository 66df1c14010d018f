package wasm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// wasmMagic is the preamble of every binary module.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// ModuleLoader handles loading and compiling Wasm modules.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource represents a source for Wasm bytecode.
type ModuleSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes() ([]byte, error)

	// Name returns a name/identifier for this module.
	Name() string
}

// FileModuleSource loads Wasm from a file.
type FileModuleSource struct {
	Path string
}

// Bytes reads the Wasm file.
func (f *FileModuleSource) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Name returns the cleaned file path as the module name.
func (f *FileModuleSource) Name() string {
	if abs, err := filepath.Abs(f.Path); err == nil {
		return abs
	}
	return filepath.Clean(f.Path)
}

// MemoryModuleSource loads Wasm from memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

// Bytes returns the Wasm bytecode.
func (m *MemoryModuleSource) Bytes() ([]byte, error) {
	return m.Data, nil
}

// Name returns the module name.
func (m *MemoryModuleSource) Name() string {
	return m.ModuleName
}

// ExportsFunction reports whether the module exports the named function.
func (c *CompiledModule) ExportsFunction(name string) bool {
	_, ok := c.Module.ExportedFunctions()[name]
	return ok
}

// ExportsMemory reports whether the module exports the named memory.
func (c *CompiledModule) ExportsMemory(name string) bool {
	_, ok := c.Module.ExportedMemories()[name]
	return ok
}

// LoadModule loads a Wasm module from a source.
// Compiles it if not already cached.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	name := source.Name()

	if cached, ok := l.runtime.GetCompiledModule(name); ok {
		l.logger.Debug("Module cache hit", zap.String("module", name))
		return cached, nil
	}

	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", name, err)
	}

	if !bytes.HasPrefix(wasmBytes, wasmMagic) {
		return nil, &CompilationError{
			ModuleName: name,
			Err:        fmt.Errorf("not a WebAssembly binary (%d bytes)", len(wasmBytes)),
		}
	}

	l.logger.Debug("Compiling Wasm module",
		zap.String("module", name),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	startTime := time.Now()

	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: name,
			Err:        err,
		}
	}

	compiledModule := &CompiledModule{
		Module:     compiled,
		Name:       name,
		Source:     name,
		SizeBytes:  int64(len(wasmBytes)),
		CompiledAt: time.Now().Unix(),
	}

	l.runtime.StoreCompiledModule(compiledModule)

	l.logger.Debug("Module compiled successfully",
		zap.String("module", name),
		zap.Duration("duration", time.Since(startTime)),
	)

	return compiledModule, nil
}

// LoadModuleFromFile is a convenience function for loading from a file path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Path: path})
}

// LoadModuleFromMemory loads from a byte slice.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}
