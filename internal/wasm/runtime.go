package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Runtime manages the wazero runtime lifecycle.
// One Runtime serves every module loaded during a conversion.
type Runtime struct {
	// wazero runtime
	runtime wazero.Runtime

	// Persistent compilation cache, nil when CacheDir is empty.
	cache wazero.CompilationCache

	// Compiled module cache (key: module name/path -> value: compiled module)
	modules sync.Map // map[string]*CompiledModule

	// Active module instances (for cleanup on shutdown)
	// key: instance ID -> value: api.Module
	instances sync.Map

	config *RuntimeConfig
	logger *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit for Wasm modules (in pages, 64KB each).
	// Zero leaves wazero's default of 65536 pages.
	MemoryPages uint32

	// Enable debug logging for Wasm execution
	DebugEnabled bool

	// Compilation cache directory (for persistent caching).
	// If empty, uses in-memory caching only.
	CacheDir string
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name      string
	Source    string // File path or identifier
	SizeBytes int64

	CompiledAt int64
}

// NewRuntime creates and initializes a new wazero runtime with WASI preview1
// available to guests.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	var cache wazero.CompilationCache
	if config.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache '%s': %w", config.CacheDir, err)
		}
		cache = c
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	runtime := &Runtime{
		runtime: r,
		cache:   cache,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	runtime.logger.Debug("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  32768, // 2GB
		DebugEnabled: false,
		CacheDir:     "",
	}
}

// Close gracefully shuts down the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Debug("Shutting down Wasm runtime")

		r.instances.Range(func(key, value interface{}) bool {
			if inst, ok := value.(interface{ Close(context.Context) error }); ok {
				if closeErr := inst.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			return true
		})

		// Closes compiled modules too.
		err = r.runtime.Close(ctx)

		if r.cache != nil {
			if cacheErr := r.cache.Close(ctx); cacheErr != nil && err == nil {
				err = cacheErr
			}
		}

		close(r.closed)
	})

	return err
}

// GetCompiledModule retrieves a compiled module from cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// GetInstance retrieves an active instance.
func (r *Runtime) GetInstance(instanceID string) (interface{}, bool) {
	return r.instances.Load(instanceID)
}

// StoreInstance stores an active instance.
func (r *Runtime) StoreInstance(instanceID string, instance interface{}) {
	r.instances.Store(instanceID, instance)
}

// DeleteInstance removes an instance from tracking.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// Config returns the configuration the runtime was created with.
func (r *Runtime) Config() *RuntimeConfig {
	return r.config
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
