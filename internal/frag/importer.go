// Package frag runs the web-ifc runtime module under wazero to turn IFC bytes
// into fragment bytes.
package frag

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
	"github.com/woxQAQ/ifc2frag/internal/bundle"
	"github.com/woxQAQ/ifc2frag/internal/config"
	"github.com/woxQAQ/ifc2frag/internal/wasm"
	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// Importer is the wazero-backed fragments.Serializer.
type Importer struct {
	wasmLoc   fragments.WasmLocation
	threshold float64

	runtime     *wasm.Runtime
	loader      *wasm.ModuleLoader
	instanceMgr *wasm.InstanceManager
	debug       bool
	logger      *zap.Logger
}

var _ fragments.Serializer = (*Importer)(nil)

// NewImporter creates an importer executing modules on runtime.
func NewImporter(runtime *wasm.Runtime, logger *zap.Logger) *Importer {
	return &Importer{
		threshold:   config.DefaultThreshold,
		runtime:     runtime,
		loader:      wasm.NewModuleLoader(runtime, logger),
		instanceMgr: wasm.NewInstanceManager(runtime, wasm.NewHostFunctions(logger), logger),
		debug:       runtime.Config().DebugEnabled,
		logger:      logger.With(zap.String("component", "frag-importer")),
	}
}

// New creates a runtime from cfg and an importer that owns it.
func New(ctx context.Context, cfg config.WasmConfig, logger *zap.Logger) (*Importer, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages:  cfg.MemoryPages,
		DebugEnabled: cfg.Debug,
		CacheDir:     cfg.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}
	return NewImporter(runtime, logger), nil
}

// SetWasm sets the directory holding the runtime module.
func (im *Importer) SetWasm(loc fragments.WasmLocation) {
	im.wasmLoc = loc
}

// SetDistanceThreshold sets the distance beyond which geometry is dropped.
func (im *Importer) SetDistanceThreshold(threshold float64) {
	im.threshold = threshold
}

// Wasm returns the configured runtime location.
func (im *Importer) Wasm() fragments.WasmLocation {
	return im.wasmLoc
}

// DistanceThreshold returns the configured threshold.
func (im *Importer) DistanceThreshold() float64 {
	return im.threshold
}

// Process converts req.Bytes. Progress reported by the module is forwarded to
// req.ProgressCallback on the calling goroutine.
func (im *Importer) Process(ctx context.Context, req fragments.ProcessRequest) ([]byte, error) {
	if math.IsNaN(im.threshold) || math.IsInf(im.threshold, 0) {
		return nil, fmt.Errorf("distance threshold must be finite, got %v", im.threshold)
	}

	modulePath, err := im.runtimePath()
	if err != nil {
		return nil, err
	}

	compiled, err := im.loader.LoadModuleFromFile(ctx, modulePath)
	if err != nil {
		return nil, err
	}

	if err := checkExports(compiled); err != nil {
		return nil, err
	}

	instance, err := im.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: compiled.Name})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := instance.Close(ctx); err != nil {
			im.logger.Warn("Failed to close instance", zap.String("instance_id", instance.ID), zap.Error(err))
		}
	}()

	callCtx := wasm.WithProgress(ctx, req.ProgressCallback)
	mem := instance.Memory()

	inPtr, inLen, err := mem.WriteBytes(callCtx, req.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to copy input into runtime module: %w", err)
	}

	var raw uint64
	if req.Raw {
		raw = 1
	}

	start := time.Now()
	results, err := instance.Call(callCtx, wasmapi.ExportProcess,
		uint64(inPtr), uint64(inLen), raw, math.Float64bits(im.threshold))
	if err != nil {
		return nil, err
	}

	if im.debug {
		im.logger.Debug("frag_process returned",
			zap.Uint64("result", results[0]),
			zap.Duration("duration", time.Since(start)),
		)
	}

	if results[0] == 0 {
		im.free(callCtx, mem, inPtr)
		return nil, &ProcessError{Module: compiled.Name, InputBytes: len(req.Bytes)}
	}

	outPtr, outLen := wasmapi.UnpackResult(results[0])
	out, err := mem.ReadBytes(outPtr, outLen)
	if err != nil {
		return nil, err
	}

	im.free(callCtx, mem, inPtr)
	// Output may alias the input buffer.
	if outPtr != inPtr {
		im.free(callCtx, mem, outPtr)
	}

	im.logger.Debug("Conversion finished",
		zap.Int("input_bytes", len(req.Bytes)),
		zap.Int("output_bytes", len(out)),
		zap.Bool("raw", req.Raw),
		zap.Float64("threshold", im.threshold),
	)

	return out, nil
}

// Close releases the runtime and every module compiled on it.
func (im *Importer) Close(ctx context.Context) error {
	return im.runtime.Close(ctx)
}

// checkExports rejects modules lacking the guest ABI before instantiation, so
// a runtime built for another host fails here rather than on its imports.
func checkExports(compiled *wasm.CompiledModule) error {
	if !compiled.ExportsMemory(wasmapi.ExportMemory) {
		return &MissingExportError{Module: compiled.Name, Export: wasmapi.ExportMemory}
	}
	for _, name := range []string{wasmapi.ExportMalloc, wasmapi.ExportProcess} {
		if !compiled.ExportsFunction(name) {
			return &MissingExportError{Module: compiled.Name, Export: name}
		}
	}
	return nil
}

func (im *Importer) free(ctx context.Context, mem *wasm.Memory, ptr uint32) {
	if err := mem.Free(ctx, ptr); err != nil {
		im.logger.Warn("Failed to free guest buffer", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

func (im *Importer) runtimePath() (string, error) {
	dir := im.wasmLoc.Path
	if dir == "" {
		return "", fmt.Errorf("wasm location is not set")
	}
	if !im.wasmLoc.Absolute {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		dir = abs
	}

	b, err := bundle.Open(dir)
	if err != nil {
		return "", err
	}
	return b.RuntimePath()
}
