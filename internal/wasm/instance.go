package wasm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl

	hostOnce sync.Once
	hostErr  error
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	module  api.Module
	runtime *Runtime

	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module.
// The host import module is instantiated on first use.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	if err := m.ensureHostModule(ctx); err != nil {
		return nil, err
	}

	m.logger.Debug("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	// Emscripten reactors export _initialize; absent start functions are skipped.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions(wasmapi.ExportInitialize)

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	exports := cacheExportedFunctions(module)

	instance := &Instance{
		module:    module,
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   exports,
	}

	m.runtime.StoreInstance(instanceID, module)

	m.logger.Debug("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// Call invokes an exported function by name.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, &GuestCallError{ModuleName: i.Name, FunctionName: name, Err: err}
	}
	return results, nil
}

// HasExport reports whether the instance exports the named function.
func (i *Instance) HasExport(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// Memory returns a helper over the instance's linear memory.
func (i *Instance) Memory() *Memory {
	return NewMemory(i)
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

// cacheExportedFunctions caches references to the guest ABI functions.
func cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)

	for _, name := range []string{wasmapi.ExportMalloc, wasmapi.ExportFree, wasmapi.ExportProcess} {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}

	return exports
}

func (m *InstanceManager) ensureHostModule(ctx context.Context) error {
	m.hostOnce.Do(func() {
		// Another manager on the same runtime may have exported it already.
		if m.runtime.runtime.Module(wasmapi.HostModule) != nil {
			return
		}
		builder := m.runtime.runtime.NewHostModuleBuilder(wasmapi.HostModule)
		m.exportHostFunctions(builder)
		if _, err := builder.Instantiate(ctx); err != nil {
			m.hostErr = &HostFunctionError{FunctionName: wasmapi.HostModule, Err: err}
		}
	})
	return m.hostErr
}

// exportHostFunctions registers Go functions for import by Wasm modules.
func (m *InstanceManager) exportHostFunctions(builder wazero.HostModuleBuilder) {
	impl := m.hostFuncs

	builder.NewFunctionBuilder().
		WithFunc(impl.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export(wasmapi.ImportLogMessage)

	builder.NewFunctionBuilder().
		WithFunc(impl.progress).
		WithParameterNames("fraction", "proc_ptr", "proc_len", "state_ptr", "state_len").
		Export(wasmapi.ImportProgress)
}

var instanceSeq atomic.Uint64

// generateInstanceID returns a process-unique module name.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
