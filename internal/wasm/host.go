package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// maxProgressLabel bounds process/state strings read from guest memory.
const maxProgressLabel = 256

type progressKey struct{}

// WithProgress returns a context whose guest calls report progress to cb.
func WithProgress(ctx context.Context, cb fragments.ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// progressFrom returns the callback stored by WithProgress, or nil.
func progressFrom(ctx context.Context) fragments.ProgressCallback {
	cb, _ := ctx.Value(progressKey{}).(fragments.ProgressCallback)
	return cb
}

// HostFunctionsImpl implements host functions for Wasm modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// logMessage is called by Wasm modules to log messages.
// Signature: log_message(level, ptr, length)
func (h *HostFunctionsImpl) logMessage(ctx context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	switch level {
	case wasmapi.LogLevelDebug:
		h.logger.Debug(string(msg))
	case wasmapi.LogLevelInfo:
		h.logger.Info(string(msg))
	case wasmapi.LogLevelWarn:
		h.logger.Warn(string(msg))
	case wasmapi.LogLevelError:
		h.logger.Error(string(msg))
	default:
		h.logger.Info(string(msg))
	}
}

// progress is called by Wasm modules while a conversion runs.
// Signature: progress(fraction, proc_ptr, proc_len, state_ptr, state_len)
// A zero proc_len reports a bare fraction without step info.
func (h *HostFunctionsImpl) progress(ctx context.Context, mod api.Module, fraction float64, procPtr, procLen, statePtr, stateLen uint32) {
	cb := progressFrom(ctx)
	if cb == nil {
		return
	}

	if procLen == 0 {
		cb(fraction, nil)
		return
	}

	info := &fragments.ProgressInfo{
		Process: h.readLabel(mod, procPtr, procLen),
	}
	if stateLen > 0 {
		info.State = h.readLabel(mod, statePtr, stateLen)
	}
	cb(fraction, info)
}

func (h *HostFunctionsImpl) readLabel(mod api.Module, ptr, length uint32) string {
	if length > maxProgressLabel {
		length = maxProgressLabel
	}
	buf, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Warn("Failed to read progress label from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return ""
	}
	return string(buf)
}
