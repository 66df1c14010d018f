package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

var errNoMemory = errors.New("module exports no memory")

// Memory provides bounds-checked access to an instance's linear memory.
// Writes go through the guest's malloc export so the guest owns the buffers.
type Memory struct {
	inst *Instance
	mem  api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(inst *Instance) *Memory {
	return &Memory{inst: inst, mem: inst.module.Memory()}
}

// ReadString reads a null-terminated string from Wasm memory.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, bool) {
	if m.mem == nil {
		return "", false
	}
	buf, ok := m.mem.Read(ptr, maxLen)
	if !ok {
		return "", false
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}

	return string(buf[:end]), true
}

// ReadBytes copies length bytes at ptr out of Wasm memory.
// The copy stays valid after the instance is closed.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errNoMemory}
	}
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{
			Operation: "read",
			Address:   ptr,
			Length:    length,
			Err:       fmt.Errorf("out of range (memory size %d)", m.mem.Size()),
		}
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// WriteBytes allocates guest memory, copies data into it and returns the
// pointer and length. The caller releases the buffer with Free.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, uint32, error) {
	length := uint32(len(data))
	if m.mem == nil {
		return 0, 0, &MemoryAccessError{Operation: "write", Length: length, Err: errNoMemory}
	}

	results, err := m.inst.Call(ctx, wasmapi.ExportMalloc, uint64(length))
	if err != nil {
		return 0, 0, err
	}
	ptr := uint32(results[0])
	if ptr == 0 && length > 0 {
		return 0, 0, &MemoryAccessError{
			Operation: "malloc",
			Length:    length,
			Err:       fmt.Errorf("guest allocator returned null"),
		}
	}

	if !m.mem.Write(ptr, data) {
		return 0, 0, &MemoryAccessError{
			Operation: "write",
			Address:   ptr,
			Length:    length,
			Err:       fmt.Errorf("out of range (memory size %d)", m.mem.Size()),
		}
	}

	return ptr, length, nil
}

// Free releases a buffer obtained from WriteBytes or returned by the guest.
// Modules without a free export leak the buffer until the instance closes.
func (m *Memory) Free(ctx context.Context, ptr uint32) error {
	if ptr == 0 || !m.inst.HasExport(wasmapi.ExportFree) {
		return nil
	}
	_, err := m.inst.Call(ctx, wasmapi.ExportFree, uint64(ptr))
	return err
}
