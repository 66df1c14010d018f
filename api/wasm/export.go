// Package wasm describes the contract between the converter and the IFC
// runtime module it executes.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a 32-bit
// linear memory model. The processing result is an i64 packing the output
// pointer in the high 32 bits and the output length in the low 32 bits.
package wasm

// ABIVersion is the guest ABI revision implemented by the host.
const ABIVersion = 1

// Exported functions a runtime module must provide.
//
//	malloc(size i32) -> i32
//	free(ptr i32)
//	frag_process(ptr i32, len i32, raw i32, threshold f64) -> i64
//
// frag_process returns 0 when the module rejects the input.
const (
	ExportMemory     = "memory"
	ExportMalloc     = "malloc"
	ExportFree       = "free"
	ExportProcess    = "frag_process"
	ExportInitialize = "_initialize"
)

// PackResult builds the frag_process return value.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a frag_process return value into pointer and length.
func UnpackResult(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}
