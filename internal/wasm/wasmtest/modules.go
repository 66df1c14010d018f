// Package wasmtest provides tiny hand-assembled runtime modules implementing
// the guest ABI, for tests that need a real wazero round trip.
package wasmtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Offsets of the progress labels placed in the echo module's data segments.
const (
	ProcessLabel = "geometry"
	StateLabel   = "done"

	processLabelAddr = 16
	stateLabelAddr   = 32

	// mallocAddr is the fixed address returned by the test allocator.
	mallocAddr = 1024
)

// EchoModule returns a module whose frag_process returns its input unchanged.
// Before returning it reports progress 0.5 with ProcessLabel/StateLabel and
// then progress 1 without step info.
func EchoModule() []byte {
	var code bytes.Buffer
	code.Write(f64Const(0.5))
	code.Write(i32Const(processLabelAddr))
	code.Write(i32Const(int32(len(ProcessLabel))))
	code.Write(i32Const(stateLabelAddr))
	code.Write(i32Const(int32(len(StateLabel))))
	code.Write([]byte{0x10, 0x00}) // call $progress
	code.Write(f64Const(1))
	code.Write(i32Const(0))
	code.Write(i32Const(0))
	code.Write(i32Const(0))
	code.Write(i32Const(0))
	code.Write([]byte{0x10, 0x00})
	code.Write([]byte{
		0x20, 0x00, // local.get $ptr
		0xad,       // i64.extend_i32_u
		0x42, 0x20, // i64.const 32
		0x86,       // i64.shl
		0x20, 0x01, // local.get $len
		0xad, // i64.extend_i32_u
		0x84, // i64.or
	})

	return assemble(code.Bytes(), [][]byte{
		dataSegment(processLabelAddr, ProcessLabel),
		dataSegment(stateLabelAddr, StateLabel),
	})
}

// FailingModule returns a module whose frag_process always reports failure.
func FailingModule() []byte {
	return assemble([]byte{0x42, 0x00}, nil) // i64.const 0
}

// ParamsOffset is where ParamsModule stores its output.
const ParamsOffset = 512

// ParamsModule returns a module whose frag_process ignores its input and
// returns 16 bytes: the raw flag as a little-endian uint32 at offset 0 and the
// threshold as a little-endian float64 at offset 8.
func ParamsModule() []byte {
	var code bytes.Buffer
	code.Write(i32Const(ParamsOffset))
	code.Write([]byte{
		0x20, 0x02,       // local.get $raw
		0x36, 0x02, 0x00, // i32.store
	})
	code.Write(i32Const(ParamsOffset + 8))
	code.Write([]byte{
		0x20, 0x03,       // local.get $threshold
		0x39, 0x03, 0x00, // f64.store
	})
	code.Write(i32Const(ParamsOffset))
	code.Write([]byte{
		0xad,       // i64.extend_i32_u
		0x42, 0x20, // i64.const 32
		0x86,       // i64.shl
		0x42, 0x10, // i64.const 16
		0x84, // i64.or
	})
	return assemble(code.Bytes(), nil)
}

// NoMemoryModule returns a module exporting malloc and frag_process but no
// linear memory.
func NoMemoryModule() []byte {
	return build(layout{processCode: []byte{0x42, 0x00}})
}

// UnresolvedImportModule returns a module that exports only memory and
// imports env.abort, the shape of a runtime built without the guest ABI.
func UnresolvedImportModule() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	out.Write(section(0x01, vec([]byte{0x60, 0x00, 0x00}))) // () -> ()
	out.Write(section(0x02, vec(
		concat(name("env"), name("abort"), []byte{0x00, 0x00}),
	)))
	out.Write(section(0x05, vec([]byte{0x00, 0x01})))
	out.Write(section(0x07, vec(
		concat(name("memory"), []byte{0x02, 0x00}),
	)))
	return out.Bytes()
}

type layout struct {
	processCode []byte
	data        [][]byte
	memory      bool
}

// assemble builds a module importing host.progress and exporting memory,
// malloc, frag_process and free, with processCode as the body of frag_process.
func assemble(processCode []byte, data [][]byte) []byte {
	return build(layout{processCode: processCode, data: data, memory: true})
}

func build(l layout) []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	// type section
	out.Write(section(0x01, vec(
		[]byte{0x60, 0x01, 0x7f, 0x01, 0x7f},                   // (i32) -> i32
		[]byte{0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7c, 0x01, 0x7e}, // (i32 i32 i32 f64) -> i64
		[]byte{0x60, 0x01, 0x7f, 0x00},                         // (i32) -> ()
		[]byte{0x60, 0x05, 0x7c, 0x7f, 0x7f, 0x7f, 0x7f, 0x00}, // (f64 i32 i32 i32 i32) -> ()
	)))

	// import section: host.progress, type 3
	out.Write(section(0x02, vec(
		concat(name("host"), name("progress"), []byte{0x00, 0x03}),
	)))

	// function section: malloc, frag_process, free
	out.Write(section(0x03, vec([]byte{0x00}, []byte{0x01}, []byte{0x02})))

	// export section; function index 0 is the import
	exports := [][]byte{
		concat(name("malloc"), []byte{0x00, 0x01}),
		concat(name("frag_process"), []byte{0x00, 0x02}),
		concat(name("free"), []byte{0x00, 0x03}),
	}
	if l.memory {
		// memory section: one page
		out.Write(section(0x05, vec([]byte{0x00, 0x01})))
		exports = append([][]byte{concat(name("memory"), []byte{0x02, 0x00})}, exports...)
	}
	out.Write(section(0x07, vec(exports...)))

	// code section
	out.Write(section(0x0a, vec(
		body(i32Const(mallocAddr)),
		body(l.processCode),
		body(nil),
	)))

	if len(l.data) > 0 {
		out.Write(section(0x0b, vec(l.data...)))
	}

	return out.Bytes()
}

func dataSegment(addr int32, s string) []byte {
	return concat([]byte{0x00}, i32Const(addr), []byte{0x0b}, name(s))
}

func body(code []byte) []byte {
	fn := concat([]byte{0x00}, code, []byte{0x0b}) // no locals, code, end
	return concat(uleb(uint32(len(fn))), fn)
}

func section(id byte, content []byte) []byte {
	return concat([]byte{id}, uleb(uint32(len(content))), content)
}

func vec(items ...[]byte) []byte {
	return concat(uleb(uint32(len(items))), concat(items...))
}

func name(s string) []byte {
	return concat(uleb(uint32(len(s))), []byte(s))
}

func concat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func uleb(v uint32) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func i32Const(v int32) []byte {
	b := []byte{0x41}
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func f64Const(v float64) []byte {
	b := make([]byte, 9)
	b[0] = 0x44
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v))
	return b
}
