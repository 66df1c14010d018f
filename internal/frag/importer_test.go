package frag

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
	"github.com/woxQAQ/ifc2frag/internal/bundle"
	"github.com/woxQAQ/ifc2frag/internal/config"
	"github.com/woxQAQ/ifc2frag/internal/wasm/wasmtest"
	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// minimalIFC is the smallest input the echo module accepts.
var minimalIFC = []byte("ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\nENDSEC;\nEND-ISO-10303-21;\n")

func writeBundle(t *testing.T, module []byte) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, bundle.NodeRuntimeFile), module, 0644); err != nil {
		t.Fatal(err)
	}
	return bundle.WithTrailingSeparator(dir)
}

func newImporter(t *testing.T) *Importer {
	t.Helper()
	ctx := context.Background()

	im, err := New(ctx, config.WasmConfig{MemoryPages: 16}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := im.Close(ctx); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return im
}

func TestImporterDefaults(t *testing.T) {
	im := newImporter(t)

	if im.DistanceThreshold() != config.DefaultThreshold {
		t.Errorf("Default threshold = %g, want %g", im.DistanceThreshold(), config.DefaultThreshold)
	}

	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: "/opt/web-ifc/"})
	im.SetDistanceThreshold(42)

	if im.Wasm().Path != "/opt/web-ifc/" || !im.Wasm().Absolute {
		t.Errorf("Wasm location not stored: %+v", im.Wasm())
	}
	if im.DistanceThreshold() != 42 {
		t.Errorf("Threshold not stored: %g", im.DistanceThreshold())
	}
}

func TestImporterProcess(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.EchoModule())})
	im.SetDistanceThreshold(100)

	var fractions []float64
	var labels []string
	out, err := im.Process(context.Background(), fragments.ProcessRequest{
		Bytes: minimalIFC,
		ProgressCallback: func(p float64, info *fragments.ProgressInfo) {
			fractions = append(fractions, p)
			if info != nil {
				labels = append(labels, info.Process+"/"+info.State)
			}
		},
	})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if string(out) != string(minimalIFC) {
		t.Errorf("Process() output = %q, want echo of input", out)
	}

	if len(fractions) != 2 || fractions[len(fractions)-1] != 1 {
		t.Errorf("Progress fractions = %v, want two reports ending at 1", fractions)
	}

	want := wasmtest.ProcessLabel + "/" + wasmtest.StateLabel
	if len(labels) != 1 || labels[0] != want {
		t.Errorf("Progress labels = %v, want [%s]", labels, want)
	}
}

func TestImporterProcessTwice(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.EchoModule())})

	for i := 0; i < 2; i++ {
		out, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC, Raw: i == 1})
		if err != nil {
			t.Fatalf("Process() #%d failed: %v", i, err)
		}
		if len(out) != len(minimalIFC) {
			t.Errorf("Process() #%d returned %d bytes, want %d", i, len(out), len(minimalIFC))
		}
	}
}

func TestImporterRelativeLocation(t *testing.T) {
	im := newImporter(t)

	dir := writeBundle(t, wasmtest.EchoModule())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(wd, dir)
	if err != nil {
		t.Skipf("temp dir not relative to working dir: %v", err)
	}

	im.SetWasm(fragments.WasmLocation{Absolute: false, Path: rel})
	if _, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
}

func TestImporterProcessRejected(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.FailingModule())})

	_, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC})
	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessError, got %T (%v)", err, err)
	}
	if procErr.InputBytes != len(minimalIFC) {
		t.Errorf("InputBytes = %d, want %d", procErr.InputBytes, len(minimalIFC))
	}
}

func TestImporterMissingExports(t *testing.T) {
	im := newImporter(t)

	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, empty)})

	_, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC})
	var missing *MissingExportError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExportError, got %T (%v)", err, err)
	}
	if missing.Export != wasmapi.ExportMemory {
		t.Errorf("Export = %s, want %s", missing.Export, wasmapi.ExportMemory)
	}
}

func TestImporterNoMemoryExport(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.NoMemoryModule())})

	_, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC})
	var missing *MissingExportError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExportError, got %T (%v)", err, err)
	}
	if missing.Export != wasmapi.ExportMemory {
		t.Errorf("Export = %s, want %s", missing.Export, wasmapi.ExportMemory)
	}
}

func TestImporterModuleWithoutABI(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.UnresolvedImportModule())})

	// The env import is never resolved: the export check runs first.
	_, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC})
	var missing *MissingExportError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExportError, got %T (%v)", err, err)
	}
	if missing.Export != wasmapi.ExportMalloc {
		t.Errorf("Export = %s, want %s", missing.Export, wasmapi.ExportMalloc)
	}
	if !strings.Contains(err.Error(), "guest ABI v1") {
		t.Errorf("error should name the required ABI: %v", err)
	}
}

func TestImporterForwardsParameters(t *testing.T) {
	tests := []struct {
		name      string
		raw       bool
		threshold float64
	}{
		{"compressed", false, config.DefaultThreshold},
		{"raw", true, 150.5},
		{"small threshold", true, 0.25},
	}

	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.ParamsModule())})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im.SetDistanceThreshold(tt.threshold)

			out, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC, Raw: tt.raw})
			if err != nil {
				t.Fatalf("Process() failed: %v", err)
			}
			if len(out) != 16 {
				t.Fatalf("Process() returned %d bytes, want 16", len(out))
			}

			var wantRaw uint32
			if tt.raw {
				wantRaw = 1
			}
			if got := binary.LittleEndian.Uint32(out[0:4]); got != wantRaw {
				t.Errorf("guest saw raw = %d, want %d", got, wantRaw)
			}
			if got := math.Float64frombits(binary.LittleEndian.Uint64(out[8:16])); got != tt.threshold {
				t.Errorf("guest saw threshold = %g, want %g", got, tt.threshold)
			}
		})
	}
}

func TestImporterMissingDir(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: filepath.Join(t.TempDir(), "missing") + "/"})

	_, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC})
	var notFound *bundle.DirNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected DirNotFoundError, got %T (%v)", err, err)
	}
}

func TestImporterUnsetLocation(t *testing.T) {
	im := newImporter(t)

	if _, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC}); err == nil {
		t.Fatal("Process() should fail without a wasm location")
	}
}

func TestImporterNonFiniteThreshold(t *testing.T) {
	im := newImporter(t)
	im.SetWasm(fragments.WasmLocation{Absolute: true, Path: writeBundle(t, wasmtest.EchoModule())})
	im.SetDistanceThreshold(math.Inf(1))

	if _, err := im.Process(context.Background(), fragments.ProcessRequest{Bytes: minimalIFC}); err == nil {
		t.Fatal("Process() should fail for an infinite threshold")
	}
}
