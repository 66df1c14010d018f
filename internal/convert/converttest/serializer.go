// Package converttest provides a recording serializer for tests.
package converttest

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// ErrNotIFC is returned for inputs that lack the STEP preamble.
var ErrNotIFC = errors.New("input is not an IFC STEP file")

// stepPreamble starts every IFC file in STEP physical file format.
var stepPreamble = []byte("ISO-10303-21;")

// Serializer records how it was configured and called. Process accepts any
// input starting with the STEP preamble and returns a fixed header followed by
// the input.
type Serializer struct {
	mu sync.Mutex

	Wasm      fragments.WasmLocation
	Threshold float64
	Requests  []fragments.ProcessRequest
	Closed    bool

	// Progress is replayed to the request's callback.
	Progress []float64
	// Err, when set, is returned from Process.
	Err error
}

var _ fragments.Serializer = (*Serializer)(nil)

// Header prefixes every output.
var Header = []byte("FRAG")

func (s *Serializer) SetWasm(loc fragments.WasmLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Wasm = loc
}

func (s *Serializer) SetDistanceThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Threshold = threshold
}

func (s *Serializer) Process(ctx context.Context, req fragments.ProcessRequest) ([]byte, error) {
	s.mu.Lock()
	s.Requests = append(s.Requests, req)
	progress := append([]float64(nil), s.Progress...)
	err := s.Err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(req.Bytes, stepPreamble) {
		return nil, ErrNotIFC
	}

	for _, p := range progress {
		req.ProgressCallback.Report(p, &fragments.ProgressInfo{Process: "geometries", State: "start"})
	}

	return append(append([]byte(nil), Header...), req.Bytes...), nil
}

func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// LastRequest returns the most recent Process request.
func (s *Serializer) LastRequest() (fragments.ProcessRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Requests) == 0 {
		return fragments.ProcessRequest{}, false
	}
	return s.Requests[len(s.Requests)-1], true
}

// Factory returns a factory handing out s.
func (s *Serializer) Factory() func(ctx context.Context) (fragments.Serializer, error) {
	return func(ctx context.Context) (fragments.Serializer, error) {
		return s, nil
	}
}

// MinimalIFC is the smallest input the test serializer accepts.
var MinimalIFC = []byte("ISO-10303-21;\nHEADER;\nFILE_DESCRIPTION((''),'2;1');\nENDSEC;\nDATA;\nENDSEC;\nEND-ISO-10303-21;\n")
