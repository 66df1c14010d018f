package fragments

// Shared types for the fragment serializer contract.
// The converter depends on these; the serializer implementation lives elsewhere.

import "context"

// WasmLocation tells a serializer where its runtime module lives.
type WasmLocation struct {
	// Absolute reports whether Path is absolute or relative to the working directory.
	Absolute bool `json:"absolute" yaml:"absolute"`
	// Path is a directory, normalised to end with a path separator.
	Path string `json:"path" yaml:"path"`
}

// ProgressInfo names the step a serializer is working on.
type ProgressInfo struct {
	Process string `json:"process"`
	State   string `json:"state,omitempty"`
}

// ProgressCallback receives a fraction in [0,1] and optional step info.
type ProgressCallback func(progress float64, info *ProgressInfo)

// ProcessRequest is the input to a single conversion.
type ProcessRequest struct {
	Bytes            []byte
	Raw              bool
	ProgressCallback ProgressCallback
}

// Serializer converts IFC bytes into FRAG bytes.
//
// SetWasm and SetDistanceThreshold are called once before Process.
type Serializer interface {
	SetWasm(loc WasmLocation)
	SetDistanceThreshold(threshold float64)
	Process(ctx context.Context, req ProcessRequest) ([]byte, error)
	Close(ctx context.Context) error
}

// Report calls cb when it is non-nil.
func (cb ProgressCallback) Report(progress float64, info *ProgressInfo) {
	if cb != nil {
		cb(progress, info)
	}
}
