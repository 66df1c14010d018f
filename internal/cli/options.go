package cli

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Options is one invocation's resolved input.
type Options struct {
	Input     string
	Output    string
	Raw       bool
	Threshold float64
	WasmDir   string
}

// UsageError reports a malformed invocation. The usage text is printed after
// the message.
type UsageError struct {
	Message string
	Err     error
}

func (e *UsageError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// resolveOptions builds Options from positional arguments and already-parsed
// flag values. Positionals beyond the second are returned as extra.
func resolveOptions(positionals []string, raw bool, threshold float64, wasmDir string) (*Options, []string, error) {
	if len(positionals) == 0 || positionals[0] == "" {
		return nil, nil, &UsageError{}
	}

	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, nil, &UsageError{Message: "Threshold must be a finite number"}
	}

	opts := &Options{
		Input:     positionals[0],
		Raw:       raw,
		Threshold: threshold,
		WasmDir:   wasmDir,
	}

	if len(positionals) > 1 && positionals[1] != "" {
		opts.Output = positionals[1]
	} else {
		opts.Output = DeriveOutput(opts.Input)
	}

	var extra []string
	if len(positionals) > 2 {
		extra = positionals[2:]
	}

	return opts, extra, nil
}

// DeriveOutput replaces the input's extension with .frag, keeping its
// directory. A leading dot does not start an extension.
func DeriveOutput(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	if ext == base {
		ext = ""
	}
	return filepath.Join(filepath.Dir(input), strings.TrimSuffix(base, ext)+".frag")
}
