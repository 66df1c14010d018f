// Package convert drives one IFC to FRAG conversion.
package convert

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/woxQAQ/ifc2frag/internal/bundle"
	"github.com/woxQAQ/ifc2frag/internal/console"
	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// SerializerFactory constructs the serializer for one conversion.
type SerializerFactory func(ctx context.Context) (fragments.Serializer, error)

// Job describes a single conversion.
type Job struct {
	Input     string
	Output    string
	Raw       bool
	Threshold float64

	// WasmDir is the resolved runtime directory.
	WasmDir string
	// WasmSummary replaces the "WASM dir" header line when set.
	WasmSummary string
}

// Converter reads an IFC file, hands it to a serializer and writes the result.
type Converter struct {
	newSerializer SerializerFactory
	printer       *console.Printer
	logger        *zap.Logger
}

// NewConverter creates a converter.
func NewConverter(newSerializer SerializerFactory, printer *console.Printer, logger *zap.Logger) *Converter {
	return &Converter{
		newSerializer: newSerializer,
		printer:       printer,
		logger:        logger.With(zap.String("component", "converter")),
	}
}

// Run performs the conversion. Nothing is written when processing fails.
func (c *Converter) Run(ctx context.Context, job Job) error {
	data, err := os.ReadFile(job.Input)
	if err != nil {
		return &InputError{Path: job.Input, Err: err}
	}

	serializer, err := c.newSerializer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := serializer.Close(ctx); err != nil {
			c.logger.Warn("Failed to close serializer", zap.Error(err))
		}
	}()

	loc := fragments.WasmLocation{Absolute: true, Path: bundle.WithTrailingSeparator(job.WasmDir)}
	serializer.SetWasm(loc)
	serializer.SetDistanceThreshold(job.Threshold)

	c.printer.Field("Converting", job.Input)
	if job.WasmSummary != "" {
		c.printer.Field("WASM", job.WasmSummary)
	} else {
		c.printer.Field("WASM dir", loc.Path)
	}
	c.printer.Field("Threshold", FormatThreshold(job.Threshold))

	c.logger.Debug("Starting conversion",
		zap.String("input", job.Input),
		zap.String("output", job.Output),
		zap.Int("input_bytes", len(data)),
		zap.Bool("raw", job.Raw),
	)

	progress := console.NewProgress(c.printer.Out())
	out, err := serializer.Process(ctx, fragments.ProcessRequest{
		Bytes:            data,
		Raw:              job.Raw,
		ProgressCallback: progress.Callback(),
	})
	if err != nil {
		progress.Finish()
		return fmt.Errorf("conversion of '%s' failed: %w", job.Input, err)
	}

	if err := os.WriteFile(job.Output, out, 0644); err != nil {
		progress.Finish()
		return &OutputError{Path: job.Output, Err: err}
	}
	progress.Finish()

	c.printer.Success("Wrote: %s", job.Output)

	c.logger.Debug("Conversion complete",
		zap.String("output", job.Output),
		zap.Int("output_bytes", len(out)),
	)

	return nil
}

// FormatThreshold renders a threshold the way it is echoed back to users:
// plain decimals for 1e-6 <= |t| < 1e21, exponent form outside that range.
func FormatThreshold(t float64) string {
	if a := math.Abs(t); t == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return strings.Replace(strconv.FormatFloat(t, 'g', -1, 64), "e-0", "e-", 1)
}
