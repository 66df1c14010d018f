// Package console renders the converter's user-facing output.
package console

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

var (
	labelColor   = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

// Printer writes status lines to out and errors to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
}

// NewPrinter creates a printer.
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// Out returns the status writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Field prints an aligned "label value" line, e.g. "Threshold:  250".
func (p *Printer) Field(label, value string) {
	labelColor.Fprintf(p.out, "%-12s", label+":")
	fmt.Fprintln(p.out, value)
}

// Success prints a success line.
func (p *Printer) Success(format string, a ...interface{}) {
	successColor.Fprintf(p.out, format+"\n", a...)
}

// Error prints a line to the error writer.
func (p *Printer) Error(format string, a ...interface{}) {
	errorColor.Fprintf(p.errOut, format+"\n", a...)
}

// Progress renders conversion progress on a single overwritten line.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	spin    *spinner.Spinner
	started bool
	last    string
}

// NewProgress creates a progress line on out. Terminals get a spinner.
func NewProgress(out io.Writer) *Progress {
	p := &Progress{out: out}
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		p.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(f))
	}
	return p
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormatProgress renders one progress update without the leading carriage return.
func FormatProgress(fraction float64, info *fragments.ProgressInfo) string {
	pct := int(math.Round(fraction * 100))
	if info != nil && info.Process != "" {
		return fmt.Sprintf("[%d%%] %s %s     ", pct, info.Process, info.State)
	}
	return fmt.Sprintf("[%d%%]", pct)
}

// Update is a fragments.ProgressCallback.
func (p *Progress) Update(fraction float64, info *fragments.ProgressInfo) {
	line := FormatProgress(fraction, info)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = line
	if p.spin != nil {
		p.spin.Lock()
		p.spin.Suffix = " " + strings.TrimRight(line, " ")
		p.spin.Unlock()
		if !p.started {
			p.spin.Start()
			p.started = true
		}
		return
	}

	p.started = true
	fmt.Fprint(p.out, "\r"+line)
}

// Callback returns Update as a fragments.ProgressCallback.
func (p *Progress) Callback() fragments.ProgressCallback {
	return p.Update
}

// Finish ends the progress line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spin != nil && p.started {
		p.spin.Stop()
		fmt.Fprint(p.out, "\r"+p.last)
	}
	fmt.Fprint(p.out, "\n")
}
