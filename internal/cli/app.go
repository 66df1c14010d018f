// Package cli implements the convert and convert-inline command lines.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/ifc2frag/internal/bundle"
	"github.com/woxQAQ/ifc2frag/internal/config"
	"github.com/woxQAQ/ifc2frag/internal/console"
	"github.com/woxQAQ/ifc2frag/internal/convert"
	"github.com/woxQAQ/ifc2frag/internal/frag"
	"github.com/woxQAQ/ifc2frag/pkg/fragments"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitWasmNotFound = 2
)

// SerializerFactory builds the serializer for a run from its configuration.
type SerializerFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (fragments.Serializer, error)

// DefaultSerializer runs the runtime module under wazero.
func DefaultSerializer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (fragments.Serializer, error) {
	return frag.New(ctx, cfg.Wasm, logger)
}

// App is one of the two converter binaries.
type App struct {
	Name    string
	Variant Variant
	Version string

	Stdout io.Writer
	Stderr io.Writer

	NewSerializer SerializerFactory

	// BaseDir anchors the runtime directory search; empty means the
	// executable's directory. Standard variant only.
	BaseDir string

	// Assets holds the embedded runtimes and TempDir the parent of the staging
	// directory (OS default when empty). Inline variant only.
	Assets  fs.FS
	TempDir string
}

// NewApp creates an app writing to the process's stdout and stderr.
func NewApp(name string, variant Variant) *App {
	return &App{
		Name:          name,
		Variant:       variant,
		Version:       "dev",
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		NewSerializer: DefaultSerializer,
	}
}

type flagValues struct {
	configPath string
}

// Run executes the command line and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	cmd := a.newCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return a.exitCode(err)
}

func (a *App) newCommand() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:           a.Name + " <input.ifc> [output.frag]",
		Short:         "Convert an IFC model into a FRAG file",
		Version:       a.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &UsageError{}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args, fv)
		},
	}

	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)

	flags := cmd.Flags()
	flags.Bool("raw", false, "Output uncompressed FRAG")
	flags.Float64("threshold", config.DefaultThreshold, "Distance threshold in meters")
	if a.Variant == Standard {
		flags.String("wasm", "", "Path to web-ifc wasm directory")
	}
	flags.StringVar(&fv.configPath, "config", "", "Configuration file")
	flags.String("log-level", "warn", "Log level")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		printUsage(c.OutOrStdout(), a.Name, a.Variant)
		return nil
	})
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printUsage(c.OutOrStdout(), a.Name, a.Variant)
	})

	return cmd
}

func (a *App) run(cmd *cobra.Command, args []string, fv flagValues) error {
	ctx := cmd.Context()

	cfg, err := config.Load(fv.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel, a.Stderr)
	if err != nil {
		return &UsageError{Message: "invalid log level", Err: err}
	}
	defer logger.Sync()

	wasmDir := ""
	if a.Variant == Standard {
		wasmDir = cfg.WasmDir
	}

	opts, extra, err := resolveOptions(args, cfg.Raw, cfg.Threshold, wasmDir)
	if err != nil {
		return err
	}
	if len(extra) > 0 {
		logger.Warn("Ignoring extra arguments", zap.Strings("args", extra))
	}

	logger.Debug("Resolved options",
		zap.String("variant", a.Variant.String()),
		zap.String("input", opts.Input),
		zap.String("output", opts.Output),
		zap.Bool("raw", opts.Raw),
		zap.Float64("threshold", opts.Threshold),
	)

	job := convert.Job{
		Input:     opts.Input,
		Output:    opts.Output,
		Raw:       opts.Raw,
		Threshold: opts.Threshold,
	}

	switch a.Variant {
	case Inline:
		staged, err := bundle.Stage(a.Assets, a.TempDir, logger)
		if err != nil {
			return err
		}
		job.WasmDir = staged.Dir
		job.WasmSummary = fmt.Sprintf("inlined -> %s, %s", staged.CoreFile, staged.NodeFile)
	default:
		baseDir := a.BaseDir
		if baseDir == "" {
			if baseDir, err = bundle.ExecutableDir(); err != nil {
				return fmt.Errorf("failed to locate executable: %w", err)
			}
		}
		dir, err := bundle.NewLocator(baseDir, logger).Resolve(opts.WasmDir)
		if err != nil {
			return err
		}
		job.WasmDir = dir
	}

	newSerializer := func(ctx context.Context) (fragments.Serializer, error) {
		return a.NewSerializer(ctx, cfg, logger)
	}
	printer := console.NewPrinter(a.Stdout, a.Stderr)

	return convert.NewConverter(newSerializer, printer, logger).Run(ctx, job)
}

// exitCode reports err and maps it to an exit code.
func (a *App) exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	printer := console.NewPrinter(a.Stdout, a.Stderr)

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		if msg := usageErr.Error(); msg != "" {
			printer.Error("%s", msg)
		}
		printUsage(a.Stdout, a.Name, a.Variant)
		return ExitFailure
	}

	var notFound *bundle.DirNotFoundError
	if errors.As(err, &notFound) && a.Variant == Standard {
		printer.Error("%s", notFound.Error())
		return ExitWasmNotFound
	}

	printer.Error("%v", err)
	return ExitFailure
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if lvl == zapcore.DebugLevel {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(w)),
			lvl,
		)
		return zap.New(core, zap.Development(), zap.AddCaller()), nil
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		lvl,
	)
	return zap.New(core), nil
}
