package cli

import (
	"fmt"
	"io"
	"strings"

	wasmapi "github.com/woxQAQ/ifc2frag/api/wasm"
)

// Variant selects where the runtime modules come from.
type Variant int

const (
	// Standard searches for a web-ifc directory on disk.
	Standard Variant = iota
	// Inline stages runtimes embedded in the binary.
	Inline
)

func (v Variant) String() string {
	if v == Inline {
		return "inline"
	}
	return "standard"
}

func usageText(name string, v Variant) string {
	lines := []string{
		"Usage:",
		fmt.Sprintf("  %s <input.ifc> [output.frag]", name),
		"",
		"Options:",
		"  --raw              Output uncompressed FRAG (defaults to compressed)",
	}
	if v == Standard {
		lines = append(lines,
			"  --wasm <dir>       Path to web-ifc wasm directory (defaults to node_modules/web-ifc",
			"                     or web-ifc next to the executable)",
		)
	}
	lines = append(lines,
		"  --threshold N      Distance threshold in meters to filter distant objects (default 1e10, disabled)",
		"  --config <file>    Configuration file (yaml, toml or json)",
		"  --log-level <lvl>  Log level: debug, info, warn, error (default warn)",
		"  -h, --help         Show this help",
	)
	lines = append(lines, "", "Notes:")
	if v == Inline {
		lines = append(lines, "  The web-ifc wasm binary is inlined; --wasm flag is unnecessary.")
	}
	lines = append(lines,
		fmt.Sprintf("  The wasm runtime must implement guest ABI v%d: export memory, malloc, free", wasmapi.ABIVersion),
		"  and frag_process, importing only host.progress, host.log_message and WASI.",
		"  Stock Emscripten builds of web-ifc do not.",
	)
	return strings.Join(lines, "\n") + "\n"
}

func printUsage(w io.Writer, name string, v Variant) {
	fmt.Fprint(w, usageText(name, v))
}
