// Package assets embeds the web-ifc runtime modules for the inline build.
//
// The wasm directory is filled by `make wasm`; a checkout without the
// binaries still compiles and fails at staging time.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed all:wasm
var embedded embed.FS

// FS returns the embedded runtime files rooted at the wasm directory.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "wasm")
	if err != nil {
		panic(err)
	}
	return sub
}
