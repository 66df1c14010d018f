package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/woxQAQ/ifc2frag/internal/assets"
	"github.com/woxQAQ/ifc2frag/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	app := cli.NewApp("convert-inline", cli.Inline)
	app.Version = version + " (" + commit + ", " + date + ")"
	app.Assets = assets.FS()

	code := app.Run(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}
