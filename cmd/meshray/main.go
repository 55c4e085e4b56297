// meshray - triangle BVH inspection and picking for mesh files.
//
// Subcommands:
//
//	stats   Build the BVH of each model and print its shape
//	pick    Cast one world-space ray into a scene of models
//	render  Ray-cast a shaded preview to PNG
//	view    Interactive terminal preview; click to pick
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}
