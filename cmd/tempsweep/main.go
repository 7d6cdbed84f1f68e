// Package main is the entry point for the tempsweep CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tempsweep/internal/cli"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, version)
}
