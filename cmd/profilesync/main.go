package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauern/profilesync/internal/cli"
	"github.com/klauern/profilesync/internal/config"
)

const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitInterrupt = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Run(ctx, os.Args)
	if err == nil {
		return exitOK
	}

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "Interrupted.")
		return exitInterrupt
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintln(os.Stderr, "Run `profilesync init` first.")
		return exitUsage
	case errors.Is(err, cli.ErrUsage):
		return exitUsage
	default:
		return exitError
	}
}
