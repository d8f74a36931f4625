// Command stagedemo drives a stage display from a TOML scene file.
//
// It builds the scene's node tree, runs a number of frames while applying
// the scene's scripted mutations, and writes the composited output:
//
//	stagedemo run scene.toml --png out.png --svg out.svg --dump
//
// Without a scene file the built-in demo scene is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
