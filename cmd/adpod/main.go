// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// adpod plays ad-pod manifests against a headless player and an
// interactive ad renderer.
//
// Usage:
//
//	adpod run [--config adpod.yaml] [--report out.json]
//	adpod validate <manifest.json>
//	adpod vast [--unlock] <file|url>
//
// Exit codes:
//   - 0: success
//   - 1: runtime or validation error
//   - 2: usage error
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ManuGH/adpod/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "adpod",
		Usage:          "Interactive ad-pod sequencer",
		Version:        version.String(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			vastCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(c.App.ErrWriter, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
	os.Exit(1)
}
