// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/overlay"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/renderer/stub"
	"github.com/ManuGH/adpod/internal/runloop"
	"github.com/ManuGH/adpod/internal/vast"
)

func vastCommand() *cli.Command {
	return &cli.Command{
		Name:      "vast",
		Usage:     "Extract the interactive parameters from a VAST document",
		ArgsUsage: "<file|url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "unlock", Usage: "run the interactive ad and report whether credit was earned"},
			&cli.StringFlag{Name: "script", Value: string(stub.ScriptCredit), Usage: "renderer script used by --unlock"},
			&cli.DurationFlag{Name: "step", Value: 200 * time.Millisecond, Usage: "delay between scripted renderer events"},
			&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute, Usage: "give up on the interactive ad after this long"},
			&cli.BoolFlag{Name: "cancel-stream", Usage: "offer the cancel-stream exit"},
		},
		Action: vastAction,
	}
}

func loadVAST(ctx context.Context, src string) (*vast.Node, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client := &http.Client{Timeout: 15 * time.Second}
		return vast.Fetch(ctx, client, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return vast.Parse(f)
}

func vastAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("VAST file or URL required", 2)
	}
	src := c.Args().First()
	root, err := loadVAST(c.Context, src)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read VAST %s: %v", src, err), 1)
	}
	params, err := vast.InteractiveParameters(root)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, params, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, pretty.String())

	if !c.Bool("unlock") {
		return nil
	}
	script, err := stub.ParseScript(c.String("script"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	credit, err := unlock(c.Context, c, params, script)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if credit {
		fmt.Fprintln(c.App.Writer, "unlocked: credit earned")
	} else {
		fmt.Fprintln(c.App.Writer, "locked: no credit")
	}
	return nil
}

// unlock plays one interactive ad outside any break and reports the credit.
func unlock(parent context.Context, c *cli.Context, params json.RawMessage, script stub.Script) (bool, error) {
	ctx, cancel := context.WithTimeout(parent, c.Duration("timeout"))
	defer cancel()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := runloop.New()
	go loop.Run(loopCtx)

	done := make(chan bool, 1)
	r := stub.New(script, c.Duration("step"), clock.New())
	a := overlay.New(r, loop, overlay.Options{
		SupportsUserCancelStream: c.Bool("cancel-stream"),
	}, overlay.Callbacks{
		OnComplete: func(credit bool) { done <- credit },
		OnPopup: func(url string) {
			fmt.Fprintf(c.App.Writer, "popup: %s\n", url)
		},
	})

	ad := ads.NewAd("unlock", ads.AdSystemTruex, "", "", params, 30*time.Second)
	var startErr error
	if err := loop.Do(ctx, func() {
		startErr = a.Start(renderer.NamedSurface("unlock"), ad)
	}); err != nil {
		return false, err
	}
	if startErr != nil {
		return false, startErr
	}

	defer func() { _ = loop.Do(loopCtx, a.Destroy) }()
	select {
	case credit := <-done:
		return credit, nil
	case <-ctx.Done():
		return false, fmt.Errorf("interactive ad did not finish: %w", ctx.Err())
	}
}
