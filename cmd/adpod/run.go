// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/api"
	"github.com/ManuGH/adpod/internal/config"
	"github.com/ManuGH/adpod/internal/health"
	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/manifest"
	"github.com/ManuGH/adpod/internal/overlay"
	"github.com/ManuGH/adpod/internal/player"
	"github.com/ManuGH/adpod/internal/progress"
	"github.com/ManuGH/adpod/internal/renderer"
	"github.com/ManuGH/adpod/internal/renderer/stub"
	"github.com/ManuGH/adpod/internal/report"
	"github.com/ManuGH/adpod/internal/runloop"
	"github.com/ManuGH/adpod/internal/sequencer"
	"github.com/ManuGH/adpod/internal/version"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Play the configured content and ad breaks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML configuration file", EnvVars: []string{"ADPOD_CONFIG"}},
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "ad break manifest (overrides config)"},
			&cli.StringFlag{Name: "report", Usage: "write a JSON session report to this path"},
			&cli.BoolFlag{Name: "reset-progress", Usage: "forget breaks watched in earlier runs"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	log.Configure(log.Config{Level: "info", Output: c.App.ErrWriter, Version: version.Version})

	cfg, err := config.NewLoader(c.String("config"), version.Version).Load()
	if err != nil {
		return cli.Exit(fmt.Sprintf("configuration error: %v", err), 1)
	}
	if m := c.String("manifest"); m != "" {
		cfg.Manifest.Path = m
	}
	if cfg.Manifest.Path == "" {
		return cli.Exit("no manifest configured (use --manifest or manifest.path)", 2)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  c.App.ErrWriter,
		Service: cfg.LogService,
		Version: version.Version,
	})
	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("config", cfg.String()).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, started, err := runSession(ctx, cfg, c.Bool("reset-progress"), c.App.Writer)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if path := c.String("report"); path != "" {
		r := report.New(version.Version, cfg.Manifest.Path, started, time.Now(), snap)
		if err := report.Write(ctx, path, r); err != nil {
			return cli.Exit(fmt.Sprintf("write report: %v", err), 1)
		}
	}
	fmt.Fprintf(c.App.Writer, "session %s finished: %d breaks, %d interactive\n",
		snap.Session, len(snap.Outcomes), len(snap.Interactive))
	return nil
}

// runSession plays one session until the content ends or ctx is cancelled.
func runSession(ctx context.Context, cfg config.AppConfig, reset bool, out io.Writer) (player.Snapshot, time.Time, error) {
	logger := log.WithComponent("daemon")
	started := time.Now()

	breaks, err := manifest.LoadFile(cfg.Manifest.Path)
	if err != nil {
		return player.Snapshot{}, started, err
	}
	script, err := stub.ParseScript(cfg.Renderer.Script)
	if err != nil {
		return player.Snapshot{}, started, err
	}

	store, err := progress.Open(progress.Config{
		Backend: cfg.Progress.Backend,
		TTL:     cfg.Progress.TTL,
		Redis: progress.RedisConfig{
			Addr:     cfg.Progress.RedisAddr,
			Password: cfg.Progress.RedisPassword,
			DB:       cfg.Progress.RedisDB,
		},
		Dir: cfg.Progress.BadgerDir,
	}, log.WithComponent("progress"))
	if err != nil {
		return player.Snapshot{}, started, fmt.Errorf("open progress store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close progress store")
		}
	}()
	if reset {
		if err := store.Reset(ctx, cfg.Progress.Session); err != nil {
			return player.Snapshot{}, started, fmt.Errorf("reset progress: %w", err)
		}
	}

	clk := clock.New()
	loop := runloop.New()
	sess := player.New(player.Options{
		SessionKey:      cfg.Progress.Session,
		ContentURL:      cfg.Content.URL,
		ContentDuration: cfg.Content.Duration,
		Tick:            cfg.Player.Tick,
		Speed:           cfg.Player.Speed,
		Executor:        loop,
		Clock:           clk,
		Progress:        store,
		Surface:         renderer.NamedSurface("adpod-overlay"),
		Opener: player.OpenerFunc(func(url string) error {
			_, err := fmt.Fprintf(out, "popup: %s\n", url)
			return err
		}),
		Sequencer: sequencer.Options{
			Config: sequencer.Config{
				Tolerance:          cfg.Sequencer.Tolerance,
				SeekGuard:          cfg.Sequencer.SeekGuard,
				FailsafeMultiplier: cfg.Sequencer.FailsafeMultiplier,
			},
			Renderers: stub.NewFactory(script, cfg.Renderer.StepDelay, clk),
			Overlay: overlay.Options{
				SupportsUserCancelStream: cfg.Renderer.SupportsUserCancelStream,
				UserAdvertisingID:        cfg.Renderer.AdvertisingID,
			},
		},
	}, breaks)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		loop.Run(gctx)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		err := sess.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.API.Listen != "" {
		hm := health.NewManager(version.Version)
		pinger, _ := store.(health.Pinger)
		hm.RegisterChecker(health.NewPingChecker("progress", pinger))
		srv := api.New(api.Config{
			Listen:     cfg.API.Listen,
			RateLimit:  cfg.API.RateLimit,
			RateWindow: cfg.API.RateWindow,
			Version:    version.Version,
			Health:     hm,
		}, sess)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	if cfg.Manifest.Watch {
		w := manifest.NewWatcher(cfg.Manifest.Path, func(b []*ads.AdBreak) {
			loop.Post(func() { sess.SetPlaylist(b) })
		})
		if err := w.Start(gctx); err != nil {
			logger.Warn().Err(err).Msg("manifest watch disabled")
		} else {
			defer w.Close()
		}
	}

	err = g.Wait()
	// The loop has exited; nothing else touches the session now.
	sess.Sequencer().Close()
	return sess.Snapshot(), started, err
}
