// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report writes the end-of-session summary.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/adpod/internal/log"
	"github.com/ManuGH/adpod/internal/player"
)

// Report is the JSON document written after a run.
type Report struct {
	Version     string          `json:"version"`
	Manifest    string          `json:"manifest"`
	StartedAt   time.Time       `json:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt"`
	Session     player.Snapshot `json:"session"`
	Credits     int             `json:"credits"`
	Skipped     int             `json:"skipped"`
	Completed   int             `json:"completed"`
	Interactive int             `json:"interactive"`
}

// New summarizes snap.
func New(version, manifest string, started, finished time.Time, snap player.Snapshot) Report {
	r := Report{
		Version:     version,
		Manifest:    manifest,
		StartedAt:   started.UTC(),
		FinishedAt:  finished.UTC(),
		Session:     snap,
		Interactive: len(snap.Interactive),
	}
	for _, res := range snap.Interactive {
		if res.Credit {
			r.Credits++
		}
	}
	for _, o := range snap.Outcomes {
		switch o.Outcome {
		case "skipped":
			r.Skipped++
		case "completed":
			r.Completed++
		}
	}
	return r
}

// Write stores r at path atomically: readers see the old file or the new
// one, never a partial write.
func Write(ctx context.Context, path string, r Report) error {
	logger := log.WithComponentFromContext(ctx, "report")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}

	logger.Info().
		Str(log.FieldEvent, "report.written").
		Str(log.FieldPath, path).
		Int("credits", r.Credits).
		Int("skipped", r.Skipped).
		Msg("session report written")
	return nil
}

// Read loads a report written by Write.
func Read(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}
