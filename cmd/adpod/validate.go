// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/manifest"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Parse a manifest and print its break schedule",
		ArgsUsage: "<manifest.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the schedule as JSON"},
		},
		Action: validateAction,
	}
}

type breakRow struct {
	ID       string   `json:"breakId"`
	Offset   string   `json:"offset"`
	OffsetMS int64    `json:"offsetMs"`
	Ads      []adRow  `json:"ads"`
	Total    string   `json:"total"`
	Interact bool     `json:"interactive"`
	Types    []string `json:"-"`
}

type adRow struct {
	ID       string     `json:"id"`
	Type     ads.AdType `json:"type"`
	Duration float64    `json:"durationSec"`
	Media    string     `json:"mediaFile,omitempty"`
	Config   string     `json:"configUrl,omitempty"`
	Inline   bool       `json:"inlineConfig"`
}

func validateAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("manifest path required", 2)
	}
	path := c.Args().First()
	breaks, err := manifest.LoadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid manifest %s: %v", path, err), 1)
	}

	rows := make([]breakRow, 0, len(breaks))
	for _, b := range breaks {
		row := breakRow{
			ID:       b.ID,
			Offset:   manifest.FormatClock(b.Offset),
			OffsetMS: b.Offset.Milliseconds(),
			Total:    manifest.FormatClock(b.TotalDuration()),
			Interact: b.HasInteractive(),
		}
		for _, ad := range b.Ads {
			row.Ads = append(row.Ads, adRow{
				ID:       ad.ID,
				Type:     ad.Type,
				Duration: ad.Duration.Seconds(),
				Media:    ad.MediaFile,
				Config:   ad.ConfigURL,
				Inline:   ad.HasInlineConfig(),
			})
			row.Types = append(row.Types, string(ad.Type))
		}
		rows = append(rows, row)
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"adBreaks": rows})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BREAK\tOFFSET\tADS\tDURATION\tTYPES")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%v\n", r.ID, r.Offset, len(r.Ads), r.Total, r.Types)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is valid: %d ad breaks\n", path, len(rows))
	return nil
}
