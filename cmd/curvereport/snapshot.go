package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"freight-curve/db/ingestion"
	"freight-curve/internal/config"
)

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Manage the snapshot archive",
		Subcommands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "Archive a snapshot file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path or s3:// URI of the snapshot",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "label",
						Usage:    "Snapshot label, e.g. Oct",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "captured",
						Usage: "Capture date (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Value: ingestion.DefaultBatchSize,
						Usage: "Cells per insert batch",
					},
				},
				Action: runIngest,
			},
			{
				Name:   "list",
				Usage:  "List archived snapshots",
				Action: runList,
			},
		},
	}
}

func runIngest(c *cli.Context) error {
	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.close()

	ref := config.SnapshotRef{Source: c.String("file"), Label: c.String("label"), Captured: c.String("captured")}
	meta, err := ref.Meta()
	if err != nil {
		return err
	}
	data, err := e.reader.Read(c.Context, ref.Source)
	if err != nil {
		return err
	}

	res, err := e.archive().WithBatchSize(c.Int("batch-size")).Ingest(c.Context, ingestion.Input{
		Label:      meta.Label,
		Source:     meta.Source,
		CapturedAt: meta.CapturedAt,
		Data:       data,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runList(c *cli.Context) error {
	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.close()

	records, err := e.archive().List(c.Context)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No archived snapshots")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-10s  %5s  %-16s  %s\n", "ID", "LABEL", "CAPTURED", "ROWS", "HASH", "SOURCE")
	for _, r := range records {
		captured := "-"
		if !r.CapturedAt.IsZero() {
			captured = r.CapturedAt.Format(time.DateOnly)
		}
		fmt.Printf("%-36s  %-8s  %-10s  %5d  %-16s  %s\n",
			r.ID, truncate(r.Label, 8), captured, r.RowCount, truncate(r.Hash, 16), r.Source)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
