package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
	"freight-curve/decision/report"
	"freight-curve/internal/config"
	"freight-curve/pkg/export"
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Compare two forward-curve snapshots",
		Flags: append(snapshotFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json, markdown, xlsx)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "skip-alerts",
				Usage: "Skip move alert evaluation",
			},
			&cli.BoolFlag{
				Name:  "fail-on-deny",
				Usage: "Exit with status 2 when an alert rule denies",
			},
		),
		Action: runReport,
	}
}

// snapshotFlags select the two snapshots; unset flags fall back to the config file.
func snapshotFlags() []cli.Flag {
	var flags []cli.Flag
	for _, side := range []string{"base", "compare"} {
		flags = append(flags,
			&cli.StringFlag{Name: side, Usage: fmt.Sprintf("Path or s3:// URI of the %s snapshot", side)},
			&cli.StringFlag{Name: side + "-label", Usage: fmt.Sprintf("Label of the %s snapshot", side)},
			&cli.StringFlag{Name: side + "-captured", Usage: fmt.Sprintf("Capture date of the %s snapshot (YYYY-MM-DD)", side)},
			&cli.StringFlag{Name: side + "-id", Usage: fmt.Sprintf("Archived snapshot ID to use as %s", side)},
		)
	}
	return flags
}

func runReport(c *cli.Context) error {
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	needStore := c.String("base-id") != "" || c.String("compare-id") != ""
	e, err := setup(c, needStore)
	if err != nil {
		return err
	}
	defer e.close()

	base, err := e.loadSnapshot(c, "base", e.defs.Snapshots.Base)
	if err != nil {
		return err
	}
	compare, err := e.loadSnapshot(c, "compare", e.defs.Snapshots.Compare)
	if err != nil {
		return err
	}

	rep := e.builder(!c.Bool("skip-alerts")).Build(base, compare)

	if path := c.String("out"); path != "" {
		if err := writeReportFile(path, format, rep); err != nil {
			return err
		}
		e.logger.Info().Str("path", path).Str("format", string(format)).Msg("Report written")
	} else if err := writeReport(os.Stdout, format, rep); err != nil {
		return err
	}

	if c.Bool("fail-on-deny") && rep.Alerts != nil && rep.Alerts.Decision == alert.DecisionDeny {
		return cli.Exit(fmt.Sprintf("alert rules denied: %d violation(s)", len(rep.Alerts.Violations)), 2)
	}
	return nil
}

// writeReportFile writes the report to path. A failed close is reported since
// buffered data may not have reached the disk.
func writeReportFile(path string, format report.Format, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeReport(f, format, rep); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeReport(w io.Writer, format report.Format, rep *report.Report) error {
	switch format {
	case report.FormatJSON:
		return report.WriteJSON(w, rep)
	case report.FormatMarkdown:
		return report.WriteMarkdown(w, rep)
	case report.FormatXLSX:
		return export.WriteXLSX(w, rep)
	default:
		return report.WriteTable(w, rep)
	}
}

// loadSnapshot resolves one side from --<side>-id, or from the source flags
// layered over the config file's reference.
func (e *env) loadSnapshot(c *cli.Context, side string, ref config.SnapshotRef) (*curve.Snapshot, error) {
	if raw := c.String(side + "-id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s-id: %w", side, err)
		}
		return e.archive().Load(c.Context, id)
	}

	if v := c.String(side); v != "" {
		ref = config.SnapshotRef{Source: v, Label: v}
	}
	if v := c.String(side + "-label"); v != "" {
		ref.Label = v
	}
	if v := c.String(side + "-captured"); v != "" {
		ref.Captured = v
	}
	return e.readRef(c.Context, ref)
}

func (e *env) readRef(ctx context.Context, ref config.SnapshotRef) (*curve.Snapshot, error) {
	meta, err := ref.Meta()
	if err != nil {
		return nil, err
	}
	return e.reader.ReadSnapshot(ctx, ref.Source, meta)
}
