// curvereport compares two forward-curve snapshots.
//
// Usage:
//
//	curvereport report --base oct.csv --compare nov.csv [--format table|json|markdown|xlsx]
//	curvereport serve --port 8080
//	curvereport snapshot ingest --file s3://curves/10_06_2025.csv --label Oct --captured 2025-10-06
//	curvereport snapshot list
//	curvereport config show
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"freight-curve/db"
	"freight-curve/db/clickhouse"
	"freight-curve/db/ingestion"
	"freight-curve/db/postgres"
	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
	"freight-curve/decision/report"
	"freight-curve/internal/config"
	"freight-curve/internal/source"
	"freight-curve/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := platform.LoadDotEnv(platform.GetEnv("CURVE_ENV_FILE", ".env")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newApp().Run(os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "curvereport",
		Usage:   "Oil freight forward-curve comparison reports",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CURVE_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Write JSON log lines instead of console output",
				EnvVars: []string{"CURVE_LOG_JSON"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML report definition",
				EnvVars: []string{"CURVE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region for s3:// snapshot sources",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Snapshot archive backend (clickhouse, postgres); empty disables the archive",
				EnvVars: []string{"CURVE_STORE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "freight_curve",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "Postgres connection string",
				EnvVars: []string{"POSTGRES_DSN", "DATABASE_URL"},
			},
		},

		Before: func(c *cli.Context) error {
			platform.InitLogger(c.String("log-level"), !c.Bool("log-json"))
			return nil
		},

		Commands: []*cli.Command{
			reportCommand(),
			serveCommand(),
			snapshotCommand(),
			configCommand(),
		},
	}
}

// env bundles what every command needs from the global flags.
type env struct {
	defs   *config.File
	reader *source.Reader
	logger zerolog.Logger
	store  db.SnapshotStore
}

func setup(c *cli.Context, needStore bool) (*env, error) {
	defs, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	e := &env{
		defs:   defs,
		reader: source.NewReader(c.String("aws-region")),
		logger: log.Logger,
	}

	if c.String("store") == "" {
		if needStore {
			return nil, errors.New("this command needs a snapshot archive, set --store")
		}
		return e, nil
	}
	e.store, err = openStore(c.Context, c)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
}

func (e *env) archive() *ingestion.Adapter {
	if e.store == nil {
		return nil
	}
	return ingestion.NewAdapter(e.store).WithLogger(e.logger)
}

func (e *env) builder(withAlerts bool) *report.Builder {
	loader := curve.NewCachedLoader(curve.NewLoader(e.defs.Curve()).WithLogger(e.logger)).WithLogger(e.logger)
	b := report.NewBuilder(loader).
		WithStaticHeadlines(e.defs.Headlines).
		WithLogger(e.logger)
	if withAlerts {
		b.WithAlerts(alert.NewEngineWithRules(e.defs.Alerts))
	}
	return b
}

func openStore(ctx context.Context, c *cli.Context) (db.SnapshotStore, error) {
	switch kind := strings.ToLower(c.String("store")); kind {
	case "clickhouse":
		store, err := clickhouse.NewStore(&clickhouse.Config{
			Host:     c.String("clickhouse-host"),
			Port:     c.Int("clickhouse-port"),
			Database: c.String("clickhouse-database"),
			Username: c.String("clickhouse-user"),
			Password: c.String("clickhouse-password"),
		})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		if c.String("postgres-dsn") == "" {
			return nil, errors.New("--postgres-dsn is required for the postgres store")
		}
		store, err := postgres.Open(c.String("postgres-dsn"))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q (clickhouse, postgres)", kind)
	}
}
