package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"freight-curve/api"
	"freight-curve/internal/source"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the report API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"CURVE_PORT", "PORT"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Value:   "*",
				Usage:   "Comma-separated list of allowed CORS origins",
				EnvVars: []string{"CURVE_CORS_ORIGINS"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Usage:   "Directory that base/compare request parameters may read from",
				EnvVars: []string{"CURVE_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "allowed-buckets",
				Usage:   "Comma-separated S3 buckets that base/compare request parameters may read from",
				EnvVars: []string{"CURVE_ALLOWED_BUCKETS"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	cfg.CORSOrigins = splitList(c.String("cors-origins"))
	cfg.Sources = source.Scope{
		Root:    c.String("data-dir"),
		Buckets: splitList(c.String("allowed-buckets")),
	}

	api.Version = version
	server := api.NewServer(e.defs, e.reader, e.builder(true), cfg).
		WithLogger(e.logger)
	if a := e.archive(); a != nil {
		server.WithArchive(a)
	}

	return server.StartWithGracefulShutdown(c.Context)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
