package main

import (
	"os"

	"github.com/urfave/cli/v2"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the report definition",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration as YAML",
				Action: func(c *cli.Context) error {
					e, err := setup(c, false)
					if err != nil {
						return err
					}
					defer e.close()

					out, err := e.defs.Marshal()
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(out)
					return err
				},
			},
		},
	}
}
