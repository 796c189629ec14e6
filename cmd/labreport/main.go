package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
)

func main() {
	app := &cli.Command{
		Name:  "labreport",
		Usage: "Interpret anemia-related values from lab reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars(common.EnvPrefix + "_CONFIG"),
				Usage:   "Path to a config file (yaml, json or toml)",
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug | info | warn | error"},
			&cli.StringFlag{Name: "log-format", Usage: "json | logfmt | text"},
			&cli.StringFlag{Name: "store-driver", Usage: "sqlite | postgres | none"},
			&cli.StringFlag{Name: "store-dsn", Usage: "Run store connection string"},
		},
		Commands: []*cli.Command{
			cmdInterpret,
			cmdBatch,
			cmdWatch,
			cmdServe,
			cmdMigrate,
			cmdRuns,
			cmdRules,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if common.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
