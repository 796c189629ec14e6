package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

var cmdRules = &cli.Command{
	Name:  "rules",
	Usage: "Rule table utilities",
	Commands: []*cli.Command{
		{
			Name:  "check",
			Usage: "Validate the configured rule tables",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, logger, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				set, err := loadRules(cfg, logger)
				if err != nil {
					return err
				}
				fmt.Printf("ok: %d ranges, %d symptom rules, %d interpretation rules, %d safety triggers\n",
					len(set.Ranges.Ranges), len(set.Symptoms.Rules), len(set.Interpretation.Rules), len(set.Safety.Triggers))
				return nil
			},
		},
		{
			Name:      "dump",
			Usage:     "Print an embedded default table as a starting point for overrides",
			ArgsUsage: "<ranges|symptoms|interpretation|safety>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				table := cmd.Args().First()
				data, err := rules.DefaultTable(table)
				if err != nil {
					return fmt.Errorf("%w: unknown table %q", common.ErrInvalidInput, table)
				}
				_, err = os.Stdout.Write(data)
				return err
			},
		},
	},
}
