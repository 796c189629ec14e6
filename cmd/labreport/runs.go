package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/repository"
)

var cmdRuns = &cli.Command{
	Name:  "runs",
	Usage: "Inspect recorded runs",
	Commands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List recent runs",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20},
				&cli.StringFlag{Name: "hash", Usage: "Only runs of the document with this SHA-256"},
			},
			Action: runsList,
		},
		{
			Name:      "show",
			Usage:     "Print one stored run as JSON",
			ArgsUsage: "<run-id>",
			Action:    runsShow,
		},
	},
}

func withRuns(ctx context.Context, cmd *cli.Command, fn func(repository.RunRepository) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "none" {
		return common.ConfigError("store.driver is none; no runs are recorded", nil)
	}
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close(logger)
	return fn(repository.NewRunRepository(db, logging.Logger(logger, logging.SourceStore)))
}

func runsList(ctx context.Context, cmd *cli.Command) error {
	return withRuns(ctx, cmd, func(repo repository.RunRepository) error {
		var (
			runs []*entity.Run
			err  error
		)
		if h := cmd.String("hash"); h != "" {
			runs, err = repo.ListByContentHash(ctx, h)
		} else {
			runs, err = repo.ListRecent(ctx, int(cmd.Int("limit")))
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tDOCUMENT\tRISK\tTRIGGER")
		for _, r := range runs {
			trigger := "-"
			if r.SafetyTrigger != nil {
				trigger = *r.SafetyTrigger
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), r.DocumentName, r.RiskLevel, trigger)
		}
		return tw.Flush()
	})
}

func runsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := uuid.Parse(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("%w: run id must be a UUID", common.ErrInvalidInput)
	}
	return withRuns(ctx, cmd, func(repo repository.RunRepository) error {
		run, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	})
}
