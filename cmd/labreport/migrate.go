package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
)

var cmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "Apply run store migrations",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.Driver == "none" {
			return common.ConfigError("store.driver is none; nothing to migrate", nil)
		}
		db, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		db.Close(logger)
		fmt.Println("migrations applied")
		return nil
	},
}
