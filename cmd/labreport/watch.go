package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/async"
	"github.com/joseph-ayodele/lab-interpreter/internal/ingest"
	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

var cmdWatch = &cli.Command{
	Name:  "watch",
	Usage: "Interpret reports as they appear in a directory",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory to watch (repeatable)", Required: true},
		&cli.BoolFlag{Name: "initial-scan", Usage: "Process files already present"},
		&cli.DurationFlag{Name: "debounce", Usage: "Coalesce bursts of writes", Value: 500 * time.Millisecond},
	},
	Action: runWatch,
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer e.close()

	log := logging.Logger(e.logger, logging.SourceQueue)
	q := async.NewQueue(e.proc, log,
		async.WithWorkers(e.cfg.Queue.Workers),
		async.WithQueueSize(e.cfg.Queue.Size),
		async.WithProcessTimeout(e.cfg.Queue.Timeout),
		async.WithResultHandler(func(r async.Result) {
			if r.Err != nil || r.Report.Result.SafetyFlag == nil {
				return
			}
			log.Warn("watch.urgent", "document", r.Report.DocumentName, "trigger", r.Report.Result.SafetyFlag.Trigger)
		}),
	)
	defer q.Shutdown(context.Background())

	in := ingest.NewIngestor(logging.Logger(e.logger, logging.SourceApp))
	events, errs, err := in.Watch(ctx, ingest.WatchConfig{
		Roots:       cmd.StringSlice("dir"),
		InitialScan: cmd.Bool("initial-scan"),
		SkipHidden:  true,
		Debounce:    cmd.Duration("debounce"),
	})
	if err != nil {
		return err
	}

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			doc, err := in.ReadPath(path)
			if err != nil {
				log.Warn("watch.read.failed", "path", path, "error", err)
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Input: pipeline.Input{Document: doc}, TraceID: path}); err != nil {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Error("watch.error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
