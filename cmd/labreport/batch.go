package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/async"
	"github.com/joseph-ayodele/lab-interpreter/internal/export"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/ingest"
	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

var cmdBatch = &cli.Command{
	Name:  "batch",
	Usage: "Interpret every report under a directory and write an XLSX summary",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory to scan", Required: true},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output workbook path", Value: "lab-results.xlsx"},
		&cli.IntFlag{Name: "workers", Usage: "Concurrent pipeline runs (0 uses queue.workers)"},
		&cli.BoolFlag{Name: "include-hidden", Usage: "Also scan dot files and directories"},
	},
	Action: runBatch,
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer e.close()

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = e.cfg.Queue.Workers
	}

	var (
		mu      sync.Mutex
		reports []*pipeline.Report
		failed  int
	)
	q := async.NewQueue(e.proc, logging.Logger(e.logger, logging.SourceQueue),
		async.WithWorkers(workers),
		async.WithQueueSize(e.cfg.Queue.Size),
		async.WithProcessTimeout(e.cfg.Queue.Timeout),
		async.WithResultHandler(func(r async.Result) {
			mu.Lock()
			defer mu.Unlock()
			if r.Err != nil {
				failed++
				return
			}
			reports = append(reports, r.Report)
		}),
	)

	in := ingest.NewIngestor(logging.Logger(e.logger, logging.SourceApp))
	_, stats, walkErr := in.IngestDirectory(ctx, cmd.String("dir"), !cmd.Bool("include-hidden"),
		func(ctx context.Context, path string, doc extract.Document) error {
			return q.Enqueue(ctx, async.Job{Input: pipeline.Input{Document: doc}, TraceID: path})
		})
	q.Shutdown(context.Background())
	if walkErr != nil {
		return walkErr
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].DocumentName < reports[j].DocumentName })
	data, err := export.NewService(e.logger).ExportReportsXLSX(reports)
	if err != nil {
		return err
	}
	out := cmd.String("out")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Printf("scanned=%d matched=%d interpreted=%d deduplicated=%d failed=%d -> %s\n",
		stats.Scanned, stats.Matched, len(reports), stats.Deduplicated, int(stats.Failed)+failed, out)
	return nil
}
