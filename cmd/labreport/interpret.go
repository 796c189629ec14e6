package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/ingest"
	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/navigation"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
)

var cmdInterpret = &cli.Command{
	Name:  "interpret",
	Usage: "Interpret one lab report and print the result as JSON",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Lab report (pdf, image or text)", Required: true},
		&cli.StringFlag{Name: "symptoms", Aliases: []string{"s"}, Usage: "Free-text symptom description"},
		&cli.BoolFlag{Name: "no-store", Usage: "Do not record the run"},
	},
	Action: runInterpret,
}

type interpretOutput struct {
	Report     *pipeline.Report `json:"report"`
	Navigation []string         `json:"navigation"`
}

func runInterpret(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(ctx, cmd, !cmd.Bool("no-store"))
	if err != nil {
		return err
	}
	defer e.close()

	doc, err := ingest.NewIngestor(logging.Logger(e.logger, logging.SourceApp)).ReadPath(cmd.String("file"))
	if err != nil {
		return err
	}

	symptoms := cmd.String("symptoms")
	rep, err := e.proc.Process(ctx, pipeline.Input{Document: doc, Symptoms: symptoms})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(interpretOutput{
		Report:     rep,
		Navigation: navigation.ForResult(rep.Result, strings.TrimSpace(symptoms) != ""),
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
