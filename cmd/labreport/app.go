package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/logging"
	"github.com/joseph-ayodele/lab-interpreter/internal/metrics"
	"github.com/joseph-ayodele/lab-interpreter/internal/ocr"
	"github.com/joseph-ayodele/lab-interpreter/internal/pipeline"
	"github.com/joseph-ayodele/lab-interpreter/internal/repository"
	"github.com/joseph-ayodele/lab-interpreter/internal/rules"
)

// env is everything a subcommand needs, built from config and flags.
type env struct {
	cfg      *common.Config
	logger   *slog.Logger
	rules    *rules.Set
	db       *repository.DB
	runs     repository.RunRepository
	registry *prometheus.Registry
	metrics  *metrics.Pipeline
	proc     *pipeline.Processor
}

// loadConfig reads config and applies the global flag overrides.
func loadConfig(cmd *cli.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := cmd.String("store-driver"); v != "" {
		cfg.Store.Driver = v
	}
	if v := cmd.String("store-dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// logs go to stderr so stdout stays machine readable
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func loadRules(cfg *common.Config, logger *slog.Logger) (*rules.Set, error) {
	return rules.Load(rules.Paths{
		Ranges:         cfg.Rules.RangesFile,
		Symptoms:       cfg.Rules.SymptomsFile,
		Interpretation: cfg.Rules.InterpretationFile,
		Safety:         cfg.Rules.SafetyFile,
	}, logging.Logger(logger, logging.SourceRules))
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, error) {
	log := logging.Logger(logger, logging.SourceStore)
	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Store.Driver,
		DSN:              cfg.Store.DSN,
		MaxConns:         cfg.Store.MaxConns,
		MinConns:         cfg.Store.MinConns,
		MaxConnLifetime:  cfg.Store.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Store.MaxConnIdleTime,
		DialTimeout:      cfg.Store.DialTimeout,
		StatementTimeout: cfg.Store.StatementTimeout,
	}, log)
	if err != nil {
		return nil, common.WrapError(err, "open store")
	}
	if err := repository.Migrate(ctx, db, log); err != nil {
		db.Close(log)
		return nil, err
	}
	return db, nil
}

func newExtractor(cfg *common.Config, logger *slog.Logger) *extract.Chain {
	log := logging.Logger(logger, logging.SourceExtract)
	x := ocr.NewExtractor(ocr.Config{
		Pdftotext:           cfg.OCR.Pdftotext,
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.TesseractLang,
		DPI:                 cfg.OCR.DPI,
		MaxPages:            cfg.OCR.MaxPages,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		PSM:                 cfg.OCR.PSM,
		OEM:                 cfg.OCR.OEM,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
	}, log)
	return extract.NewDefaultChain(x, cfg.Extraction.MinChars, cfg.Extraction.RecognitionTimeout, log)
}

// setup builds the processor. The store is opened unless disabled by config or useStore.
func setup(ctx context.Context, cmd *cli.Command, useStore bool) (*env, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	set, err := loadRules(cfg, logger)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, rules: set, registry: prometheus.NewRegistry()}
	e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e.metrics = metrics.New(e.registry)

	opts := []pipeline.Option{pipeline.WithObserver(e.metrics)}
	if useStore && cfg.Store.Driver != "none" {
		if e.db, err = openStore(ctx, cfg, logger); err != nil {
			return nil, err
		}
		e.runs = repository.NewRunRepository(e.db, logging.Logger(logger, logging.SourceStore))
		opts = append(opts, pipeline.WithStore(e.runs))
	}

	e.proc, err = pipeline.NewProcessor(set, newExtractor(cfg, logger), logging.Logger(logger, logging.SourcePipeline), opts...)
	if err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close(logging.Logger(e.logger, logging.SourceStore))
	}
}
