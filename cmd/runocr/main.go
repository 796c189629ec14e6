package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
	"github.com/joseph-ayodele/lab-interpreter/internal/ingest"
	"github.com/joseph-ayodele/lab-interpreter/internal/ocr"
)

// runocr runs the text extraction stage alone and prints what it produced.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <report-file>")
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(os.Getenv(common.EnvPrefix + "_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	doc, err := ingest.NewIngestor(logger).ReadPath(os.Args[1])
	if err != nil {
		logger.Error("read document", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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
	}, logger)
	chain := extract.NewDefaultChain(x, cfg.Extraction.MinChars, cfg.Extraction.RecognitionTimeout, logger)

	res := chain.Extract(ctx, doc)
	if res.Failed() {
		logger.Error("text extraction failed",
			"format", res.Format, "warnings", res.Warnings, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"strategy", res.Strategy,
		"confidence", res.Confidence,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
