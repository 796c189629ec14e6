package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

// ErrNoTextLayer is returned by ExtractText for formats that only recognition can read.
var ErrNoTextLayer = errors.New("document has no text layer")

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ArtifactCacheDir string // empty disables HEIC conversion caching
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE | constants.TEXT
	Method     string // "pdf-text" | "plain-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner swaps the command runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractText reads the text layer of a PDF or a plain text file.
func (e *Extractor) ExtractText(ctx context.Context, path, format string) (ExtractionResult, error) {
	start := time.Now()
	e.logger.Debug("starting text layer extraction", "path", path, "format", format)
	switch format {
	case constants.PDF:
		txt, pages, warns, err := e.pdfToText(ctx, path)
		if err != nil {
			return ExtractionResult{SourceType: constants.PDF, Warnings: warns, Duration: time.Since(start)}, err
		}
		txt = Normalize(txt)
		return ExtractionResult{
			Text:       txt,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Duration:   time.Since(start),
			Warnings:   warns,
			Confidence: heuristicConfidence(txt),
		}, nil
	case constants.TEXT:
		b, err := os.ReadFile(path)
		if err != nil {
			return ExtractionResult{SourceType: constants.TEXT, Duration: time.Since(start)}, err
		}
		txt := Normalize(string(b))
		return ExtractionResult{
			Text:       txt,
			Pages:      1,
			SourceType: constants.TEXT,
			Method:     "plain-text",
			Duration:   time.Since(start),
			Confidence: heuristicConfidence(txt),
		}, nil
	case constants.IMAGE:
		return ExtractionResult{SourceType: constants.IMAGE}, ErrNoTextLayer
	default:
		e.logger.Error("unsupported document format", "format", format)
		return ExtractionResult{}, fmt.Errorf("unsupported format: %q", format)
	}
}

// Recognize renders the document to images where needed and runs tesseract over them.
func (e *Extractor) Recognize(ctx context.Context, path, format string) (ExtractionResult, error) {
	start := time.Now()
	e.logger.Debug("starting recognition", "path", path, "format", format)
	switch format {
	case constants.PDF:
		res, err := e.pdfToOCR(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		var warns []string
		if isHEIC(path) {
			hashHex, _ := contentHashFromCtx(ctx)
			out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
			warns = append(warns, w...)
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", err)
				return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
			}
			path = out
		}
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		res.Warnings = append(res.Warnings, warns...)
		return res, err
	default:
		e.logger.Error("unsupported recognition format", "format", format)
		return ExtractionResult{}, fmt.Errorf("recognition unsupported for format: %q", format)
	}
}
