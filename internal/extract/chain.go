package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/ocr"
)

// DefaultMinChars is the yield below which a strategy counts as unsuccessful.
const DefaultMinChars = 40

// Chain tries its strategies in order; the first one yielding at least minChars
// significant characters wins.
type Chain struct {
	strategies []Strategy
	minChars   int
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, minChars int, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Chain{strategies: strategies, minChars: minChars, logger: logger}
}

// NewDefaultChain wires direct text first and recognition second over one ocr.Extractor.
func NewDefaultChain(x *ocr.Extractor, minChars int, recognitionTimeout time.Duration, logger *slog.Logger) *Chain {
	return NewChain(logger, minChars,
		NewDirectStrategy(x, logger),
		NewRecognitionStrategy(x, recognitionTimeout, logger),
	)
}

func (c *Chain) Extract(ctx context.Context, doc Document) ExtractedText {
	start := time.Now()
	log := c.logger
	if id := common.RunIDFromContext(ctx); id != "" {
		log = log.With("run_id", id)
	}
	failed := func(format, mime string, warns []string) ExtractedText {
		log.Warn("extract.failed", "name", doc.Name, "format", format, "warnings", len(warns))
		return ExtractedText{Method: MethodFailed, Format: format, MIME: mime, Duration: time.Since(start), Warnings: warns}
	}

	if len(doc.Data) == 0 {
		return failed("", "", []string{"empty document"})
	}
	src, cleanup, err := spool(doc)
	if err != nil {
		return failed(src.Format, src.MIME, []string{err.Error()})
	}
	defer cleanup()
	ctx = ocr.WithContentHash(ctx, doc.Hash())

	var warns []string
	var best ExtractedText
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			warns = append(warns, s.Name()+": "+err.Error())
			break
		}
		res, err := s.Extract(ctx, src)
		if err != nil {
			if !errors.Is(err, ocr.ErrNoTextLayer) {
				log.Warn("extract.strategy.failed", "name", doc.Name, "strategy", s.Name(), "error", err)
			}
			warns = append(warns, s.Name()+": "+err.Error())
			continue
		}
		n := ocr.CountSignificant(res.Text)
		if n >= c.minChars {
			res.Format, res.MIME = src.Format, src.MIME
			res.Duration = time.Since(start)
			res.Warnings = append(warns, res.Warnings...)
			log.Info("extract.ok", "name", doc.Name, "strategy", s.Name(), "chars", n, "confidence", res.Confidence)
			return res
		}
		log.Debug("extract.strategy.short", "name", doc.Name, "strategy", s.Name(), "chars", n, "min_chars", c.minChars)
		warns = append(warns, s.Name()+": yield below threshold")
		if n > ocr.CountSignificant(best.Text) {
			best = res
		}
	}

	if best.Text != "" {
		// keep the longest partial yield, but trust it less
		best.Confidence /= 2
		best.Format, best.MIME = src.Format, src.MIME
		best.Duration = time.Since(start)
		best.Warnings = append(warns, best.Warnings...)
		log.Info("extract.partial", "name", doc.Name, "strategy", best.Strategy, "chars", ocr.CountSignificant(best.Text))
		return best
	}
	return failed(src.Format, src.MIME, warns)
}
