package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/ocr"
)

// DirectStrategy reads an existing text layer (PDF text or a plain text file).
type DirectStrategy struct {
	r      TextLayerReader
	logger *slog.Logger
}

func NewDirectStrategy(r TextLayerReader, logger *slog.Logger) *DirectStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectStrategy{r: r, logger: logger}
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Extract(ctx context.Context, src Source) (ExtractedText, error) {
	res, err := s.r.ExtractText(ctx, src.Path, src.Format)
	if err != nil {
		if errors.Is(err, ocr.ErrNoTextLayer) {
			s.logger.Debug("extract.direct.skipped", "name", src.Name, "format", src.Format)
		}
		return ExtractedText{}, err
	}
	return fromOCR(res, MethodDirect, s.Name()), nil
}

// RecognitionStrategy runs image recognition on a worker goroutine under a deadline.
// On timeout the attempt is abandoned and reported as an error; it is never retried.
type RecognitionStrategy struct {
	r       Recognizer
	timeout time.Duration
	logger  *slog.Logger
}

func NewRecognitionStrategy(r Recognizer, timeout time.Duration, logger *slog.Logger) *RecognitionStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecognitionStrategy{r: r, timeout: timeout, logger: logger}
}

func (s *RecognitionStrategy) Name() string { return "recognition" }

func (s *RecognitionStrategy) Extract(ctx context.Context, src Source) (ExtractedText, error) {
	ctx, cancel := common.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		res ocr.ExtractionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.r.Recognize(ctx, src.Path, src.Format)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return ExtractedText{}, fmt.Errorf("recognition abandoned: %w", ctx.Err())
			}
			return ExtractedText{}, o.err
		}
		if o.res.Confidence > 0 && o.res.Confidence < ocr.ImageConfidenceThreshold {
			o.res.Warnings = append(o.res.Warnings, fmt.Sprintf("low recognition confidence %.2f", o.res.Confidence))
		}
		return fromOCR(o.res, MethodRecognized, s.Name()), nil
	case <-ctx.Done():
		s.logger.Warn("extract.recognition.abandoned", "name", src.Name, "timeout", s.timeout, "error", ctx.Err())
		return ExtractedText{}, fmt.Errorf("recognition abandoned: %w", ctx.Err())
	}
}

func fromOCR(r ocr.ExtractionResult, m Method, strategy string) ExtractedText {
	return ExtractedText{
		Text:       r.Text,
		Method:     m,
		Confidence: r.Confidence,
		Pages:      r.Pages,
		Strategy:   strategy,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}
}
