package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, e.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftotext: %w", err)
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Method: "pdf-ocr", Language: e.cfg.TesseractLang}

	tmpDir, err := os.MkdirTemp("", "li-pp-*")
	if err != nil {
		return res, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		res.Warnings = []string{string(errb)}
		return res, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		res.Warnings = []string{"pdftoppm produced no images"}
		return res, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var confSum float32
	var confN int
	for _, img := range matches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
		res.Warnings = append(res.Warnings, w...)

		if e.cfg.EnableTSVConfidence {
			if c, w2, err2 := e.tesseractTSVConfidence(ctx, img); err2 == nil && c > 0 {
				confSum += c
				confN++
				res.Warnings = append(res.Warnings, w2...)
			}
		}
	}
	res.Pages = len(matches)
	res.Text = Normalize(b.String())

	var ocrConf float32
	if confN > 0 {
		ocrConf = confSum / float32(confN)
	}
	res.Confidence = blendConfidence(ocrConf, heuristicConfidence(res.Text))
	return res, nil
}
