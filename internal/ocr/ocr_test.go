package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

// fakeRunner answers commands by binary name and records the calls.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()

	if err := f.fail[name]; err != nil {
		return nil, []byte("boom"), err
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for _, p := range []string{"-1.png", "-2.png"} {
			if err := os.WriteFile(prefix+p, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if args[len(args)-1] == "tsv" {
			return []byte(f.outputs["tsv"]), nil, nil
		}
	}
	return []byte(f.outputs[name]), nil, nil
}

const tsvSample = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tHemoglobin\n" +
	"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\t11.2\n"

func TestExtractText_PDF(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"pdftotext": "Hemoglobin   11.2 g/dL\fMCV\t78 fL\f"}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.ExtractText(context.Background(), "report.pdf", constants.PDF)
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Hemoglobin 11.2 g/dL\nMCV 78 fL", res.Text)
	assert.Greater(t, res.Confidence, float32(0.5))
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "-layout -enc UTF-8 -eol unix report.pdf -")
}

func TestExtractText_PlainAndImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hb: 13.5\r\nAge: 30"), 0o600))
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))

	res, err := e.ExtractText(context.Background(), path, constants.TEXT)
	require.NoError(t, err)
	assert.Equal(t, "Hb: 13.5\nAge: 30", res.Text)
	assert.Equal(t, "plain-text", res.Method)

	_, err = e.ExtractText(context.Background(), "scan.png", constants.IMAGE)
	assert.ErrorIs(t, err, ErrNoTextLayer)
}

func TestRecognize_PDF(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"tesseract": "MCV 7O.5 fL\n-----\n", "tsv": tsvSample}}
	e := NewExtractor(Config{EnableTSVConfidence: true}, nil, WithRunner(r))

	res, err := e.Recognize(context.Background(), "scan.pdf", constants.PDF)
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "MCV 70.5 fL\n\nMCV 70.5 fL", res.Text)
	assert.InDelta(t, 0.7*0.8+0.3*heuristicConfidence(res.Text), res.Confidence, 0.001)
}

func TestRecognize_Image(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"tesseract": "Hb 9.1 g/dL"}}
	e := NewExtractor(Config{PSM: 6}, nil, WithRunner(r))

	res, err := e.Recognize(context.Background(), "scan.png", constants.IMAGE)
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "Hb 9.1 g/dL", res.Text)
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "--psm 6")
}

func TestRecognize_TesseractFailure(t *testing.T) {
	r := &fakeRunner{fail: map[string]error{"tesseract": errors.New("exit 1")}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	_, err := e.Recognize(context.Background(), "scan.png", constants.IMAGE)
	assert.Error(t, err)
}

func TestRecognize_HEICWithoutConverter(t *testing.T) {
	e := NewExtractor(Config{HeicConverter: "none"}, nil, WithRunner(&fakeRunner{}))
	_, err := e.Recognize(context.Background(), "photo.heic", constants.IMAGE)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEIC not supported")
}

func TestMeanTSVConfidence(t *testing.T) {
	assert.InDelta(t, 0.8, meanTSVConfidence(tsvSample), 0.0001)
	assert.Zero(t, meanTSVConfidence("header only\n"))
}

func TestNormalize(t *testing.T) {
	in := "Hemoglobin\t\t l3.5 g/dL\r\n\r\n\r\n\r\nMCHC   1O.2\n____\nNO2 stays"
	assert.Equal(t, "Hemoglobin 13.5 g/dL\n\nMCHC 10.2\n\nNO2 stays", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestHeuristicConfidence(t *testing.T) {
	assert.Zero(t, heuristicConfidence("  "))
	low := heuristicConfidence("lorem ipsum")
	high := heuristicConfidence("Hemoglobin 11.2 g/dL Age 30 Sex F")
	assert.Less(t, low, high)
	assert.LessOrEqual(t, high, float32(1))
}

func TestCountSignificant(t *testing.T) {
	assert.Equal(t, 4, CountSignificant(" a b\n\tc d "))
}

func TestExecRunner_MissingTool(t *testing.T) {
	_, _, err := execRunner{}.Run(context.Background(), "labinterp-no-such-tool", slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolMissing)

	var terr *ToolError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "labinterp-no-such-tool", terr.Tool)
}
