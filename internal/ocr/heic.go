package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

type ctxKey string

const (
	ctxKeyContentHash ctxKey = "ocr.content_hash_hex"
)

// WithContentHash stores the hex-encoded SHA256 of the document for artifact caching.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok
}

// heicConverters maps a supported converter binary to its argument list.
var heicConverters = map[string]func(in, out string) []string{
	"heif-convert": func(in, out string) []string { return []string{in, out} },
	"magick":       func(in, out string) []string { return []string{in, out} },
	"sips":         func(in, out string) []string { return []string{"-s", "format", "png", in, "--out", out} },
}

func isHEIC(path string) bool {
	return constants.IsHEICExt(filepath.Ext(path))
}

// convertHEICtoPNG renders a phone photo of a report to PNG for tesseract.
// With a cache dir and content hash the PNG is kept at {cacheDir}/{hash}.png
// and reused. cleanup is nil when the cached path is returned.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
	hashHex string,
) (string, []string, func(), error) {
	useCache := cacheDir != "" && hashHex != ""
	if useCache {
		cached := filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "li-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	argsFor, ok := heicConverters[converter]
	if !ok {
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set ocr.heic_converter to one of: heif-convert | magick | sips")
	}
	if _, errb, err := r.Run(ctx, converter, logger, argsFor(in, out)...); err != nil {
		return "", []string{string(errb)}, cleanup, fmt.Errorf("%s convert failed: %w", converter, err)
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	if !useCache {
		return out, nil, cleanup, nil
	}

	cached := filepath.Join(cacheDir, hashHex+".png")
	if err := os.Rename(out, cached); err != nil {
		// EXDEV and friends: copy instead
		if err := copyFile(out, cached); err != nil {
			cleanup()
			return "", nil, nil, err
		}
	}
	cleanup()
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
