package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/ocr"
)

// Document is the uploaded byte payload. It is never mutated.
type Document struct {
	Name string
	Data []byte
}

// Hash returns the hex SHA-256 of the document bytes.
func (d Document) Hash() string {
	sum := sha256.Sum256(d.Data)
	return hex.EncodeToString(sum[:])
}

// Method tags how the text was obtained.
type Method string

const (
	MethodDirect     Method = "direct"
	MethodRecognized Method = "recognized"
	MethodFailed     Method = "failed"
)

// ExtractedText is produced once per document. An empty Text with MethodFailed
// means no strategy yielded anything; downstream treats it as "no fields".
type ExtractedText struct {
	Text       string        `json:"text"`
	Method     Method        `json:"method"`
	Confidence float32       `json:"confidence"`
	Format     string        `json:"format,omitempty"`
	MIME       string        `json:"mime,omitempty"`
	Pages      int           `json:"pages,omitempty"`
	Strategy   string        `json:"strategy,omitempty"`
	Duration   time.Duration `json:"duration"`
	Warnings   []string      `json:"warnings,omitempty"`
}

func (t ExtractedText) Failed() bool { return t.Method == MethodFailed }

// TextExtractor is Stage 1: document -> text. It never returns an error; failure
// is the MethodFailed state.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) ExtractedText
}

// Source is a document spooled to disk for the external tools.
type Source struct {
	Name   string
	Path   string
	Format string
	MIME   string
}

// Strategy is one link in the extraction chain.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, src Source) (ExtractedText, error)
}

// TextLayerReader reads text that is already in the document.
type TextLayerReader interface {
	ExtractText(ctx context.Context, path, format string) (ocr.ExtractionResult, error)
}

// Recognizer reads text from rendered page images.
type Recognizer interface {
	Recognize(ctx context.Context, path, format string) (ocr.ExtractionResult, error)
}
