package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/lab-interpreter/constants"
)

// DetectFormat sniffs the document bytes; the file name is only a fallback.
func DetectFormat(doc Document) (format, mime string) {
	m := mimetype.Detect(doc.Data)
	mime = m.String()
	format = constants.MapMIMEToFormat(mime)
	if format == "" {
		format = constants.MapExtToFormat(filepath.Ext(doc.Name))
	}
	return format, mime
}

// spool writes the document to a temp file named so the tools recognize its type.
func spool(doc Document) (Source, func(), error) {
	format, mime := DetectFormat(doc)
	if format == "" {
		return Source{Name: doc.Name, MIME: mime}, nil, fmt.Errorf("unsupported document type %q", mime)
	}

	dir, err := os.MkdirTemp("", "li-doc-*")
	if err != nil {
		return Source{}, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	ext := constants.ExtForMIME(mime)
	if ext == ".bin" {
		ext = filepath.Ext(doc.Name)
	}
	path := filepath.Join(dir, "document"+ext)
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		cleanup()
		return Source{}, nil, err
	}
	return Source{Name: doc.Name, Path: path, Format: format, MIME: mime}, cleanup, nil
}
