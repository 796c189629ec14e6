package constants

import "strings"

// Document formats understood by the text extractor.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TEXT  = "TEXT"
)

// AllowedExtensions holds the default allowed file extensions for batch runs.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"heic": {},
	"heif": {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to a document format, or "".
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff", "heic", "heif", "bmp", "webp":
		return IMAGE
	case "txt", "text":
		return TEXT
	default:
		return ""
	}
}

// MapMIMEToFormat maps a sniffed MIME type to a document format, or "".
func MapMIMEToFormat(mime string) string {
	mime = strings.ToLower(mime)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	switch {
	case mime == "application/pdf":
		return PDF
	case strings.HasPrefix(mime, "image/"):
		return IMAGE
	case strings.HasPrefix(mime, "text/"):
		return TEXT
	default:
		return ""
	}
}

// IsHEICExt reports whether ext is a HEIC/HEIF extension.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// IsHEICMIME reports whether mime names a HEIC/HEIF image.
func IsHEICMIME(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.HasPrefix(mime, "image/heic") || strings.HasPrefix(mime, "image/heif")
}

// ExtForMIME returns the file extension used when spooling a document of this type.
func ExtForMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "application/pdf"):
		return ".pdf"
	case strings.HasPrefix(mime, "image/png"):
		return ".png"
	case strings.HasPrefix(mime, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mime, "image/tiff"):
		return ".tiff"
	case IsHEICMIME(mime):
		return ".heic"
	case strings.HasPrefix(mime, "text/"):
		return ".txt"
	default:
		return ".bin"
	}
}
