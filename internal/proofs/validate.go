package proofs

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// MaxFileSize is the upload ceiling for payment proofs.
const MaxFileSize = 5 << 20 // 5 MiB

var allowedTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

// FileValidation is handed back to callers instead of an error so the UI can
// render the reason inline.
type FileValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateFile gates an upload on MIME type and size. It never returns an
// error; a rejected file is a normal result.
func ValidateFile(name, mimeType string, size int64) FileValidation {
	if _, ok := allowedTypes[strings.ToLower(mimeType)]; !ok {
		return FileValidation{
			Valid:  false,
			Reason: fmt.Sprintf("file type %q is not allowed; use JPG, PNG or PDF", mimeType),
		}
	}
	if size > MaxFileSize {
		return FileValidation{
			Valid:  false,
			Reason: fmt.Sprintf("file %q exceeds the %d MB limit", name, MaxFileSize/(1<<20)),
		}
	}
	return FileValidation{Valid: true}
}

type FileInfo struct {
	FileType string `json:"file_type"`
	IsImage  bool   `json:"is_image"`
	IsPDF    bool   `json:"is_pdf"`
}

// GetFileInfo classifies a previously issued retrieval URL by its file
// extension. It tolerates percent-encoded paths and query strings.
func GetFileInfo(rawURL string) FileInfo {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if decoded, err := url.QueryUnescape(trimmed); err == nil {
		trimmed = decoded
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(trimmed), "."))
	switch ext {
	case "jpg", "jpeg", "png":
		return FileInfo{FileType: ext, IsImage: true}
	case "pdf":
		return FileInfo{FileType: "pdf", IsPDF: true}
	default:
		return FileInfo{FileType: ext}
	}
}
