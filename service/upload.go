package service

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/AnTengye/legalanalyzer/model"
)

// DefaultMaxUploadBytes is the upload limit used when none is configured
const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024

// ValidateUpload checks the size and type of an upload without reading its
// content. Either the declared MIME type or the file extension is enough
// to accept a type; extensions are matched case-insensitively.
func ValidateUpload(file model.UploadedFile, maxBytes int64) (model.FileKind, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if file.Size > maxBytes {
		return "", &FileTooLargeError{LimitMB: int(maxBytes / (1024 * 1024))}
	}

	mimeType := normalizeMIME(file.MIMEType)
	ext := strings.ToLower(filepath.Ext(file.Name))

	switch {
	case mimeType == model.MIMEPDF || ext == ".pdf":
		return model.KindPDF, nil
	case mimeType == model.MIMEDOCX || ext == ".docx":
		return model.KindDOCX, nil
	default:
		return "", ErrUnsupportedType
	}
}

// normalizeMIME drops parameters and case from a Content-Type value
func normalizeMIME(v string) string {
	if v == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(v); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(v))
}
