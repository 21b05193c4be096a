package model

import (
	"time"
)

// FileKind is the document format an upload was accepted as
type FileKind string

const (
	KindPDF  FileKind = "pdf"
	KindDOCX FileKind = "docx"
)

// Canonical MIME types for accepted uploads
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// UploadedFile describes a single upload. It only lives for the
// validate-extract step and is dropped afterwards.
type UploadedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

// SessionSnapshot is a consistent copy of a session's state
type SessionSnapshot struct {
	ID          string    `json:"session_id"`
	Text        string    `json:"text"`
	Uploading   bool      `json:"uploading"`
	UploadError string    `json:"upload_error,omitempty"`
	State       RunState  `json:"state"`
	Stale       bool      `json:"stale"` // text replaced after the shown result was produced
	UpdatedAt   time.Time `json:"updated_at"`
}
