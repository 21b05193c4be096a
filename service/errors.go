package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the document text is blank
	ErrEmptyInput = errors.New("please enter some text from a legal document to analyze")
	// ErrUnsupportedType is returned for uploads that are neither PDF nor DOCX
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrPasswordProtected is returned for encrypted documents
	ErrPasswordProtected = errors.New("document is password-protected")
	// ErrEmptyExtraction is returned when a document yields no text
	ErrEmptyExtraction = errors.New("could not extract any text")

	// ErrBusy is returned when an upload or analysis is already running for the session
	ErrBusy = errors.New("session is busy")
	// ErrRunInProgress is returned when analyze is triggered while a run is loading
	ErrRunInProgress = errors.New("analysis already in progress")
	// ErrSessionNotFound is returned for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session registry is full
	ErrTooManySessions = errors.New("too many active sessions")
)

// FileTooLargeError reports an upload above the size limit
type FileTooLargeError struct {
	LimitMB int
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file is too large, maximum size is %dMB", e.LimitMB)
}

// DecodeError reports a document that could not be parsed
type DecodeError struct {
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	return "failed to decode document: " + e.Detail
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AnalysisError is the only error type the analyzer returns for
// transport, service and response-format failures
type AnalysisError struct {
	Detail string
	Err    error
}

func (e *AnalysisError) Error() string {
	return e.Detail
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// UploadMessage turns an ingest error into the message shown next to the
// upload control
func UploadMessage(err error) string {
	var tooLarge *FileTooLargeError
	var decodeErr *DecodeError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("File is too large. Maximum size is %dMB.", tooLarge.LimitMB)
	case errors.Is(err, ErrUnsupportedType):
		return "Unsupported file type. Please upload a PDF or DOCX file."
	case errors.Is(err, ErrPasswordProtected):
		return "Failed to read document. The document is password-protected."
	case errors.Is(err, ErrEmptyExtraction):
		return "Could not extract any text. The document might be empty, corrupted, image-based, or password-protected."
	case errors.As(err, &decodeErr):
		return "Failed to read document: " + decodeErr.Detail
	case errors.Is(err, ErrBusy):
		return "Another upload or analysis is in progress."
	default:
		return "An unknown error occurred during file processing."
	}
}
