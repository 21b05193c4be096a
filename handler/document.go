package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/AnTengye/legalanalyzer/middleware"
	"github.com/AnTengye/legalanalyzer/model"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/AnTengye/legalanalyzer/service"
	"github.com/gin-gonic/gin"
)

// multipart framing and headers on top of the file itself
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	maxUploadBytes int64
}

func NewDocumentHandler(maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &DocumentHandler{maxUploadBytes: maxUploadBytes}
}

type SetTextRequest struct {
	Text *string `json:"text" binding:"required"`
}

// Sample returns the built-in sample agreement
func (h *DocumentHandler) Sample(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"text": service.SampleDocument})
}

// SetText replaces the session's document text
func (h *DocumentHandler) SetText(c *gin.Context) {
	var req SetTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess := middleware.GetSession(c)
	if err := sess.SetText(*req.Text); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// LoadSample replaces the session's document text with the sample
func (h *DocumentHandler) LoadSample(c *gin.Context) {
	sess := middleware.GetSession(c)
	if err := sess.LoadSample(); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Upload extracts the text of a PDF or DOCX into the session
func (h *DocumentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	sess := middleware.GetSession(c)

	limit := h.maxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		h.writeTooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if c.Request.MultipartForm != nil {
		defer func() {
			if err := c.Request.MultipartForm.RemoveAll(); err != nil {
				logger.Warn(ctx, "failed to remove multipart temp files", "error", err)
			}
		}()
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	upload := model.UploadedFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}
	// oversized files are rejected on their declared size without reading them
	if upload.Size <= h.maxUploadBytes {
		upload.Content, err = io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
	}

	if err := sess.Ingest(ctx, upload); err != nil {
		writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess.Snapshot())
}

// writeTooLarge rejects a body over the limit before it reaches the session
func (h *DocumentHandler) writeTooLarge(c *gin.Context) {
	tooLarge := &service.FileTooLargeError{LimitMB: int(h.maxUploadBytes / (1024 * 1024))}
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.UploadMessage(tooLarge)})
}

func writeUploadError(c *gin.Context, err error) {
	var tooLarge *service.FileTooLargeError
	var decodeErr *service.DecodeError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrPasswordProtected),
		errors.Is(err, service.ErrEmptyExtraction),
		errors.As(err, &decodeErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrBusy):
		status = http.StatusConflict
	}
	c.Error(err)
	c.JSON(status, gin.H{"error": service.UploadMessage(err)})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Another upload or analysis is in progress."})
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Analysis already in progress."})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
