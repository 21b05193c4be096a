package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AnTengye/legalanalyzer/model"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"golang.org/x/sync/singleflight"
)

// Extractor turns uploaded PDF and DOCX content into plain text.
//
// The PDF engine is started on the first PDF only. Concurrent first uses
// share one start attempt, and a failed start is retried by the next PDF.
type Extractor struct {
	pdfWorkers  int
	maxExpanded int64 // bound on decompressed document content
	startEngine func(workers int) (*pdfEngine, error)

	engine    atomic.Pointer[pdfEngine]
	initGroup singleflight.Group
}

// maxExpansion bounds decompressed content relative to the upload limit
const maxExpansion = 10

var errTooLargeExpanded = errors.New("document too large after decompression")

// NewExtractor builds an extractor for uploads of at most maxUploadBytes.
// Decompressed content may grow to maxExpansion times that.
func NewExtractor(pdfWorkers int, maxUploadBytes int64) *Extractor {
	if pdfWorkers <= 0 {
		pdfWorkers = 1
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Extractor{
		pdfWorkers:  pdfWorkers,
		maxExpanded: maxUploadBytes * maxExpansion,
		startEngine: startPDFEngine,
	}
}

// Extract returns the text of data decoded as kind. The result is never
// blank: documents without text fail with ErrEmptyExtraction.
func (x *Extractor) Extract(ctx context.Context, kind model.FileKind, data []byte) (string, error) {
	start := time.Now()

	if kind != model.KindPDF && kind != model.KindDOCX {
		return "", ErrUnsupportedType
	}
	if err := checkContentType(kind, data); err != nil {
		return "", err
	}

	var (
		text  string
		pages int
		err   error
	)
	switch kind {
	case model.KindPDF:
		var engine *pdfEngine
		engine, err = x.pdfEngine(ctx)
		if err != nil {
			return "", err
		}
		text, pages, err = engine.Extract(ctx, data)
	case model.KindDOCX:
		text, err = extractDOCX(data, x.maxExpanded)
	}
	if err == nil && int64(len(text)) > x.maxExpanded {
		err = &DecodeError{Detail: errTooLargeExpanded.Error(), Err: errTooLargeExpanded}
	}
	if err != nil {
		logger.Warn(ctx, "text extraction failed", "kind", kind, "bytes", len(data), "error", err)
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyExtraction
	}

	logger.Info(ctx, "text extracted",
		"kind", kind,
		"bytes", len(data),
		"pages", pages,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// EngineStarted reports whether the PDF engine has been initialized
func (x *Extractor) EngineStarted() bool {
	return x.engine.Load() != nil
}

// Close stops the PDF engine if it was started
func (x *Extractor) Close() {
	if e := x.engine.Swap(nil); e != nil {
		e.Close()
	}
}

func (x *Extractor) pdfEngine(ctx context.Context) (*pdfEngine, error) {
	if e := x.engine.Load(); e != nil {
		return e, nil
	}

	v, err, _ := x.initGroup.Do("pdf-engine", func() (any, error) {
		if e := x.engine.Load(); e != nil {
			return e, nil
		}
		e, err := x.startEngine(x.pdfWorkers)
		if err != nil {
			return nil, err
		}
		x.engine.Store(e)
		logger.Info(ctx, "pdf engine started", "workers", x.pdfWorkers)
		return e, nil
	})
	if err != nil {
		logger.Error(ctx, "pdf engine start failed", "error", err)
		return nil, &DecodeError{Detail: "pdf engine unavailable: " + err.Error(), Err: err}
	}
	return v.(*pdfEngine), nil
}

// checkContentType rejects content that is positively identified as a
// different format than the one it was accepted as. Unknown content is
// left to the decoder.
func checkContentType(kind model.FileKind, data []byte) error {
	// encrypted DOCX files are OLE containers, the DOCX decoder reports them
	if kind == model.KindDOCX && isOLEContainer(data) {
		return nil
	}

	detected, err := filetype.Match(data)
	if err != nil || detected == types.Unknown {
		return nil
	}

	switch detected.Extension {
	case "pdf":
		if kind == model.KindPDF {
			return nil
		}
	case "docx", "zip":
		if kind == model.KindDOCX {
			return nil
		}
	}

	return &DecodeError{
		Detail: fmt.Sprintf("file content does not match declared type %s (detected %s)", kind, detected.Extension),
	}
}
