package service

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/AnTengye/legalanalyzer/model"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/google/uuid"
)

const (
	emptyInputMessage     = "Please enter some text from a legal document to analyze."
	analysisFailurePrefix = "Failed to analyze document. "
	internalErrorDetail   = "internal error"
)

// TextExtractor decodes an accepted upload into plain text
type TextExtractor interface {
	Extract(ctx context.Context, kind model.FileKind, data []byte) (string, error)
}

// DocumentAnalyzer runs one analysis over document text
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, documentText string) (*model.AnalysisResult, error)
}

// Session holds the document text and analysis state of one user.
//
// Every transition happens under mu, so readers never see a half-applied
// state. At most one upload and one analysis run are active at a time.
type Session struct {
	id        string
	analyzer  DocumentAnalyzer
	extractor TextExtractor
	maxUpload int64

	mu          sync.Mutex
	text        string
	uploading   bool
	uploadError string
	state       model.RunState
	stale       bool
	done        chan struct{}
	updatedAt   time.Time
}

func NewSession(id string, analyzer DocumentAnalyzer, extractor TextExtractor, maxUploadBytes int64) *Session {
	return &Session{
		id:        id,
		analyzer:  analyzer,
		extractor: extractor,
		maxUpload: maxUploadBytes,
		state:     model.Idle(),
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// SetText replaces the document text. The run state is left alone; a
// shown result is marked stale instead.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return ErrBusy
	}
	s.replaceTextLocked(text)
	return nil
}

// LoadSample replaces the document text with the built-in sample
func (s *Session) LoadSample() error {
	return s.SetText(SampleDocument)
}

// Ingest validates and extracts an uploaded file into the document text.
// Failures are recorded as the upload error and also returned. The run
// state is never touched.
func (s *Session) Ingest(ctx context.Context, file model.UploadedFile) error {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.uploading = true
	s.uploadError = ""
	s.replaceTextLocked("")
	s.mu.Unlock()

	var (
		text string
		err  error
	)
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.uploading = false
		if err != nil {
			s.uploadError = UploadMessage(err)
		} else {
			s.replaceTextLocked(text)
		}
		s.updatedAt = time.Now()
	}()

	ctx = logger.WithSession(ctx, s.id)

	var kind model.FileKind
	kind, err = ValidateUpload(file, s.maxUpload)
	if err != nil {
		logger.Warn(ctx, "upload rejected", "file", file.Name, "size", file.Size, "mime", file.MIMEType, "error", err)
		return err
	}

	text, err = s.extractor.Extract(ctx, kind, file.Content)
	if err != nil {
		return err
	}
	logger.Info(ctx, "document ingested", "file", file.Name, "kind", kind, "chars", len(text))
	return nil
}

// Analyze starts an analysis run over the current text and returns a
// channel closed when the run reaches a terminal state. Blank text fails
// immediately without entering loading.
func (s *Session) Analyze(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state.Status == model.RunLoading:
		return nil, ErrRunInProgress
	case s.uploading:
		return nil, ErrBusy
	}

	done := make(chan struct{})
	now := time.Now()

	if strings.TrimSpace(s.text) == "" {
		s.state = model.Failed("", emptyInputMessage, now)
		s.stale = false
		s.updatedAt = now
		close(done)
		return done, nil
	}

	runID := uuid.New().String()
	s.state = model.Loading(runID, now)
	s.stale = false
	s.done = done
	s.updatedAt = now

	runCtx := logger.WithRun(logger.WithSession(context.WithoutCancel(ctx), s.id), runID)
	go s.run(runCtx, runID, s.text, now, done)

	return done, nil
}

func (s *Session) run(ctx context.Context, runID, text string, startedAt time.Time, done chan struct{}) {
	defer close(done)

	logger.Info(ctx, "analysis started", "chars", len(text))
	result, err := s.analyze(ctx, text)
	finished := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = model.Failed(runID, analysisFailurePrefix+analysisDetail(err), finished)
		logger.Warn(ctx, "analysis failed", "error", err, "elapsed_ms", finished.Sub(startedAt).Milliseconds())
	} else {
		s.state = model.Succeeded(runID, result, startedAt, finished)
		logger.Info(ctx, "analysis succeeded", "elapsed_ms", finished.Sub(startedAt).Milliseconds())
	}
	s.done = nil
	s.updatedAt = finished
}

// analyze calls the analyzer and turns a panic into a failed run, so the
// session never stays loading
func (s *Session) analyze(ctx context.Context, text string) (result *model.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "analysis panicked", "error", r, "stack", string(debug.Stack()))
			result, err = nil, &AnalysisError{Detail: internalErrorDetail}
		}
	}()
	return s.analyzer.Analyze(ctx, text)
}

// Wait blocks until the in-flight run finishes or ctx ends
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.SessionSnapshot{
		ID:          s.id,
		Text:        s.text,
		Uploading:   s.uploading,
		UploadError: s.uploadError,
		State:       s.state,
		Stale:       s.stale,
		UpdatedAt:   s.updatedAt,
	}
}

// must hold mu
func (s *Session) busyLocked() bool {
	return s.uploading || s.state.Status == model.RunLoading
}

// must hold mu
func (s *Session) replaceTextLocked(text string) {
	if text != s.text && s.state.Status == model.RunSucceeded {
		s.stale = true
	}
	s.text = text
	s.updatedAt = time.Now()
}

func analysisDetail(err error) string {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Detail
	}
	return err.Error()
}
