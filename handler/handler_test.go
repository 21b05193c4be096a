package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/AnTengye/legalanalyzer/config"
	"github.com/AnTengye/legalanalyzer/middleware"
	"github.com/AnTengye/legalanalyzer/model"
	"github.com/AnTengye/legalanalyzer/service"
	"github.com/gin-gonic/gin"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAnalyzer blocks until release is closed, when set
type stubAnalyzer struct {
	result  *model.AnalysisResult
	err     error
	release chan struct{}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &model.AnalysisResult{
		Summary: "A SaaS agreement.",
		Clauses: []model.Clause{{Type: "Governing Law", Text: "State of Delaware"}},
		Risks:   []model.Risk{},
	}, nil
}

type testServer struct {
	router *gin.Engine
	store  *service.SessionStore
}

func newTestServer(t *testing.T, analyzer service.DocumentAnalyzer, maxUploadBytes int64) *testServer {
	t.Helper()

	extractor := service.NewExtractor(1, service.DefaultMaxUploadBytes)
	t.Cleanup(extractor.Close)

	store := service.NewSessionStore(config.SessionConfig{TTLMinutes: 10, MaxSessions: 5}, maxUploadBytes, analyzer, extractor)

	sessions := NewSessionHandler(store, testSecret)
	documents := NewDocumentHandler(maxUploadBytes)
	analysis := NewAnalysisHandler()

	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/health", sessions.Health)

	api := router.Group("/api")
	api.GET("/sample", documents.Sample)
	api.POST("/sessions", sessions.Create)

	authed := api.Group("/session")
	authed.Use(middleware.SessionAuth(store, testSecret))
	authed.GET("", sessions.Get)
	authed.DELETE("", sessions.Delete)
	authed.PUT("/document", documents.SetText)
	authed.POST("/document/sample", documents.LoadSample)
	authed.POST("/document/upload", documents.Upload)
	authed.POST("/analysis", analysis.Start)
	authed.GET("/analysis", analysis.Get)

	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, "POST", "/api/sessions", "", nil, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp CreateSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return resp.Token
}

func (s *testServer) setText(t *testing.T, token, text string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	return s.do(t, "PUT", "/api/session/document", token, bytes.NewReader(body), "application/json")
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) model.SessionSnapshot {
	t.Helper()
	var snap model.SessionSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to parse snapshot: %v", err)
	}
	return snap
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	msg, _ := resp["error"].(string)
	return msg
}

// multipartBody builds a request body with a single "file" part
func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	part.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func docxBytes(t *testing.T, paragraph string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("Failed to create docx part: %v", err)
	}
	w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>` + paragraph + `</w:t></w:r></w:p></w:body></w:document>`))
	zw.Close()
	return buf.Bytes()
}

func waitForTerminal(t *testing.T, s *testServer, token string) AnalysisResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := s.do(t, "GET", "/api/session/analysis?wait=1s", token, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp AnalysisResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.State.Terminal() {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for terminal state, last %s", resp.State.Status)
		}
	}
}
