package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/AnTengye/legalanalyzer/model"
)

func TestSample(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)

	w := s.do(t, "GET", "/api/sample", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp["text"], "GOVERNING LAW") {
		t.Error("Expected sample agreement text")
	}
}

func TestSetText(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)
	token := s.createSession(t)

	w := s.setText(t, token, "Either party may terminate.")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); snap.Text != "Either party may terminate." {
		t.Errorf("Unexpected text %q", snap.Text)
	}

	// clearing the text is allowed
	w = s.setText(t, token, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for empty text, got %d", w.Code)
	}
}

func TestSetTextInvalidRequest(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)
	token := s.createSession(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "text=hello"},
		{"missing text", `{"content": "hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, "PUT", "/api/session/document", token, strings.NewReader(tt.body), "application/json")
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestLoadSample(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)
	token := s.createSession(t)

	w := s.do(t, "POST", "/api/session/document/sample", token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if snap := decodeSnapshot(t, w); !strings.Contains(snap.Text, "SOFTWARE-AS-A-SERVICE AGREEMENT") {
		t.Error("Expected sample text to be loaded")
	}
}

func TestUploadDOCX(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)
	token := s.createSession(t)

	body, contentType := multipartBody(t, "Agreement.DOCX", "application/octet-stream", docxBytes(t, "This Agreement is governed by Delaware law."))
	w := s.do(t, "POST", "/api/session/document/upload", token, body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	snap := decodeSnapshot(t, w)
	if !strings.Contains(snap.Text, "governed by Delaware law") {
		t.Errorf("Expected extracted text, got %q", snap.Text)
	}
	if snap.Uploading || snap.UploadError != "" {
		t.Errorf("Expected clean upload state, got %+v", snap)
	}
	if snap.State.Status != model.RunIdle {
		t.Errorf("Expected upload not to touch run state, got %s", snap.State.Status)
	}
}

func TestUploadErrors(t *testing.T) {
	const limit = 1024

	tests := []struct {
		name           string
		filename       string
		contentType    string
		content        []byte
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "unsupported type",
			filename:       "notes.txt",
			contentType:    "text/plain",
			content:        []byte("hello"),
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedError:  "Unsupported file type. Please upload a PDF or DOCX file.",
		},
		{
			name:           "too large",
			filename:       "big.pdf",
			contentType:    model.MIMEPDF,
			content:        bytes.Repeat([]byte("a"), limit+1),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "File is too large. Maximum size is 0MB.",
		},
		{
			name:           "corrupt docx",
			filename:       "broken.docx",
			contentType:    model.MIMEDOCX,
			content:        []byte("definitely not a zip package"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "Failed to read document",
		},
		{
			name:           "empty docx",
			filename:       "empty.docx",
			contentType:    model.MIMEDOCX,
			content:        nil,
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &stubAnalyzer{}, limit)
			token := s.createSession(t)
			s.setText(t, token, "previous text")

			body, contentType := multipartBody(t, tt.filename, tt.contentType, tt.content)
			w := s.do(t, "POST", "/api/session/document/upload", token, body, contentType)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if msg := decodeError(t, w); !strings.HasPrefix(msg, tt.expectedError) {
				t.Errorf("Expected error %q, got %q", tt.expectedError, msg)
			}

			snap := decodeSnapshot(t, s.do(t, "GET", "/api/session", token, nil, ""))
			if snap.Uploading {
				t.Error("Expected uploading to be cleared")
			}
			if snap.Text != "" {
				t.Errorf("Expected text to be cleared by the failed upload, got %q", snap.Text)
			}
			if snap.UploadError == "" {
				t.Error("Expected upload error on the session")
			}
		})
	}
}

func TestUploadBodyOverLimit(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 1024)
	token := s.createSession(t)

	body, contentType := multipartBody(t, "huge.pdf", model.MIMEPDF, bytes.Repeat([]byte("a"), 2<<20))
	w := s.do(t, "POST", "/api/session/document/upload", token, body, contentType)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{}, 0)
	token := s.createSession(t)

	w := s.do(t, "POST", "/api/session/document/upload", token, strings.NewReader(""), "multipart/form-data; boundary=x")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
