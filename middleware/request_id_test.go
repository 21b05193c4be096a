package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/gin-gonic/gin"
)

func newRequestIDRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		requestID := GetRequestID(c)
		if v, _ := c.Request.Context().Value(logger.RequestIDKey).(string); v != requestID {
			t.Errorf("Expected request context to carry %q, got %q", requestID, v)
		}
		c.JSON(http.StatusOK, gin.H{"request_id": requestID})
	})
	return router
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newRequestIDRouter(t)

	// Test auto-generated request ID
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	responseID := w.Header().Get("X-Request-ID")
	if len(responseID) != 36 {
		t.Errorf("Expected generated UUID request ID, got '%s'", responseID)
	}
}

func TestRequestIDMiddlewareIncomingIDs(t *testing.T) {
	router := newRequestIDRouter(t)

	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{"plain token", "existing-request-id-123", true},
		{"dotted token", "trace.abc_01", true},
		{"log injection", "abc\" level=ERROR msg=forged", false},
		{"too long", string(make([]byte, 65)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("X-Request-ID", tt.incoming)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			responseID := w.Header().Get("X-Request-ID")
			if tt.reused && responseID != tt.incoming {
				t.Errorf("Expected request ID '%s', got '%s'", tt.incoming, responseID)
			}
			if !tt.reused && (responseID == tt.incoming || responseID == "") {
				t.Errorf("Expected a generated request ID, got '%s'", responseID)
			}
		})
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	requestID := GetRequestID(c)
	if requestID != "" {
		t.Errorf("Expected empty string, got '%s'", requestID)
	}
}
