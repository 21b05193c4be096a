package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/AnTengye/legalanalyzer/middleware"
	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/AnTengye/legalanalyzer/service"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	store  *service.SessionStore
	secret string
}

func NewSessionHandler(store *service.SessionStore, secret string) *SessionHandler {
	return &SessionHandler{store: store, secret: secret}
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Create starts a new empty session and returns its bearer token
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.store.Create()
	if errors.Is(err, service.ErrTooManySessions) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many active sessions. Please try again later."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(sess.ID(), h.secret, h.store.TTL())
	if err != nil {
		h.store.Delete(sess.ID())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info(logger.WithSession(c.Request.Context(), sess.ID()), "session created")

	c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: sess.ID(),
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Get returns the current session snapshot
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetSession(c).Snapshot())
}

// Delete ends the session. A run still in flight finishes on its own and
// its result is dropped with the session.
func (h *SessionHandler) Delete(c *gin.Context) {
	h.store.Delete(middleware.GetSessionID(c))
	logger.Info(c.Request.Context(), "session deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// Health reports liveness and the number of live sessions
func (h *SessionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"sessions":  h.store.Count(),
	})
}
