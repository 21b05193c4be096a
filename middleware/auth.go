package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/AnTengye/legalanalyzer/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionKey   = "session"
	sessionIDKey = "session_id"
	tokenIssuer  = "legalanalyzer"
)

// SessionClaims are the JWT claims of a session token. The subject is the
// session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionLookup finds a live session and extends its lifetime
type SessionLookup interface {
	Touch(id string) (*service.Session, error)
}

// GenerateToken issues a token for sessionID valid for ttl
func GenerateToken(sessionID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken validates tokenString and returns the session ID it carries
func ParseToken(tokenString, secret string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no session")
	}
	return claims.Subject, nil
}

// SessionAuth resolves the bearer token to a live session and stores it in
// the gin context and the request's logger context
func SessionAuth(sessions SessionLookup, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		sessionID, err := ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		sess, err := sessions.Touch(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found or expired"})
			return
		}

		c.Set(sessionKey, sess)
		c.Set(sessionIDKey, sessionID)
		c.Request = c.Request.WithContext(logger.WithSession(c.Request.Context(), sessionID))

		c.Next()
	}
}

// GetSession gets the authenticated session from context
func GetSession(c *gin.Context) *service.Session {
	if sess, exists := c.Get(sessionKey); exists {
		return sess.(*service.Session)
	}
	return nil
}

// GetSessionID gets the authenticated session ID from context
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
