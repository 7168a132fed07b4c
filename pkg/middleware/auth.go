package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/tokens"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
)

const (
	// ClaimsKey holds the verified *tokens.Claims in the gin context.
	ClaimsKey = "session"
	// AthleteIDKey holds the session's athlete id (int64).
	AthleteIDKey = "athlete_id"
)

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(raw string) (*tokens.Claims, error)
}

// SessionAuth verifies the session cookie. State-changing methods must also
// echo the CSRF value embedded in the credential via csrfHeader.
func SessionAuth(ver Verifier, cookieName, csrfHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		claims, err := ver.Verify(raw)
		if err != nil {
			logger.Debugf("session rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		if stateChanging(c.Request.Method) {
			got := c.GetHeader(csrfHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(claims.CSRF)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "CSRF token mismatch"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set(AthleteIDKey, claims.AthleteID)
		c.Next()
	}
}

// AthleteID returns the athlete id set by SessionAuth.
func AthleteID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(AthleteIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
