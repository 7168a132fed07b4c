package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
)

// mapError converts a service error into a status and a client-safe message.
func mapError(err error) (int, string) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, apperrors.ErrNoRefreshToken):
		return http.StatusUnauthorized, apperrors.NoRefreshTokenMessage
	case errors.Is(err, apperrors.ErrTokenRefresh):
		return http.StatusUnauthorized, "failed to refresh upstream token"
	case errors.Is(err, apperrors.ErrAuthExchange):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, apperrors.ErrSession):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "athlete not found"
	case errors.Is(err, apperrors.ErrUpstreamFetch):
		return http.StatusInternalServerError, "failed to fetch from upstream"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError logs the full error and responds with {"error": msg}.
func writeError(c *gin.Context, op string, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s: %v", op, err)
	} else {
		logger.Warnf("%s: %v", op, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
