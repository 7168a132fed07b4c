package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/activities"
	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/harry-lons/runsum-be-nonorg/pkg/middleware"
)

// TokenEnsurer returns the athlete with an access token usable now.
type TokenEnsurer interface {
	Ensure(ctx context.Context, athleteID int64) (*models.Athlete, error)
}

// ActivityFetcher pages through the upstream activity list.
type ActivityFetcher interface {
	FetchAll(ctx context.Context, accessToken string, w activities.Window, startPage int) ([]activities.Activity, error)
}

// ActivitiesHandler proxies activity queries for the session's athlete.
type ActivitiesHandler struct {
	athletes *athletes.Service
	tokens   TokenEnsurer
	fetcher  ActivityFetcher
}

func NewActivitiesHandler(a *athletes.Service, t TokenEnsurer, f ActivityFetcher) *ActivitiesHandler {
	return &ActivitiesHandler{athletes: a, tokens: t, fetcher: f}
}

// Register mounts GET /activities; rg must carry session verification.
func (h *ActivitiesHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/activities", h.List)
}

// List validates the window before any store or upstream call, then
// refreshes the token if needed and returns every activity in the window.
func (h *ActivitiesHandler) List(c *gin.Context) {
	w, page, err := activities.ParseWindow(c.Query("after"), c.Query("before"), c.Query("page"))
	if err != nil {
		writeError(c, "activities params", err)
		return
	}
	id, ok := middleware.AthleteID(c)
	if !ok {
		writeError(c, "activities", apperrors.ErrSession)
		return
	}
	ctx := c.Request.Context()

	if err := h.athletes.LogQuery(ctx, id, w.After, w.Before); err != nil {
		// audit only
		logger.Warnf("query log for athlete %d: %v", id, err)
	}

	a, err := h.tokens.Ensure(ctx, id)
	if err != nil {
		writeError(c, "activities token", err)
		return
	}
	items, err := h.fetcher.FetchAll(ctx, a.AccessToken, w, page)
	if err != nil {
		writeError(c, "activities fetch", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": items, "count": len(items), "success": true})
}
