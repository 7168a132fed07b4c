package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/harry-lons/runsum-be-nonorg/internal/tokens"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/harry-lons/runsum-be-nonorg/pkg/middleware"
)

// LoginRequest carries the one-time authorization code from the OAuth redirect.
type LoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// CodeExchanger trades an authorization code for upstream tokens.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (models.TokenSet, error)
}

// ProfileFetcher loads the authenticated athlete's upstream profile.
type ProfileFetcher interface {
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cookies  config.CookieConfig
	athletes *athletes.Service
	oauth    CodeExchanger
	profiles ProfileFetcher
	issuer   *tokens.Issuer
}

func NewAuthHandler(cfg *config.Config, a *athletes.Service, o CodeExchanger, p ProfileFetcher, iss *tokens.Issuer) *AuthHandler {
	return &AuthHandler{cookies: cookieDefaults(cfg.Cookie), athletes: a, oauth: o, profiles: p, issuer: iss}
}

// Register routes under /auth. private must carry session verification.
func (h *AuthHandler) Register(public, private *gin.RouterGroup) {
	a := public.Group("/auth")
	a.POST("/login", h.Login)
	// no session or CSRF check: logout only clears cookies and must work without them
	a.POST("/logout", h.Logout)
	private.Group("/auth").GET("/whoami", h.WhoAmI)
}

// Login exchanges the code, records the athlete and issues the session cookies.
// No cookie is set unless every step succeeds.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	ctx := c.Request.Context()

	logger.Debugf("login: received code length=%d", len(req.Code))
	set, err := h.oauth.Exchange(ctx, req.Code)
	if err != nil {
		writeError(c, "login exchange", err)
		return
	}
	profile, err := h.profiles.GetAthlete(ctx, set.AccessToken)
	if err != nil {
		writeError(c, "login profile", apperrors.Wrapf(apperrors.ErrUpstreamFetch, err, "get athlete"))
		return
	}
	a, err := h.athletes.RecordLogin(ctx, athletes.Profile{
		ID:        profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}, set)
	if err != nil {
		writeError(c, "login upsert", err)
		return
	}
	raw, claims, err := h.issuer.Issue(a.ID, a.FirstName)
	if err != nil {
		writeError(c, "login issue session", err)
		return
	}

	setSessionCookies(c, h.cookies, raw, claims.CSRF, h.issuer.TTL())
	logger.Infof("athlete %d logged in", a.ID)
	c.JSON(http.StatusOK, gin.H{"first_name": a.FirstName, "id": a.ID, "success": true})
}

// Logout clears both cookies. It needs no valid session, so repeating it is harmless.
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookies(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"msg": "logout successful"})
}

// WhoAmI returns the stored profile of the session's athlete.
func (h *AuthHandler) WhoAmI(c *gin.Context) {
	id, ok := middleware.AthleteID(c)
	if !ok {
		writeError(c, "whoami", apperrors.ErrSession)
		return
	}
	a, err := h.athletes.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "whoami", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"first_name": a.FirstName, "last_name": a.LastName, "id": a.ID, "success": true})
}

func cookieDefaults(cfg config.CookieConfig) config.CookieConfig {
	if cfg.SessionName == "" {
		cfg.SessionName = "access_token_cookie"
	}
	if cfg.CSRFName == "" {
		cfg.CSRFName = "csrf_access_token"
	}
	if cfg.CSRFHeader == "" {
		cfg.CSRFHeader = "X-CSRF-TOKEN"
	}
	return cfg
}
