package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/tokens"
	"github.com/harry-lons/runsum-be-nonorg/pkg/middleware"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Config   *config.Config
	Athletes *athletes.Service
	OAuth    CodeExchanger
	Profiles ProfileFetcher
	Tokens   TokenEnsurer
	Fetcher  ActivityFetcher
	Issuer   *tokens.Issuer
	// RateLimit, when set, runs after session verification on protected
	// routes and before the handler on public ones.
	RateLimit gin.HandlerFunc
	Checks    map[string]Pinger
}

// Mount registers the /api routes on r.
func Mount(r gin.IRouter, d Deps) {
	cookies := cookieDefaults(d.Config.Cookie)

	api := r.Group("/api")
	RegisterHealth(api, d.Checks)

	public := api.Group("")
	private := api.Group("", middleware.SessionAuth(d.Issuer, cookies.SessionName, cookies.CSRFHeader))
	if d.RateLimit != nil {
		public.Use(d.RateLimit)
		private.Use(d.RateLimit)
	}

	NewAuthHandler(d.Config, d.Athletes, d.OAuth, d.Profiles, d.Issuer).Register(public, private)
	NewActivitiesHandler(d.Athletes, d.Tokens, d.Fetcher).Register(private)
}
