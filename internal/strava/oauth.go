package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
	"github.com/harry-lons/runsum-be-nonorg/pkg/metrics"
	"golang.org/x/oauth2"
)

// OAuth performs the authorization-code and refresh-token grants against
// the Strava token endpoint. Client credentials are sent in the form body.
type OAuth struct {
	conf       oauth2.Config
	httpClient *http.Client
}

func NewOAuth(cfg config.StravaConfig, httpClient *http.Client) *OAuth {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OAuth{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.OAuthURL + "/authorize",
				TokenURL:  cfg.OAuthURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"read,activity:read_all"},
		},
		httpClient: httpClient,
	}
}

// Exchange trades a one-time authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (models.TokenSet, error) {
	tok, err := o.conf.Exchange(o.withClient(ctx), code)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("token_exchange", "error").Inc()
		return models.TokenSet{}, apperrors.Wrapf(apperrors.ErrAuthExchange, err, "exchange code")
	}
	metrics.UpstreamRequests.WithLabelValues("token_exchange", "ok").Inc()
	set, err := tokenSet(tok, "")
	if err != nil {
		return models.TokenSet{}, apperrors.Wrapf(apperrors.ErrAuthExchange, err, "exchange code")
	}
	return set, nil
}

// Refresh mints a new access token. When the response carries no refresh
// token the current one is kept.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (models.TokenSet, error) {
	src := o.conf.TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("token_refresh", "error").Inc()
		return models.TokenSet{}, apperrors.Wrapf(apperrors.ErrTokenRefresh, err, "refresh grant")
	}
	metrics.UpstreamRequests.WithLabelValues("token_refresh", "ok").Inc()
	set, err := tokenSet(tok, refreshToken)
	if err != nil {
		return models.TokenSet{}, apperrors.Wrapf(apperrors.ErrTokenRefresh, err, "refresh grant")
	}
	return set, nil
}

func (o *OAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

func tokenSet(tok *oauth2.Token, fallbackRefresh string) (models.TokenSet, error) {
	exp, err := expiresAt(tok)
	if err != nil {
		return models.TokenSet{}, err
	}
	rt := tok.RefreshToken
	if rt == "" {
		rt = fallbackRefresh
	}
	return models.TokenSet{AccessToken: tok.AccessToken, RefreshToken: rt, ExpiresAt: exp}, nil
}

// expiresAt prefers the absolute expires_at Strava returns over expires_in.
func expiresAt(tok *oauth2.Token) (time.Time, error) {
	switch v := tok.Extra("expires_at").(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("token response has no expiry")
}
