package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
)

// sessionCookie builds a cookie with the attributes shared by the session
// credential and its CSRF pair. maxAge < 0 deletes the cookie.
func sessionCookie(cfg config.CookieConfig, name, value string, maxAge int, httpOnly bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Secure {
		ck.SameSite = http.SameSiteNoneMode
	}
	if maxAge > 0 {
		ck.Expires = time.Now().Add(time.Duration(maxAge) * time.Second).UTC()
	} else if maxAge < 0 {
		ck.Expires = time.Unix(0, 0).UTC()
	}
	return ck
}

func setSessionCookies(c *gin.Context, cfg config.CookieConfig, token, csrf string, ttl time.Duration) {
	maxAge := int(ttl / time.Second)
	http.SetCookie(c.Writer, sessionCookie(cfg, cfg.SessionName, token, maxAge, true))
	http.SetCookie(c.Writer, sessionCookie(cfg, cfg.CSRFName, csrf, maxAge, false))
}

func clearSessionCookies(c *gin.Context, cfg config.CookieConfig) {
	http.SetCookie(c.Writer, sessionCookie(cfg, cfg.SessionName, "", -1, true))
	http.SetCookie(c.Writer, sessionCookie(cfg, cfg.CSRFName, "", -1, false))
}
