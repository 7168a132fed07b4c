package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Strava    StravaConfig
	Database  DatabaseConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StravaConfig holds the upstream API endpoints and client credentials.
type StravaConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	OAuthURL     string
	Timeout      time.Duration
	PageSize     int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	RefreshLockTTL time.Duration
}

type JWTConfig struct {
	Secret     string
	SessionTTL time.Duration
}

// CookieConfig drives the attributes shared by the session cookie and its CSRF pair.
type CookieConfig struct {
	Secure      bool
	Domain      string
	SessionName string
	CSRFName    string
	CSRFHeader  string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3011")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("STRAVA_API_URL", "https://www.strava.com/api/v3")
	v.SetDefault("STRAVA_OAUTH_URL", "https://www.strava.com/oauth")
	v.SetDefault("STRAVA_TIMEOUT_SECONDS", 15)
	v.SetDefault("STRAVA_PAGE_SIZE", 200)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("MONGODB_DATABASE", "runsum")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REFRESH_LOCK_TTL_SECONDS", 30)
	v.SetDefault("SESSION_TTL_DAYS", 30)
	v.SetDefault("SECURE", false)
	v.SetDefault("SESSION_COOKIE_NAME", "access_token_cookie")
	v.SetDefault("CSRF_COOKIE_NAME", "csrf_access_token")
	v.SetDefault("CSRF_HEADER_NAME", "X-CSRF-TOKEN")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Strava: StravaConfig{
			ClientID:     v.GetString("STRAVA_CLIENT_ID"),
			ClientSecret: v.GetString("STRAVA_CLIENT_SECRET"),
			APIURL:       strings.TrimRight(v.GetString("STRAVA_API_URL"), "/"),
			OAuthURL:     strings.TrimRight(v.GetString("STRAVA_OAUTH_URL"), "/"),
			Timeout:      time.Duration(v.GetInt("STRAVA_TIMEOUT_SECONDS")) * time.Second,
			PageSize:     v.GetInt("STRAVA_PAGE_SIZE"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DATABASE_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:           v.GetString("REDIS_HOST"),
			Port:           v.GetString("REDIS_PORT"),
			Password:       v.GetString("REDIS_PASSWORD"),
			DB:             0,
			RefreshLockTTL: time.Duration(v.GetInt("REFRESH_LOCK_TTL_SECONDS")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			SessionTTL: time.Duration(v.GetInt("SESSION_TTL_DAYS")) * 24 * time.Hour,
		},
		Cookie: CookieConfig{
			Secure:      v.GetBool("SECURE"),
			Domain:      v.GetString("COOKIE_DOMAIN"),
			SessionName: v.GetString("SESSION_COOKIE_NAME"),
			CSRFName:    v.GetString("CSRF_COOKIE_NAME"),
			CSRFHeader:  v.GetString("CSRF_HEADER_NAME"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("FRONTEND_URL")),
		},
	}

	if missing := cfg.missingRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func (c *Config) missingRequired() []string {
	var missing []string
	if c.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Strava.ClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if c.Strava.ClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	return missing
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}
