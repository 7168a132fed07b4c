package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/harry-lons/runsum-be-nonorg/handlers"
	"github.com/harry-lons/runsum-be-nonorg/internal/activities"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/database"
	"github.com/harry-lons/runsum-be-nonorg/internal/refresh"
	"github.com/harry-lons/runsum-be-nonorg/internal/strava"
	"github.com/harry-lons/runsum-be-nonorg/internal/tokens"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/harry-lons/runsum-be-nonorg/pkg/metrics"
	"github.com/harry-lons/runsum-be-nonorg/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	figure.NewFigure("runsum", "", true).Print()

	// LOG_LEVEL is read again from config below; this covers config errors
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)
	logger.Infof("config loaded: postgres=%v mongo=%v redis=%v secure_cookies=%v",
		cfg.Database.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Cookie.Secure)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := athletes.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open athlete store: %v", err)
	}
	defer backend.Close(context.Background())
	logger.Infof("athlete store: %s", backend.Name)

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Warnf("redis unavailable, continuing without distributed lock: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	client := strava.NewClient(cfg.Strava)
	oauth := strava.NewOAuth(cfg.Strava, client.HTTPClient())
	policy := refresh.NewPolicy(backend.Repo, oauth, refreshLocker(cfg, backend, rdb))
	issuer := tokens.NewIssuer(cfg)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	checks := map[string]handlers.Pinger{"store": backend.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	handlers.Mount(r, handlers.Deps{
		Config:    cfg,
		Athletes:  athletes.NewService(backend.Repo),
		OAuth:     oauth,
		Profiles:  client,
		Tokens:    policy,
		Fetcher:   activities.NewFetcher(client, cfg.Strava.PageSize),
		Issuer:    issuer,
		RateLimit: rateLimiter(cfg, rdb),
		Checks:    checks,
	})
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", cfg.Cookie.CSRFHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting runsum API on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// refreshLocker picks the widest exclusion available: Redis across instances,
// then a Postgres advisory lock, then in-process only.
func refreshLocker(cfg *config.Config, b *athletes.Backend, rdb *redis.Client) refresh.Locker {
	switch {
	case rdb != nil:
		logger.Infof("token refresh lock: redis")
		return refresh.NewRedisLocker(rdb, b.Repo, "", cfg.Redis.RefreshLockTTL)
	case b.SQL != nil:
		logger.Infof("token refresh lock: postgres advisory")
		return refresh.NewPostgresLocker(b.SQL)
	}
	logger.Infof("token refresh lock: in-process")
	return refresh.NewLocalLocker(b.Repo)
}

func rateLimiter(cfg *config.Config, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.UseRedis && rdb != nil {
		logger.Infof("rate limiter: redis")
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
	}
	logger.Infof("rate limiter: memory")
	return middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}
