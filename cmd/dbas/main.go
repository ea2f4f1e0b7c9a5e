package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/config"
	dbRedis "github.com/somunicate/dbas/internal/db/redis"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	logpkg "github.com/somunicate/dbas/internal/logger"
	"github.com/somunicate/dbas/internal/metrics"
	"github.com/somunicate/dbas/internal/repository/matchcache"
	referencerepo "github.com/somunicate/dbas/internal/repository/reference"
	chiTransport "github.com/somunicate/dbas/internal/transport/chi"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
	referenceuc "github.com/somunicate/dbas/internal/usecase/reference"
	"github.com/somunicate/dbas/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
		Version:  version.String(),
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting dbas API server",
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("ratings", cfg.Reference.RatingsPath),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterMatchMetrics()

	ctx := context.Background()

	// Reference data must load before the server accepts traffic.
	source := referencerepo.NewFileSource(sourceOptions(cfg.Reference))
	reference := referenceuc.New(source, logger)
	if _, err := reference.Load(ctx); err != nil {
		logger.Fatal("Failed to load reference data", zap.Error(err))
	}

	var matcher chiTransport.Matcher = matchuc.New(reference, logger)

	// Optional result cache
	var cachePinger healthuc.CachePinger
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Storage.Addrs,
			Password:   cfg.Storage.Password,
			ClientName: "dbas-" + env,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Storage.Addrs))

		cache := matchcache.New(
			matcher, reference, store,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			cfg.Storage.KeyPrefix, metrics.MatchCacheTotal, logger,
		)
		reference.OnReload(cache.PurgeOnReload)
		matcher = cache
		cachePinger = store
	}

	healthSvc := healthuc.New(reference, cachePinger)

	server := chiTransport.NewServer(matcher, reference, healthSvc, chiTransport.Options{
		AudioDir:      cfg.Reference.AudioDir,
		DefaultTopN:   cfg.Search.DefaultTopN,
		DefaultMetric: metric.Metric(cfg.Search.DefaultMetric),
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// sourceOptions maps the reference config section onto file source options.
func sourceOptions(rc config.ReferenceConfig) referencerepo.Options {
	opts := referencerepo.Options{
		RatingsPath:          rc.RatingsPath,
		CorrelationsPath:     rc.CorrelationsPath,
		CorrelationDelimiter: []rune(rc.CorrelationDelimiter)[0],
		GroupsPath:           rc.GroupsPath,
		ScoresPath:           rc.ScoresPath,
		Scores: referencerepo.ScoreFormat{
			Layout:            rc.Scores.Layout,
			Scale:             rc.Scores.Scale,
			IDColumn:          rc.Scores.IDColumn,
			FamiliarityOffset: rc.Scores.FamiliarityOffset,
		},
		IDColumn: rc.IDColumn,
	}
	for _, d := range rc.Dimensions {
		opts.Dimensions = append(opts.Dimensions, dimension.Dimension(d))
	}
	if len(rc.DimensionRange) == 2 {
		opts.DimensionFrom, opts.DimensionTo = rc.DimensionRange[0], rc.DimensionRange[1]
	}
	return opts
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ctx := logpkg.ContextWithLogger(r.Context(), logger)
			ctx = logpkg.WithFields(ctx, zap.String("request_id", requestID))
			reqLogger := logpkg.FromContext(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
