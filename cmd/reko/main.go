package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/config"
	"github.com/brightbasket/reko/internal/db"
	dbRedis "github.com/brightbasket/reko/internal/db/redis"
	catalogdom "github.com/brightbasket/reko/internal/domain/catalog"
	logpkg "github.com/brightbasket/reko/internal/logger"
	"github.com/brightbasket/reko/internal/metrics"
	catalogrepo "github.com/brightbasket/reko/internal/repository/catalog"
	"github.com/brightbasket/reko/internal/repository/embcache"
	"github.com/brightbasket/reko/internal/transport/clip"
	"github.com/brightbasket/reko/internal/transport/httpapi"
	openaiEnc "github.com/brightbasket/reko/internal/transport/openai"
	healthuc "github.com/brightbasket/reko/internal/usecase/health"
	indexuc "github.com/brightbasket/reko/internal/usecase/index"
	recommenduc "github.com/brightbasket/reko/internal/usecase/recommend"
	"github.com/brightbasket/reko/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting reko API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("encoder_provider", cfg.Encoder.Provider),
		zap.String("catalog_path", cfg.Catalog.Path),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()

	// Embedding cache store is optional. Without one the catalog is
	// re-encoded on every start.
	var store db.Store
	if cfg.Database.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache store")
	} else {
		logger.Info("No cache store configured, catalog will be encoded from scratch")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEncoderMetrics()
	metrics.RegisterSearchMetrics()

	// Build encoders — composition root
	textEncoder, imageEncoder, healthEncoder := buildEncoders(cfg, logger)
	logger.Info("Encoders created",
		zap.String("provider", cfg.Encoder.Provider),
		zap.Bool("image_queries", imageEncoder != nil),
	)

	// Load the catalog and build the in-memory index
	products, err := catalogrepo.NewLoader(logger).Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	builder := indexuc.NewBuilder(textEncoder, logger).
		WithBatching(cfg.Search.EncodeBatch, cfg.Search.EncodeWorkers)
	if store != nil {
		builder = builder.WithCache(embcache.New(store, cfg.Search.CacheNamespace, metrics.EmbeddingCacheTotal, logger))
	}

	snap, err := builder.Build(ctx, products)
	if err != nil {
		logger.Fatal("Failed to build catalog index", zap.Error(err))
	}
	holder := catalogdom.NewHolder(snap)
	logger.Info("Catalog index built",
		zap.Int("products", snap.Len()),
		zap.Int("dims", snap.Dims()),
	)

	// Create use case services
	recommendSvc := recommenduc.New(holder, textEncoder, imageEncoder, logger).
		WithTuning(cfg.Search.Diversity, cfg.Search.Alpha, cfg.Search.MinUnique)

	// Pass nil interface (not typed nil pointer!) if store is not configured.
	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(holder, healthEncoder, pinger)

	// Create HTTP server
	server := httpapi.NewServer(recommendSvc, healthSvc, holder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// buildEncoders assembles the text and image encoders from the config.
// The image encoder always comes from the CLIP service; with the openai
// provider it stays nil unless a CLIP base URL is configured, and image
// queries return an encoder error.
func buildEncoders(cfg config.Config, logger *zap.Logger) (
	recommenduc.TextEncoder, recommenduc.ImageEncoder, healthuc.EncoderChecker,
) {
	switch cfg.Encoder.Provider {
	case "clip":
		enc := clip.NewEncoder(&clip.Config{
			BaseURL: cfg.Encoder.CLIP.BaseURL,
			Timeout: time.Duration(cfg.Encoder.CLIP.TimeoutSec) * time.Second,
			Logger:  logger,
		})
		return enc, enc, enc
	default: // "openai", validated at config load
		enc := openaiEnc.NewEncoder(&openaiEnc.Config{
			APIKey:     cfg.Encoder.OpenAI.APIKey,
			BaseURL:    cfg.Encoder.OpenAI.BaseURL,
			Model:      cfg.Encoder.OpenAI.Model,
			Dimensions: cfg.Encoder.OpenAI.Dimensions,
			Logger:     logger,
		})
		var image recommenduc.ImageEncoder
		if cfg.Encoder.CLIP.BaseURL != "" {
			image = clip.NewEncoder(&clip.Config{
				BaseURL: cfg.Encoder.CLIP.BaseURL,
				Timeout: time.Duration(cfg.Encoder.CLIP.TimeoutSec) * time.Second,
				Logger:  logger,
			})
		}
		return enc, image, enc
	}
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
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
