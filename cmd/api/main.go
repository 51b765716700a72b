package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/prompt-board/backend/internal/auth"
	"github.com/emilythestrangee/prompt-board/backend/internal/cache"
	"github.com/emilythestrangee/prompt-board/backend/internal/config"
	"github.com/emilythestrangee/prompt-board/backend/internal/database"
	"github.com/emilythestrangee/prompt-board/backend/internal/events"
	"github.com/emilythestrangee/prompt-board/backend/internal/handlers"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/server"
	"github.com/emilythestrangee/prompt-board/backend/internal/storage"
	"github.com/emilythestrangee/prompt-board/backend/internal/telemetry"
	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("unable to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "shutting down due to error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	db, err := database.New(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.EnsureAdmin(ctx, db.GetDB(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaVoteTopic)
		defer kafka.Close()
		publisher = kafka
		logger.Info("publishing vote events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaVoteTopic)
	}

	var catalogCache cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redis := cache.NewRedis(ctx, cfg.RedisAddr, "promptboard:")
		defer redis.Close()
		catalogCache = redis
	}

	var images storage.ImageStore = storage.Disabled{}
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3(storage.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			PublicURL: cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return err
		}
		images = s3
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	h := handlers.NewHandler(handlers.Deps{
		DB:     db.GetDB(),
		Tokens: tokens,
		Google: auth.NewGoogleVerifier(cfg.GoogleTokenInfoURL),
		Votes:  votes.NewEngine(db.GetDB(), publisher),
		Cache:  catalogCache,
		Images: images,
	})
	authn := middleware.NewAuth(tokens, middleware.GormUserLoader(db.GetDB()), middleware.GormAdminLoader(db.GetDB()))

	srv := server.New(db, h, authn, server.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}).HTTPServer(cfg.Port)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-grpCtx.Done()
		logger.Info("shutting down server")
		c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(c)
	})

	return grp.Wait()
}
