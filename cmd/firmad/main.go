package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"firma/internal/config"
	"firma/internal/domain"
	"firma/internal/infra/cachemem"
	"firma/internal/infra/db"
	httpinfra "firma/internal/infra/http"
	"firma/internal/infra/notify"
	"firma/internal/infra/pdfstamp"
	"firma/internal/infra/ratelimit"
	"firma/internal/infra/storage"
	"firma/internal/usecase"
)

func main() {
	sweep := flag.Bool("sweep", false, "expire overdue signature requests and exit")
	flag.Parse()

	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	store, err := db.NewStore(cfg)
	if err != nil {
		logger.Error("init database", "error", err)
		os.Exit(1)
	}

	requests := db.NewRequestRepository(store.DB)
	signers := db.NewSignerRepository(store.DB)
	fields := db.NewFieldRepository(store.DB)
	auditRepo := db.NewAuditRepository(store.DB)
	audit := usecase.NewAuditTrail(auditRepo, nil)

	objects, err := newObjectStore(cfg, logger)
	if err != nil {
		logger.Error("init object store", "error", err)
		os.Exit(1)
	}

	lifecycle := &usecase.Lifecycle{
		Requests: requests,
		Signers:  signers,
		Fields:   fields,
		Audit:    audit,
		Store:    objects,
		Logger:   logger,
	}

	if *sweep {
		n, err := lifecycle.ExpireDue(context.Background())
		if err != nil {
			logger.Error("expiry sweep failed", "error", err)
			os.Exit(1)
		}
		logger.Info("expiry sweep complete", "expired", n)
		return
	}

	certifier := &pdfstamp.Certifier{
		Origin:         cfg.PublicOrigin,
		Logger:         logger,
		WhiteThreshold: whiteThreshold(cfg),
	}

	var notifier domain.Notifier = &notify.Log{Logger: logger}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyWebhookURL)
	}

	deps := httpinfra.ServerDeps{
		Lifecycle: lifecycle,
		Fields:    &usecase.FieldStore{Requests: requests, Fields: fields},
		Bundle:    &usecase.SigningBundle{Signers: signers, Requests: requests, Fields: fields, Audit: audit},
		Advance:   &usecase.AdvanceStep{Signers: signers},
		Commit: &usecase.CommitSigner{
			Requests: requests,
			Signers:  signers,
			Fields:   fields,
			Audit:    audit,
			Certify:  certifier,
			Store:    objects,
			Notify:   notifier,
			Logger:   logger,
		},
		Verify: &usecase.VerifySignature{
			Requests: requests,
			Signers:  signers,
			Store:    objects,
			Cache:    cachemem.New(),
			CacheTTL: time.Duration(cfg.VerifyCacheTTLSeconds) * time.Second,
			Logger:   logger,
		},
		Audit:       audit,
		Signers:     signers,
		RateLimiter: newRateLimiter(cfg, logger),
		DBReady:     store.DB != nil,
	}

	srv := httpinfra.NewServer(cfg, deps)
	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := srv.Run(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newObjectStore(cfg config.Config, logger *slog.Logger) (domain.ObjectStore, error) {
	if cfg.GCSBucket == "" {
		logger.Warn("GCS_BUCKET not set; using in-memory object store")
		return storage.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return storage.NewGCS(ctx, cfg.GCSBucket)
}

func newRateLimiter(cfg config.Config, logger *slog.Logger) domain.RateLimiter {
	if cfg.RateLimitRequests <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err == nil {
			return limiter
		}
		logger.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
	}
	return ratelimit.NewMemory(cfg.RateLimitMaxKeys, nil)
}

func whiteThreshold(cfg config.Config) uint8 {
	if cfg.SignatureWhiteThreshold <= 0 || cfg.SignatureWhiteThreshold > 255 {
		return 0
	}
	return uint8(cfg.SignatureWhiteThreshold)
}
