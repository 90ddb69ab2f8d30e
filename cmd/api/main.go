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

	"pii-vault/internal/audit"
	"pii-vault/internal/auth"
	"pii-vault/internal/config"
	"pii-vault/internal/detect"
	"pii-vault/internal/disclosure"
	"pii-vault/internal/httpapi"
	"pii-vault/internal/ingest"
	"pii-vault/internal/store"
	"pii-vault/pkg/logger"
	"pii-vault/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	blobs, err := store.NewFSBlobs(cfg.Blob.Dir)
	if err != nil {
		log.Error("blob store init failed", "err", err)
		os.Exit(1)
	}
	images := store.NewPostgresImages(db)
	auditor := audit.NewService(audit.NewPostgresRepo(db), cfg.App.PipelineVersion)

	// Detector: a sidecar runs the actual models; without one the static
	// detector keeps the pipeline usable locally (no regions detected).
	var detector detect.Detector = detect.Static{}
	if cfg.Detector.URL != "" {
		detector = detect.NewRemote(cfg.Detector.URL, &http.Client{Timeout: 30 * time.Second})
	}

	ingestSvc := ingest.NewService(
		detector,
		images,
		blobs,
		auditor,
		ingest.NewRedisGuard(rdb, 2*time.Minute),
		cfg.Crypto.Key,
		cfg.Crypto.KeyRef,
		cfg.App.PipelineVersion,
	)
	disclosureSvc := disclosure.NewService(images, blobs, auditor, cfg.Crypto.Key)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:       authManager,
		Ingest:     ingestSvc,
		Disclosure: disclosureSvc,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager), db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
