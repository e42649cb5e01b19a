package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fieldbook/api/internal/app"
	"fieldbook/api/internal/archive"
	"fieldbook/api/internal/config"
	"fieldbook/api/internal/drafts"
	"fieldbook/api/internal/gitrepo"
	"fieldbook/api/internal/logging"
	"fieldbook/api/internal/search"
	"fieldbook/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(os.Stderr, "info")
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	log := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ReposDir).Msg("failed to create repos dir")
	}

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.ReposDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
	}
	searchService := search.NewService(meiliClient, pgfts, log)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(context.Background())
	}

	var draftStore drafts.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Info().Msg("using redis for editor drafts")
		redisStore, err := drafts.NewRedisStore(cfg.RedisURL, cfg.DraftTTL())
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		draftStore = redisStore
	} else {
		log.Info().Msg("using in-process memory for editor drafts")
		draftStore = drafts.NewMemoryStore(cfg.DraftTTL())
	}
	defer draftStore.Close()

	service := app.New(cfg, dataStore, gitService, searchService, draftStore, log)
	if archiveCfg := archive.Config(cfg.Archive); archiveCfg.Enabled() {
		archiveClient, err := archive.New(ctx, archiveCfg)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Archive.Bucket).Msg("archive setup failed")
		}
		service.WithArchive(archiveClient)
	}
	if err := service.Bootstrap(ctx); err != nil {
		log.Warn().Err(err).Msg("bootstrap error (will retry on next restart)")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("fieldbook API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
