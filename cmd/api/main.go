package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"organizer/api/internal/app"
	"organizer/api/internal/archive"
	"organizer/api/internal/authpw"
	"organizer/api/internal/config"
	"organizer/api/internal/email"
	"organizer/api/internal/export"
	"organizer/api/internal/persist"
	"organizer/api/internal/remote"
	"organizer/api/internal/search"
	"organizer/api/internal/session"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := persist.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := persist.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		log.Fatalf("failed to create archive dir: %v", err)
	}

	userStore := persist.NewUserStore(db)
	docStore := persist.NewDocumentStore(db)
	archiveService := archive.New(cfg.ArchiveDir)

	var gateway remote.Gateway
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioGateway, err := remote.NewMinioGateway(ctx, remote.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		gateway = minioGateway
		log.Printf("Cloud sync enabled against %s", cfg.MinioEndpoint)
	} else {
		log.Printf("Cloud sync disabled: MINIO_ENDPOINT not set")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	fallback := search.NewFallback(docStore.Load)
	searchService := search.NewService(meiliClient, fallback)

	redisStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisStore.Close()

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !emailService.IsConfigured() {
		log.Printf("SMTP not configured: verification and reset tokens are returned in API responses")
	}

	service := app.New(cfg, app.Deps{
		DB:        db,
		Users:     userStore,
		Documents: docStore,
		Sessions:  redisStore,
		Gateway:   gateway,
		AuthPw:    authpw.NewService(userStore),
		Email:     emailService,
		Search:    searchService,
		Export:    export.NewService(),
		Archive:   archiveService,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Organizer API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	// Write out any debounced edits before the process exits.
	service.FlushAll(shutdownCtx)
}
