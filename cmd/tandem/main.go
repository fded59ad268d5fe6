package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tandemapp/tandem/internal/backup"
	"github.com/tandemapp/tandem/internal/database"
	"github.com/tandemapp/tandem/internal/logging"
	"github.com/tandemapp/tandem/internal/server"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := logging.Setup(os.Getenv("TANDEM_LOG_LEVEL"), os.Getenv("TANDEM_LOG_FORMAT"))

	port := env("TANDEM_PORT", "8080")
	dbPath := env("TANDEM_DB_PATH", "tandem.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		BaseURL:         env("TANDEM_BASE_URL", "http://localhost:"+port),
		PostmarkToken:   os.Getenv("TANDEM_POSTMARK_TOKEN"),
		FromEmail:       env("TANDEM_FROM_EMAIL", "noreply@tandem.app"),
		VAPIDPublicKey:  os.Getenv("TANDEM_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("TANDEM_VAPID_PRIVATE_KEY"),
		JWTSecret:       os.Getenv("TANDEM_JWT_SECRET"),
		JWTIssuer:       os.Getenv("TANDEM_JWT_ISSUER"),
		JWTAudience:     os.Getenv("TANDEM_JWT_AUDIENCE"),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("TANDEM_S3_ENDPOINT"),
				Bucket:    os.Getenv("TANDEM_S3_BUCKET"),
				Region:    env("TANDEM_S3_REGION", "us-east-1"),
				AccessKey: os.Getenv("TANDEM_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("TANDEM_S3_SECRET_KEY"),
			},
			DBPath:     dbPath,
			Passphrase: os.Getenv("TANDEM_BACKUP_PASSPHRASE"),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Periodic cleanup of expired sessions, codes, and limiter entries
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up sessions", "count", n)
				}
				if _, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
					logger.Error("cleanup auth codes", "error", err)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tandem listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
