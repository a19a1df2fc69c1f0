package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aphexes/flaskblog/internal/config"
	"github.com/aphexes/flaskblog/internal/db"
	"github.com/aphexes/flaskblog/internal/handler"
	"github.com/aphexes/flaskblog/internal/mailer"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/service"
	"github.com/aphexes/flaskblog/internal/session"
	"github.com/aphexes/flaskblog/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	d, err := db.Open(cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer d.Close()
	if err := db.Migrate(d, cfg.SchemaPath); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(d)
	authSvc := service.NewAuthService(repo, logger, cfg.SecretKey, cfg.ResetTokenMaxAge)
	postSvc := service.NewPostService(repo, logger)
	sessions := session.NewManager(repo, logger, cfg.SessionLifetime, cfg.RememberLifetime)
	avatars, err := storage.NewAvatarStore(cfg.AvatarDir, logger)
	if err != nil {
		logger.Fatalf("Failed to init avatar store: %v", err)
	}
	mail := mailer.NewSender(cfg, logger)
	h := handler.NewHandler(authSvc, postSvc, sessions, avatars, mail, cfg, logger)

	// Purge expired sessions in the background
	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() {
		n, err := repo.DeleteExpiredSessions(context.Background())
		if err != nil {
			logger.Errorf("Session purge failed: %v", err)
			return
		}
		if n > 0 {
			logger.Infof("Purged %d expired sessions", n)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule session purge: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
