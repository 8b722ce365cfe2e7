// cmd/server/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/app"
	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/database"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := app.ConfigureLogging(cfg)

	// Initialize database, run migrations and seed the first admin
	db, err := app.OpenDatabase(cfg, true)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	srv, err := app.NewServer(cfg, db, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build server")
	}

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}
}
