// internal/app/app.go

// Package app wires configuration, storage, services and the HTTP server
// into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/database"
	"github.com/javajoker/verdict-cms/internal/handlers"
	"github.com/javajoker/verdict-cms/internal/i18n"
	"github.com/javajoker/verdict-cms/internal/jobs"
	"github.com/javajoker/verdict-cms/internal/repository"
	"github.com/javajoker/verdict-cms/internal/router"
	"github.com/javajoker/verdict-cms/internal/rules"
	"github.com/javajoker/verdict-cms/internal/services"
	"github.com/javajoker/verdict-cms/internal/telemetry"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// ConfigureLogging applies the configured level and format to the standard
// logrus logger.
func ConfigureLogging(cfg *config.Config) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// OpenDatabase connects and migrates. When seed is set the first admin
// account is created if none exists.
func OpenDatabase(cfg *config.Config, seed bool) (*gorm.DB, error) {
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, err
	}
	if seed {
		if err := database.SeedInitialData(db, cfg.Admin); err != nil {
			database.Close(db)
			return nil, err
		}
	}
	return db, nil
}

// Server is the assembled HTTP service.
type Server struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	db      *gorm.DB
	runner  *jobs.Runner
	engine  *gin.Engine
	stopRL  func()
	httpSrv *http.Server
}

// NewServer builds every service on top of db.
func NewServer(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger) (*Server, error) {
	if err := telemetry.InitSentry(cfg.Sentry.DSN, cfg.Environment, Version); err != nil {
		log.WithError(err).Warn("Error reporting disabled")
	}

	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	tables, err := rules.LoadTables(cfg.Rules.TablesPath)
	if err != nil {
		return nil, err
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Repositories
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Services
	runner := jobs.NewRunner(log)
	auditService := services.NewAuditService(auditRepo, log)
	categoryService := services.NewCategoryService(categoryRepo, brandRepo, auditService, log)
	versionService := services.NewVersionService(versionRepo, log)
	notificationService := services.NewNotificationService(notificationRepo, cfg.Email, log)
	storageService, err := services.NewStorageService(cfg.AWS, log)
	if err != nil {
		return nil, err
	}

	productService := services.NewProductService(services.ProductServiceDeps{
		Products:   productRepo,
		Pipeline:   rules.NewPipeline(tables, categoryService, log),
		Audit:      auditService,
		Jobs:       runner,
		Versions:   versionService,
		Notifier:   notificationService,
		Aggregates: categoryService,
		Delays:     cfg.Jobs,
		Log:        log,
	})
	authService := services.NewAuthService(userRepo, cfg.JWT, log)
	userService := services.NewUserService(userRepo, auditService, log)
	adminService := services.NewAdminService(statsRepo)

	engine, stopRL := router.Initialize(router.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Product:      handlers.NewProductHandler(productService, versionService, storageService),
		Category:     handlers.NewCategoryHandler(categoryService),
		Admin:        handlers.NewAdminHandler(adminService, auditService),
		Notification: handlers.NewNotificationHandler(notificationService),
		User:         handlers.NewUserHandler(userService),
	}, cfg.Server, Version, log)

	return &Server{
		cfg:    cfg,
		log:    log,
		db:     db,
		runner: runner,
		engine: engine,
		stopRL: stopRL,
		httpSrv: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      engine,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully: the HTTP
// server stops accepting requests and pending background jobs are flushed.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.cfg.Server.Port).Info("Starting server")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	if jobErr := s.runner.Shutdown(shutdownCtx); jobErr != nil {
		s.log.WithError(jobErr).Warn("Background jobs did not finish before shutdown")
	}
	s.stopRL()
	telemetry.Flush()

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("Server exited")
	return nil
}
