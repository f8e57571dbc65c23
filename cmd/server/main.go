package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/config"
	"suzukitracker/internal/database"
	"suzukitracker/internal/handlers"
	"suzukitracker/internal/logger"
	"suzukitracker/internal/metrics"
	"suzukitracker/internal/security"
	"suzukitracker/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus()
	recorder := metrics.NewRecorder()

	// Serve health checks while the rest of the process initializes
	router := &handlers.Router{Startup: startup, Metrics: recorder.Handler()}
	var api http.Handler
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !startup.IsReady() {
			startup.Health(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(log, root),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	log.Info("database connection established", zap.String("type", cfg.DatabaseType))

	// Run migrations
	startup.SetCurrentStep(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx, cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	startup.CompleteStep(handlers.StepMigrations)
	log.Info("migrations completed", zap.Strings("applied", applied))

	// Initialize services
	startup.SetCurrentStep(handlers.StepServices)
	deps := service.Deps{
		DB:      db,
		Guard:   service.NewGuard(cfg.PerTeacherCatalog()),
		Log:     log,
		Metrics: recorder,
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}
	if !emailService.IsEnabled() {
		log.Warn("email disabled; password reset links are only logged")
	}

	signer := security.NewSessionSigner(cfg.SessionSecret, cfg.SessionDuration)
	authService := service.NewAuthService(deps, signer, emailService, cfg.ResetTokenTTL)
	catalogService := service.NewCatalogService(deps)
	limiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	startup.CompleteStep(handlers.StepServices)

	// Initialize handlers
	router.Middleware = handlers.NewMiddleware(authService, limiter, log)
	router.Auth = handlers.NewAuthHandler(authService, log)
	router.Catalog = handlers.NewCatalogHandler(catalogService, log)
	router.Students = handlers.NewStudentHandler(
		service.NewStudentService(deps),
		catalogService,
		service.NewAssignmentService(deps),
		service.NewAttendanceService(deps),
		log,
	)
	router.Progress = handlers.NewProgressHandler(service.NewProgressService(deps), log)
	api = router.Handler()
	startup.MarkReady()
	log.Info("server ready", zap.String("catalog_scope", cfg.CatalogScope))

	// Start background cleanup
	go cleanupLoop(ctx, authService, limiter, log)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("could not stop server gracefully", zap.Error(err))
		return server.Close()
	}
	return nil
}

// cleanupLoop periodically removes expired password resets and idle rate limiter entries
func cleanupLoop(ctx context.Context, authService *service.AuthService, limiter *security.RateLimiter, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredPasswordResets(ctx)
			if err != nil {
				log.Error("error cleaning up expired password resets", zap.Error(err))
			} else {
				log.Debug("expired password resets cleaned up", zap.Int64("removed", removed))
			}
			log.Debug("rate limiter cleaned up", zap.Int("removed", limiter.Cleanup()))
		}
	}
}
