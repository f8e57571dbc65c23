// Command trackerctl is the operator tool for the tracker database:
// migrations, JSON backups and teacher account maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"suzukitracker/internal/config"
	"suzukitracker/internal/database"
	"suzukitracker/internal/logger"
	"suzukitracker/internal/security"
	"suzukitracker/internal/service"
)

// app holds what every subcommand needs once the database is open
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

// open loads configuration, opens the database and applies pending migrations
func open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	applied, err := db.RunMigrations(cmd.Context(), cfg.MigrationsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, name := range applied {
		log.Info("applied migration", zap.String("file", name))
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.log.Sync()
}

// authService builds an auth service for account maintenance; no mail is sent
func (a *app) authService() *service.AuthService {
	deps := service.Deps{
		DB:    a.db,
		Guard: service.NewGuard(a.cfg.PerTeacherCatalog()),
		Log:   a.log,
	}
	signer := security.NewSessionSigner(a.cfg.SessionSecret, a.cfg.SessionDuration)
	return service.NewAuthService(deps, signer, nil, time.Hour)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trackerctl",
		Short:         "Suzuki tracker database tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Operator tool for the tracker database.

Configuration is read from .env and TRACKER_* environment variables:
  TRACKER_DATABASE_TYPE    sqlite, postgres or mysql (default: sqlite)
  TRACKER_DATABASE_PATH    SQLite database path (default: ./tracker.db)
  TRACKER_DATABASE_URL     PostgreSQL or MySQL connection URL`,
	}
	root.AddCommand(
		newMigrateCmd(),
		newExportCmd(),
		newImportCmd(),
		newCreateTeacherCmd(),
		newResetPasswordCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
