package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog scopes
const (
	CatalogShared     = "shared"
	CatalogPerTeacher = "perTeacher"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	MigrationsPath  string
	SessionSecret   string
	SessionDuration time.Duration
	CatalogScope    string
	LogLevel        string
	LogFile         string
	Debug           bool

	// Email (Amazon SES)
	AWSRegion      string
	SESFromEmail   string
	SESFromName    string
	AppBaseURL     string
	ResetTokenTTL  time.Duration
	LoginRateLimit int
}

// Load reads configuration from an optional .env file and TRACKER_* environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	envFile := os.Getenv("TRACKER_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./tracker.db")
	v.SetDefault("database.url", "")
	v.SetDefault("migrations.path", "")
	v.SetDefault("session.secret", "change-me-in-production")
	v.SetDefault("session.duration", 30*24*time.Hour)
	v.SetDefault("catalog.scope", CatalogShared)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("debug", false)
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "Suzuki Tracker")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("reset.ttl", time.Hour)
	v.SetDefault("login.rate_limit", 10)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:      v.GetString("port"),
		DatabaseType:    strings.ToLower(v.GetString("database.type")),
		DatabasePath:    v.GetString("database.path"),
		DatabaseURL:     v.GetString("database.url"),
		MigrationsPath:  v.GetString("migrations.path"),
		SessionSecret:   v.GetString("session.secret"),
		SessionDuration: v.GetDuration("session.duration"),
		CatalogScope:    v.GetString("catalog.scope"),
		LogLevel:        v.GetString("log.level"),
		LogFile:         v.GetString("log.file"),
		Debug:           v.GetBool("debug"),
		AWSRegion:       v.GetString("email.region"),
		SESFromEmail:    v.GetString("email.from"),
		SESFromName:     v.GetString("email.from_name"),
		AppBaseURL:      v.GetString("app.base_url"),
		ResetTokenTTL:   v.GetDuration("reset.ttl"),
		LoginRateLimit:  v.GetInt("login.rate_limit"),
	}

	switch cfg.CatalogScope {
	case CatalogShared, CatalogPerTeacher:
	default:
		return nil, fmt.Errorf("invalid catalog scope %q (want %s or %s)", cfg.CatalogScope, CatalogShared, CatalogPerTeacher)
	}

	switch cfg.DatabaseType {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DatabaseType)
	}

	if cfg.SessionDuration <= 0 {
		return nil, fmt.Errorf("session duration must be positive")
	}

	return cfg, nil
}

// PerTeacherCatalog reports whether books are isolated per owning teacher
func (c *Config) PerTeacherCatalog() bool {
	return c.CatalogScope == CatalogPerTeacher
}
