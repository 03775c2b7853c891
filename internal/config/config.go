package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

const defaultSessionSecret = "secret_key_change_me"

type Config struct {
	Port          int
	DatabaseType  string
	DatabaseURL   string
	SessionSecret string
	SiteURL       string
	VoterHashSalt string
	LogLevel      string
	Release       bool

	// Background sweep of polls whose expires_at has passed.
	ExpirySweepInterval time.Duration

	GoogleClientID     string
	GoogleClientSecret string
}

// GoogleEnabled reports whether Google sign-in has credentials.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load parses command line flags and falls back to environment variables
// for anything left unset. Flags win over env.
func Load(args []string) (Config, error) {
	var cfg Config
	var sweep string

	fs := flag.NewFlagSet("polly", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL / DSN")
	fs.StringVar(&cfg.SiteURL, "site", "", "Public site URL")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&sweep, "sweep", "", "Expiry sweep interval, e.g. 1m")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8080
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port out of range: %d", cfg.Port)
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envOr("DATABASE_TYPE", DatabasePostgres)
	}
	if cfg.DatabaseType != DatabasePostgres && cfg.DatabaseType != DatabaseSQLite {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType == DatabaseSQLite {
			cfg.DatabaseURL = "file:polly.db?_foreign_keys=on"
		} else {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	}

	cfg.Release = os.Getenv("GIN_MODE") == "release"

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		if cfg.Release {
			return Config{}, errors.New("SESSION_SECRET required in release mode")
		}
		cfg.SessionSecret = defaultSessionSecret
	}

	if cfg.SiteURL == "" {
		cfg.SiteURL = envOr("SITE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}
	cfg.VoterHashSalt = envOr("VOTER_HASH_SALT", cfg.SessionSecret)

	if sweep == "" {
		sweep = envOr("EXPIRY_SWEEP_INTERVAL", "1m")
	}
	d, err := time.ParseDuration(sweep)
	if err != nil || d <= 0 {
		return Config{}, fmt.Errorf("invalid expiry sweep interval %q", sweep)
	}
	cfg.ExpirySweepInterval = d

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
