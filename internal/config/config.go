package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	DBDriver string // postgres, mysql, sqlite
	DBDSN    string

	ServerPort    string
	SessionSecret string
	SecureCookie  bool

	UploadDir string
	RolesFile string

	ShareSecret string
	ShareTTLHrs int

	SMTP SMTPConfig

	AdminUsername string
	AdminPassword string
}

type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getenv("APP_ENV", "development"),
		LogLevel:      getenv("LOG_LEVEL", ""),
		DBDriver:      strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    getenv("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SecureCookie:  os.Getenv("SECURE_COOKIE") == "1",
		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		RolesFile:     os.Getenv("ROLES_FILE"),
		ShareSecret:   os.Getenv("SHARE_SECRET"),
		ShareTTLHrs:   getint("SHARE_TTL_HOURS", 72),
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getint("SMTP_PORT", 587),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			From:          os.Getenv("SMTP_FROM"),
			SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
		},
		AdminUsername: getenv("ADMIN_USERNAME", "admin@obra.local"),
		AdminPassword: getenv("ADMIN_PASSWORD", "Admin123!"),
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	switch cfg.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, errors.New("DB_DRIVER must be postgres, mysql or sqlite")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}
	if cfg.ShareSecret == "" {
		// share links fall back to the session key
		cfg.ShareSecret = cfg.SessionSecret
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if !cfg.IsProduction() {
			cfg.LogLevel = "debug"
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
