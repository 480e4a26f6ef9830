package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the API settings. Values come from the environment, optionally
// seeded from a .env file in the working directory.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	GinMode     string `env:"GIN_MODE" env-default:"debug"`
	ServerPort  string `env:"SERVER_PORT" env-default:"8080"`
	AppBaseURL  string `env:"APP_BASE_URL" env-default:"http://localhost:3000"`
	LogFile     string `env:"LOG_FILE" env-default:"logs/proposal-api.log"`

	// Comma separated; empty allows any origin in development only.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:""`

	Database DatabaseConfig
	JWT      JWTConfig
	Upload   UploadConfig
	SMTP     SMTPConfig
}

type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" env-default:"mysql"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"3306"`
	Database string `env:"DB_DATABASE" env-default:"proposal_db"`
	Username string `env:"DB_USERNAME" env-default:"root"`
	Password string `env:"DB_PASSWORD"`
	DebugSQL bool   `env:"DEBUG_SQL" env-default:"false"`
}

type JWTConfig struct {
	Secret   string `env:"JWT_SECRET"`
	TTLHours int    `env:"JWT_TTL_HOURS" env-default:"24"`
}

type UploadConfig struct {
	Path        string `env:"UPLOAD_PATH" env-default:"./uploads"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" env-default:"10"`
}

type SMTPConfig struct {
	Host          string `env:"SMTP_HOST"`
	Port          int    `env:"SMTP_PORT" env-default:"587"`
	User          string `env:"SMTP_USER"`
	Pass          string `env:"SMTP_PASS"`
	From          string `env:"SMTP_FROM"` // e.g. "Proposal System <no-reply@your.org>"
	SkipTLSVerify bool   `env:"SMTP_SKIP_TLS_VERIFY" env-default:"false"`
}

// AppConfig is the configuration loaded by Load.
var AppConfig *Config

// Load reads .env (when present) and the environment into AppConfig.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want mysql or postgres)", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 24
	}
	if c.Upload.MaxUploadMB <= 0 {
		c.Upload.MaxUploadMB = 10
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, strings.TrimRight(o, "/"))
		}
	}
	return out
}

// MaxUploadBytes is the attachment size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxUploadMB << 20
}
