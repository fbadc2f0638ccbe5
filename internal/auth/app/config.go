package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`              // Environment (dev, staging, prod)
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`       // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`      // json, text
	Issuer    string `env:"AUTH_ISSUER" envDefault:"authcore"` // TOTP issuer label

	StoreDriver  string `env:"AUTH_STORE_DRIVER" envDefault:"sqlite"` // sqlite, postgres, mongo, memory
	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PostgresURL  string `env:"AUTH_POSTGRES_URL"`
	MongoURI     string `env:"AUTH_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string `env:"AUTH_MONGO_DB" envDefault:"authcore"`
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	ResetTokenTTL        time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"15m"`
	ResetConsumeOnChange bool          `env:"AUTH_RESET_CONSUME_ON_CHANGE" envDefault:"true"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"` // 0 disables the sweep

	Delivery     string `env:"AUTH_DELIVERY" envDefault:"console"` // console, smtp
	MailFrom     string `env:"SMTP_FROM" envDefault:"no-reply@authcore.local"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	QRDir string `env:"AUTH_QR_DIR"` // optional directory for enrollment QR PNGs
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "memory", "mongo":
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("AUTH_POSTGRES_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown AUTH_STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.Delivery {
	case "console":
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for smtp delivery")
		}
	default:
		return fmt.Errorf("unknown AUTH_DELIVERY %q", c.Delivery)
	}

	if c.ResetTokenTTL < time.Minute {
		return fmt.Errorf("AUTH_RESET_TOKEN_TTL must be at least 1m, got %s", c.ResetTokenTTL)
	}
	return nil
}
