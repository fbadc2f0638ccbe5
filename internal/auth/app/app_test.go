package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/shell"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, "authcore", cfg.Issuer)
	require.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	require.True(t, cfg.ResetConsumeOnChange)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, "console", cfg.Delivery)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_STORE_DRIVER", "postgres")
	t.Setenv("AUTH_POSTGRES_URL", "postgres://u:p@localhost/db")
	t.Setenv("AUTH_RESET_TOKEN_TTL", "30m")
	t.Setenv("AUTH_RESET_CONSUME_ON_CHANGE", "false")
	t.Setenv("HOUSEKEEPING_INTERVAL", "0s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.StoreDriver)
	require.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	require.False(t, cfg.ResetConsumeOnChange)
	require.Zero(t, cfg.HousekeepingInterval)
}

func TestConfigValidate(t *testing.T) {
	base := Config{StoreDriver: "memory", Delivery: "console", ResetTokenTTL: 15 * time.Minute}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "oracle" }},
		{"postgres without url", func(c *Config) { c.StoreDriver = "postgres" }},
		{"unknown delivery", func(c *Config) { c.Delivery = "pigeon" }},
		{"smtp without host", func(c *Config) { c.Delivery = "smtp" }},
		{"ttl below a minute", func(c *Config) { c.ResetTokenTTL = 30 * time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func testConfig(t *testing.T, driver string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		StoreDriver:          driver,
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		Issuer:               "authcore-test",
		ResetTokenTTL:        15 * time.Minute,
		ResetConsumeOnChange: true,
		HousekeepingInterval: time.Hour,
		Delivery:             "console",
		MailFrom:             "no-reply@authcore.test",
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestApplicationRun(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			var out bytes.Buffer
			input := strings.Join([]string{
				"register", "a@b.test", "Secret123",
				"reset", "a@b.test", "wrong-token",
				"quit",
			}, "\n") + "\n"

			app, err := New(ctx, testConfig(t, driver), shell.NewPlainPrompter(strings.NewReader(input), &out), &out,
				WithClock(clockwork.NewFakeClock()),
				WithLogger(quietLogger()),
			)
			require.NoError(t, err)
			require.NoError(t, app.Run(ctx))

			got := out.String()
			require.Contains(t, got, "Account created")
			require.Contains(t, got, "from: no-reply@authcore.test")
			require.Contains(t, got, "to: a@b.test")
			require.Contains(t, got, "You've entered an invalid token.")
		})
	}
}

func TestNew_SMTPDeliveryNeedsHost(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Delivery = "smtp"

	_, err := New(context.Background(), cfg, shell.NewPlainPrompter(strings.NewReader(""), io.Discard), io.Discard,
		WithLogger(quietLogger()))
	require.Error(t, err)
}
