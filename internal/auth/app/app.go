package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/authcore/internal/auth/notify"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/shell"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/mongo"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/otpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/jonboulle/clockwork"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the auth core and the shell driving it.
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockwork.Clock

	db store.Store

	loginService        *service.LoginService
	registrationService *service.RegistrationService
	resetService        *service.ResetService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	shell *shell.Shell
}

// Option overrides a dependency, mostly for tests.
type Option func(*Application)

func WithClock(c clockwork.Clock) Option { return func(a *Application) { a.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(a *Application) { a.logger = l } }

// New creates an Application with every dependency initialised. The shell
// reads from in and writes to out.
func New(ctx context.Context, cfg Config, in shell.Prompter, out io.Writer, opts ...Option) (*Application, error) {
	app := &Application{cfg: cfg, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "authcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(out); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.shell = &shell.Shell{
		In:       in,
		Out:      out,
		Store:    app.db,
		Login:    app.loginService,
		Register: app.registrationService,
		Reset:    app.resetService,
		MFA:      app.mfaService,
		QRDir:    cfg.QRDir,
	}

	return app, nil
}

// Run starts housekeeping and blocks in the shell until the user quits.
func (app *Application) Run(ctx context.Context) error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("authcore starting", "version", BuildVersion, "driver", app.cfg.StoreDriver)

	err := app.shell.Run(slogx.WithContext(ctx, app.logger))
	if shutdownErr := app.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown stops background work and closes the store.
func (app *Application) Shutdown() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("authcore stopped")
	return nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := openStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewStore(), nil
	case "postgres":
		return postgres.NewStore(ctx, cfg.PostgresURL)
	case "mongo":
		return mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		return sqlite.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (app *Application) initServices(out io.Writer) error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewArgon2Hasher(pepper)

	deliverer, err := app.newDeliverer(out)
	if err != nil {
		return err
	}

	app.loginService = &service.LoginService{Store: app.db, Hasher: hasher}
	app.registrationService = &service.RegistrationService{
		Store:  app.db,
		Hasher: hasher,
		Clock:  app.clock,
	}
	app.resetService = &service.ResetService{
		Store:           app.db,
		Hasher:          hasher,
		Deliverer:       deliverer,
		Clock:           app.clock,
		TTL:             app.cfg.ResetTokenTTL,
		ConsumeOnChange: app.cfg.ResetConsumeOnChange,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Hasher: hasher,
		Codes:  otpx.NewTOTP(app.clock),
		Issuer: app.cfg.Issuer,
	}

	if app.cfg.HousekeepingInterval > 0 {
		app.housekeepingService = service.NewHousekeepingService(
			app.db,
			app.logger,
			app.clock,
			app.cfg.HousekeepingInterval,
			app.cfg.ResetTokenTTL,
		)
	}
	return nil
}

func (app *Application) newDeliverer(out io.Writer) (service.Deliverer, error) {
	switch app.cfg.Delivery {
	case "smtp":
		return notify.NewSMTPSender(
			app.cfg.SMTPHost,
			app.cfg.SMTPPort,
			app.cfg.SMTPUser,
			app.cfg.SMTPPass,
			app.cfg.MailFrom,
			app.cfg.SMTPFromName,
			app.cfg.SMTPUseTLS,
		)
	default:
		if out == nil {
			out = os.Stdout
		}
		return notify.NewConsoleSender(app.cfg.MailFrom, out), nil
	}
}
