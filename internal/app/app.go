// Package app assembles the service: configuration, logging, the store
// driver, the provider client, and the HTTP server, with graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerworks/stitchlink/internal/link/resource"
	"github.com/ledgerworks/stitchlink/internal/link/service"
	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/internal/link/store/drivers/memory"
	redisstore "github.com/ledgerworks/stitchlink/internal/link/store/drivers/redis"
	"github.com/ledgerworks/stitchlink/internal/link/store/drivers/sqlite"
	"github.com/ledgerworks/stitchlink/internal/web"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"
	"github.com/ledgerworks/stitchlink/pkg/jwtx"
	"github.com/ledgerworks/stitchlink/pkg/slogx"
	"github.com/ledgerworks/stitchlink/pkg/stitchsdk"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the link service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	provider *stitchsdk.Client

	links     *service.Manager
	resources *resource.Client

	server *http.Server
	router *web.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "stitchlink",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initProvider(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("stitchlink starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down stitchlink...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("stitchlink stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case "memory":
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory store; links will not survive a restart")

	case "redis":
		db, err := redisstore.NewStore(app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize redis store: %w", err)
		}
		app.db = db

	case "sqlite":
		var opts []sqlite.Option
		if app.cfg.TokenSealKey != "" {
			sealer, err := cryptox.NewSealer([]byte(app.cfg.TokenSealKey))
			if err != nil {
				return fmt.Errorf("failed to initialize token sealer: %w", err)
			}
			opts = append(opts, sqlite.WithSealer(sealer))
		} else {
			app.logger.Warn("TOKEN_SEAL_KEY not set; tokens are stored in the clear")
		}

		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn, opts...)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db

		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully")

	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}

	return nil
}

func (app *Application) initProvider() error {
	pemKey, err := os.ReadFile(app.cfg.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := jwtx.NewAssertionSigner(app.cfg.ClientID, pemKey)
	if err != nil {
		return fmt.Errorf("failed to initialize assertion signer: %w", err)
	}

	provider, err := stitchsdk.New(stitchsdk.Config{
		AuthorizeURL: app.cfg.AuthorizeURL,
		TokenURL:     app.cfg.TokenURL,
		RedirectURI:  app.cfg.RedirectURI,
		Scopes:       app.cfg.Scopes,
		Assertions:   signer,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize provider client: %w", err)
	}

	app.provider = provider
	return nil
}

func (app *Application) initServices() error {
	links, err := service.New(service.Config{
		Store:       app.db,
		Provider:    app.provider,
		Logger:      app.logger,
		RefreshSkew: app.cfg.RefreshSkew,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize link manager: %w", err)
	}
	app.links = links

	resources, err := resource.New(resource.Config{
		Tokens:   links,
		Endpoint: app.cfg.APIURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize resource client: %w", err)
	}
	app.resources = resources

	return nil
}

func (app *Application) initHTTP() {
	router := web.NewRouter(BuildVersion, app.db, app.logger)
	router.Links = app.links
	router.Resources = app.resources
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
