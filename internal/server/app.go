// Package server initializes and runs the application: it loads the master
// key, connects to PostgreSQL, applies migrations, wires services, and
// serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/logging"
	"github.com/dmitrijs2005/kinkeeper/internal/server/config"
	"github.com/dmitrijs2005/kinkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/kinkeeper/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *httpapi.Handler
}

// NewApp wires the application. A missing or malformed master key is fatal:
// a server that cannot unwrap user keys must not come up and mint sessions
// it cannot serve.
func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	masterKey, err := cryptox.LoadMasterKey(cfg.MasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cs := services.NewCredentialService(db, rm, masterKey, cfg)
	ps := services.NewPersonService(db, rm)
	ds := services.NewDocumentService(db, rm, cfg)

	handler := httpapi.NewHandler(cs, ps, ds, logger, cfg.SecretKey)

	return &App{config: cfg, logger: logger, db: db, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or an OS signal
// arrives, then shuts down and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler.Routes(), app.logger)
	err := srv.Run(ctx)

	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "error closing db", "error", closeErr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
