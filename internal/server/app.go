// Package server wires the upload gateway together: object storage, the
// session registry, the HTTP API and the gRPC health service. It also handles
// graceful shutdown and periodically aborts sessions clients walked away from.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/casupload/internal/logging"
	"github.com/dmitrijs2005/casupload/internal/server/config"
	"github.com/dmitrijs2005/casupload/internal/server/httpapi"
	"github.com/dmitrijs2005/casupload/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casupload/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/casupload/internal/server/services"
	"github.com/dmitrijs2005/casupload/internal/server/storage"

	gs "github.com/dmitrijs2005/casupload/internal/server/grpc"
)

const reapInterval = time.Hour

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	store   storage.ObjectStore
	repo    sessions.Repository
	uploads *services.UploadService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	store, err := newStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store}

	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, sessions are kept in memory")
		app.repo = sessions.NewInMemoryRepository()
	} else {
		db, m, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.repo = m.Sessions(db)
	}

	app.uploads = services.NewUploadService(store, app.repo, c, logger)
	return app, nil
}

func newStore(ctx context.Context, c *config.Config, l logging.Logger) (storage.ObjectStore, error) {
	switch c.StorageBackend {
	case config.StorageMemory:
		l.Warn(ctx, "using in-memory object storage")
		return storage.NewMemoryStore(), nil
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		}, l)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.uploads, app.logger, httpapi.Options{
		SecretKey:   app.config.SecretKey,
		MaxPartSize: app.config.MaxPartSize,
		CORSOrigins: app.config.CORSOrigins,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.HealthAddr, app.logger, gs.DefaultProbeInterval, app.uploads)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startReaper aborts sessions older than SessionTTL until ctx is done.
func (app *App) startReaper(ctx context.Context) {
	if app.config.SessionTTL <= 0 {
		return
	}

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		if _, err := app.uploads.ReapStale(ctx, app.config.SessionTTL); err != nil && ctx.Err() == nil {
			app.logger.Error(ctx, "failed to reap stale sessions", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHealthServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startReaper(ctx)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "failed to close database", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	return err
}
