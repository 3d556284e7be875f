package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/casupload/internal/client/config"
	"github.com/dmitrijs2005/casupload/internal/client/gateway"
	"github.com/dmitrijs2005/casupload/internal/client/history"
	"github.com/dmitrijs2005/casupload/internal/client/session"
	"github.com/dmitrijs2005/casupload/internal/client/upload"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/digest"
	"github.com/dmitrijs2005/casupload/internal/filex"
	"github.com/dmitrijs2005/casupload/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type gatewayClient interface {
	session.Gateway
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	gw      gatewayClient
	machine *upload.Machine
	history history.Repository
	log     logging.Logger
	out     io.Writer
	reader  *bufio.Reader
	closers []io.Closer

	modeMu sync.Mutex
	mode   Mode

	// background runs select/upload on their own goroutine (REPL mode)
	background bool
	busy       atomic.Bool
	jobs       sync.WaitGroup

	fileMu sync.Mutex
	file   *filex.LocalFile

	progress *progressPrinter
}

// NewApp builds the client from cfg: logger, digest engine, gateway client,
// history database and upload machine.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	level := "warn"
	if cfg.Verbose {
		level = "debug"
	}
	log := logging.New(os.Stderr, "text", level)

	engine, err := digest.NewEngine(digest.Algorithm(cfg.Algorithm), cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		token, err := promptToken(os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		cfg.Token = token
	}

	gw := gateway.New(cfg.GatewayURL, cfg.Token)
	if err := gw.ConnectHealth(cfg.HealthAddr); err != nil {
		return nil, err
	}

	db, err := openHistory(ctx, cfg.HistoryDSN)
	if err != nil {
		_ = gw.Close()
		log.Error(ctx, "error initializing history database", "error", err)
		return nil, err
	}

	a := newApp(cfg, engine, gw, history.NewSQLiteRepository(db), log, os.Stdout)
	a.closers = append(a.closers, gw, db)
	return a, nil
}

func openHistory(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dir, err := filex.EnsureSubDir("", "casupload")
		if err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, "history.db")
	}
	return history.InitDatabase(ctx, dsn)
}

func newApp(cfg *config.Config, hasher upload.Hasher, gw gatewayClient, repo history.Repository, log logging.Logger, out io.Writer) *App {
	a := &App{
		config:   cfg,
		gw:       gw,
		history:  repo,
		log:      log,
		out:      out,
		reader:   bufio.NewReader(os.Stdin),
		progress: &progressPrinter{out: out},
	}

	mgr := session.NewManager(gw, log, cfg.WindowSize)
	a.machine = upload.NewMachine(hasher, mgr, log, upload.Config{
		AllowedExtensions: cfg.AllowedExtensions,
		SiteURL:           cfg.PublicURL(),
	}, upload.Hooks{
		OnChange:        a.progress.observe,
		OnUploadSuccess: a.onUploadSuccess,
		OnUploadError:   a.onUploadError,
	})
	return a
}

func (a *App) onUploadSuccess(key string, info upload.FileInfo) {
	ctx := context.Background()
	err := a.history.Add(ctx, history.Record{Key: key, Name: info.Name, Size: info.Size, UploadedAt: time.Now()})
	if err != nil {
		a.log.Warn(ctx, "failed to record upload", "key", key, "error", err)
	}
	if url, ok := a.machine.ObjectURL(); ok {
		fmt.Fprintf(a.out, "uploaded %s (%d bytes): %s\n", info.Name, info.Size, url)
	}
}

func (a *App) onUploadError(msg string) {
	fmt.Fprintf(a.out, "upload error: %s\n", msg)
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(context.Background(), "gateway status changed", "mode", mode)
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.checkOnline(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.gw.Ping(pctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// spawn runs fn inline and returns its error, or runs it on a tracked
// goroutine in background mode. Only one job runs at a time; started is
// false when fn was rejected for that reason.
func (a *App) spawn(fn func() error) (started bool, err error) {
	if !a.busy.CompareAndSwap(false, true) {
		a.report(common.ErrBusy)
		return false, common.ErrBusy
	}

	run := func() error {
		defer a.busy.Store(false)
		err := fn()
		a.report(err)
		return err
	}

	if !a.background {
		return true, run()
	}

	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		_ = run()
	}()
	return true, nil
}

// Wait blocks until background jobs are finished.
func (a *App) Wait() { a.jobs.Wait() }

func (a *App) Close() error {
	a.machine.Cancel()
	a.Wait()

	a.fileMu.Lock()
	if a.file != nil {
		_ = a.file.Close()
		a.file = nil
	}
	a.fileMu.Unlock()

	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// swapFile makes f the current selection and closes the previous one.
func (a *App) swapFile(f *filex.LocalFile) {
	a.fileMu.Lock()
	defer a.fileMu.Unlock()

	if a.file != nil && a.file != f {
		_ = a.file.Close()
	}
	a.file = f
}
