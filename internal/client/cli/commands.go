package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/casupload/internal/client/upload"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/filex"
)

const historyLimit = 20

// Select opens path and computes its digest.
func (a *App) Select(ctx context.Context, path string) error {
	f, err := filex.Open(path)
	if err != nil {
		fmt.Fprintf(a.out, "cannot open %s: %v\n", path, err)
		return err
	}

	started, err := a.spawn(func() error {
		a.swapFile(f)
		return a.machine.Select(ctx, f)
	})
	if !started {
		_ = f.Close()
	}
	return err
}

// Upload sends the selected file, or retries after a failure.
func (a *App) Upload(ctx context.Context) error {
	_, err := a.spawn(func() error {
		return a.machine.Upload(ctx)
	})
	return err
}

// Send selects path and uploads it in one go.
func (a *App) Send(ctx context.Context, path string) error {
	f, err := filex.Open(path)
	if err != nil {
		fmt.Fprintf(a.out, "cannot open %s: %v\n", path, err)
		return err
	}

	started, err := a.spawn(func() error {
		a.swapFile(f)
		if err := a.machine.Select(ctx, f); err != nil {
			return err
		}
		return a.machine.Upload(ctx)
	})
	if !started {
		_ = f.Close()
	}
	return err
}

func (a *App) Cancel() error {
	if !a.machine.Cancel() {
		fmt.Fprintln(a.out, "nothing to cancel")
		return nil
	}
	fmt.Fprintln(a.out, "cancelling...")
	return nil
}

func (a *App) Reset() error {
	err := a.machine.Reset()
	a.report(err)
	return err
}

func (a *App) Status() error {
	s := a.machine.Snapshot()

	fmt.Fprintf(a.out, "state: %s", s.State)
	if s.State == upload.StateError {
		fmt.Fprintf(a.out, " (%s): %s", s.Kind, s.Message)
	}
	fmt.Fprintln(a.out)

	if s.FileName != "" {
		fmt.Fprintf(a.out, "file: %s (%d bytes)\n", s.FileName, s.FileSize)
	}
	switch s.State {
	case upload.StateCalculating:
		fmt.Fprintf(a.out, "digest: %.0f%%\n", s.HashProgress)
	case upload.StateUploading:
		fmt.Fprintf(a.out, "upload: %.0f%%\n", s.UploadProgress)
	}
	if s.Key != "" {
		fmt.Fprintf(a.out, "key: %s\n", s.Key)
	}
	return nil
}

// URL prints the object address of a finished upload, or of the already
// stored copy after a duplicate was detected.
func (a *App) URL() error {
	if url, ok := a.machine.ObjectURL(); ok {
		fmt.Fprintln(a.out, url)
		return nil
	}
	if url, ok := a.machine.ExistingObjectURL(); ok {
		fmt.Fprintf(a.out, "existing file: %s\n", url)
		return nil
	}
	fmt.Fprintln(a.out, "no object available")
	return nil
}

func (a *App) History(ctx context.Context) error {
	records, err := a.history.List(ctx, historyLimit)
	if err != nil {
		a.log.Error(ctx, "failed to list history", "error", err)
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "no uploads yet")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(a.out, "%s  %-40s  %10d  %s\n", r.UploadedAt.Local().Format("2006-01-02 15:04"), r.Key, r.Size, r.Name)
	}
	return nil
}

// Restore shows a previously uploaded object from the history as the current
// result.
func (a *App) Restore(ctx context.Context, key string) error {
	rec, err := a.history.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		fmt.Fprintf(a.out, "%s is not in the upload history\n", key)
		return err
	}
	if err != nil {
		return err
	}

	if err := a.machine.Restore(rec.Key, upload.FileInfo{Name: rec.Name, Size: rec.Size}); err != nil {
		a.report(err)
		return err
	}
	return a.URL()
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.gw.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		fmt.Fprintf(a.out, "gateway unavailable: %v\n", err)
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "gateway is serving")
	return nil
}

func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, common.ErrBusy):
		fmt.Fprintln(a.out, "busy: wait for the current operation or cancel it")
	case errors.Is(err, common.ErrCancelled):
		fmt.Fprintln(a.out, "cancelled")
	case errors.Is(err, common.ErrFileExists):
		if url, ok := a.machine.ExistingObjectURL(); ok {
			fmt.Fprintf(a.out, "file already exists: %s\n", url)
		}
	case errors.Is(err, common.ErrUnauthorized):
		fmt.Fprintln(a.out, "unauthorized: check the token")
	case errors.Is(err, common.ErrValidation):
		fmt.Fprintf(a.out, "invalid: %v\n", err)
	default:
		a.log.Debug(context.Background(), "operation failed", "error", err)
	}
}
