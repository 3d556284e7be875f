// Package upload implements the client upload lifecycle: pick a file, hash
// it, then push it through a gateway session, with cancellation at any point.
//
// Select and Upload block until the step they start is over. Cancel may be
// called from any goroutine and makes the running step return
// common.ErrCancelled after the machine is back in StateIdle.
package upload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/client/session"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/digest"
	"github.com/dmitrijs2005/casupload/internal/filex"
	"github.com/dmitrijs2005/casupload/internal/logging"
)

type Hasher interface {
	Compute(ctx context.Context, f filex.File, progress digest.ProgressFunc) (digest.Digest, error)
}

type Sessions interface {
	Begin(ctx context.Context, key string) (*session.Session, error)
	TransferAll(ctx context.Context, s *session.Session, f filex.File, progress func(float64)) ([]api.Part, error)
	Complete(ctx context.Context, s *session.Session, parts []api.Part) (string, error)
	Abort(ctx context.Context, s *session.Session)
}

type Config struct {
	AllowedExtensions []string
	// SiteURL prefixes canonical object addresses.
	SiteURL string
}

type Machine struct {
	hasher   Hasher
	sessions Sessions
	log      logging.Logger
	cfg      Config
	hooks    Hooks

	mu      sync.Mutex
	snap    Snapshot
	file    filex.File
	cancel  context.CancelFunc
	attempt uint64
}

func NewMachine(h Hasher, s Sessions, log logging.Logger, cfg Config, hooks Hooks) *Machine {
	if log == nil {
		log = logging.Nop()
	}
	return &Machine{hasher: h, sessions: s, log: log, cfg: cfg, hooks: hooks}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Select validates f and computes its digest. Any previous selection or
// result is discarded.
func (m *Machine) Select(ctx context.Context, f filex.File) error {
	m.mu.Lock()
	if m.snap.State.Busy() {
		m.mu.Unlock()
		return common.ErrBusy
	}

	ext := filex.Extension(f.Name())
	if err := m.validate(f, ext); err != nil {
		m.file = nil
		m.snap = Snapshot{
			State:     StateError,
			Kind:      KindValidation,
			Message:   err.Error(),
			FileName:  f.Name(),
			FileSize:  f.Size(),
			Extension: ext,
		}
		snap := m.snap
		m.mu.Unlock()

		m.emit(snap)
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	m.file = f
	m.snap = Snapshot{
		State:     StateCalculating,
		FileName:  f.Name(),
		FileSize:  f.Size(),
		Extension: ext,
	}
	actx, attempt := m.startLocked(ctx)
	snap := m.snap
	m.mu.Unlock()

	m.emit(snap)

	d, err := m.hasher.Compute(actx, f, func(p float64) {
		m.update(attempt, func(s *Snapshot) { s.HashProgress = p })
	})

	m.mu.Lock()
	m.finishLocked(attempt)

	switch {
	case errors.Is(err, common.ErrCancelled):
		m.resetLocked()
		snap = m.snap
		m.mu.Unlock()

		m.log.Debug(ctx, "digest cancelled", "file", f.Name())
		m.emit(snap)
		return err

	case err != nil:
		m.snap.State = StateError
		m.snap.Kind = KindHashFailure
		m.snap.Message = "failed to compute file digest"
		snap = m.snap
		m.mu.Unlock()

		m.log.Error(ctx, "digest failed", "file", f.Name(), "error", err)
		m.emit(snap)
		m.fail(snap.Message)
		return err
	}

	m.snap.State = StateCalculated
	m.snap.Digest = d.String()
	m.snap.Key = d.Key(ext)
	m.snap.HashProgress = 100
	snap = m.snap
	m.mu.Unlock()

	m.log.Debug(ctx, "digest ready", "file", f.Name(), "key", snap.Key)
	m.emit(snap)
	return nil
}

// Upload pushes the selected file through a new gateway session. From
// StateError it is a retry that starts again at part 1.
func (m *Machine) Upload(ctx context.Context) error {
	m.mu.Lock()
	if m.snap.State.Busy() {
		m.mu.Unlock()
		return common.ErrBusy
	}
	if !m.uploadableLocked() {
		st := m.snap.State
		m.mu.Unlock()
		return fmt.Errorf("%w: nothing to upload in state %s", common.ErrValidation, st)
	}

	f, key := m.file, m.snap.Key
	m.snap.State = StatePreparing
	m.snap.Kind = KindNone
	m.snap.Message = ""
	m.snap.UploadProgress = 0
	actx, attempt := m.startLocked(ctx)
	snap := m.snap
	m.mu.Unlock()

	m.emit(snap)

	s, err := m.sessions.Begin(actx, key)
	if actx.Err() != nil {
		// begin may have succeeded on the gateway even though we gave up
		if s != nil {
			m.sessions.Abort(ctx, s)
		}
		return m.cancelled(ctx, attempt)
	}
	if err != nil {
		if errors.Is(err, common.ErrFileExists) {
			m.mu.Lock()
			m.finishLocked(attempt)
			m.snap.State = StateError
			m.snap.Kind = KindAlreadyExists
			m.snap.Message = "file already exists"
			snap = m.snap
			m.mu.Unlock()

			m.log.Info(ctx, "file already exists", "key", key)
			m.emit(snap)
			return err
		}
		return m.networkFailure(ctx, attempt, err)
	}

	m.update(attempt, func(s *Snapshot) { s.State = StateUploading })

	acks, err := m.sessions.TransferAll(actx, s, f, func(p float64) {
		m.update(attempt, func(s *Snapshot) { s.UploadProgress = p })
	})
	if err == nil {
		var stored string
		stored, err = m.sessions.Complete(actx, s, acks)
		if err == nil && stored != key {
			err = fmt.Errorf("%w: gateway stored %q instead of %q", common.ErrGateway, stored, key)
		}
	}
	if err != nil {
		m.sessions.Abort(ctx, s)
		if errors.Is(err, common.ErrCancelled) || actx.Err() != nil {
			return m.cancelled(ctx, attempt)
		}
		return m.networkFailure(ctx, attempt, err)
	}

	m.mu.Lock()
	m.finishLocked(attempt)
	m.snap.State = StateSuccess
	m.snap.UploadProgress = 100
	snap = m.snap
	m.mu.Unlock()

	m.log.Info(ctx, "upload succeeded", "key", key, "size", snap.FileSize)
	m.emit(snap)
	if m.hooks.OnUploadSuccess != nil {
		m.hooks.OnUploadSuccess(key, FileInfo{Name: snap.FileName, Size: snap.FileSize})
	}
	return nil
}

// Cancel stops the running step, if any. It reports whether there was one.
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Reset returns a finished machine to StateIdle.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if m.snap.State.Busy() {
		m.mu.Unlock()
		return common.ErrBusy
	}
	m.resetLocked()
	snap := m.snap
	m.mu.Unlock()

	m.emit(snap)
	return nil
}

// Restore enters StateSuccess for an object uploaded earlier, identified by
// its key.
func (m *Machine) Restore(key string, info FileInfo) error {
	d, ext, ok := strings.Cut(key, ".")
	if !ok || d == "" || ext == "" || strings.Contains(ext, ".") {
		return fmt.Errorf("%w: malformed key %q", common.ErrValidation, key)
	}

	m.mu.Lock()
	if m.snap.State.Busy() {
		m.mu.Unlock()
		return common.ErrBusy
	}
	m.file = nil
	m.snap = Snapshot{
		State:          StateSuccess,
		FileName:       info.Name,
		FileSize:       info.Size,
		Extension:      ext,
		Digest:         d,
		Key:            key,
		HashProgress:   100,
		UploadProgress: 100,
	}
	snap := m.snap
	m.mu.Unlock()

	m.emit(snap)
	return nil
}

// ObjectURL is the canonical address of the uploaded object in StateSuccess.
func (m *Machine) ObjectURL() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateSuccess {
		return "", false
	}
	return m.objectURL(m.snap.Key), true
}

// ExistingObjectURL is the address of the already stored object when the
// last upload ended with KindAlreadyExists.
func (m *Machine) ExistingObjectURL() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != StateError || m.snap.Kind != KindAlreadyExists {
		return "", false
	}
	return m.objectURL(m.snap.Digest + "." + m.snap.Extension), true
}

func (m *Machine) objectURL(key string) string {
	return strings.TrimRight(m.cfg.SiteURL, "/") + api.ObjectPath(key)
}

func (m *Machine) validate(f filex.File, ext string) error {
	if len(m.cfg.AllowedExtensions) > 0 && (ext == "" || !slices.Contains(m.cfg.AllowedExtensions, ext)) {
		return fmt.Errorf("only %s files are supported", strings.Join(m.cfg.AllowedExtensions, ", "))
	}
	if ext == "" {
		return errors.New("file name has no extension")
	}
	if f.Size() == 0 {
		return errors.New("file is empty")
	}
	return nil
}

func (m *Machine) uploadableLocked() bool {
	if m.file == nil || m.snap.Key == "" {
		return false
	}
	return m.snap.State == StateCalculated || m.snap.State == StateError
}

func (m *Machine) startLocked(ctx context.Context) (context.Context, uint64) {
	actx, cancel := context.WithCancel(ctx)
	m.attempt++
	m.cancel = cancel
	return actx, m.attempt
}

func (m *Machine) finishLocked(attempt uint64) {
	if attempt != m.attempt || m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
}

func (m *Machine) resetLocked() {
	m.file = nil
	m.snap = Snapshot{State: StateIdle}
}

// update mutates the snapshot of a still running attempt and notifies.
func (m *Machine) update(attempt uint64, fn func(*Snapshot)) {
	m.mu.Lock()
	if attempt != m.attempt || m.cancel == nil {
		m.mu.Unlock()
		return
	}
	fn(&m.snap)
	snap := m.snap
	m.mu.Unlock()

	m.emit(snap)
}

func (m *Machine) cancelled(ctx context.Context, attempt uint64) error {
	m.mu.Lock()
	m.finishLocked(attempt)
	m.resetLocked()
	snap := m.snap
	m.mu.Unlock()

	m.log.Info(ctx, "upload cancelled")
	m.emit(snap)
	return common.ErrCancelled
}

func (m *Machine) networkFailure(ctx context.Context, attempt uint64, err error) error {
	m.mu.Lock()
	m.finishLocked(attempt)
	m.snap.State = StateError
	m.snap.Kind = KindNetworkFailure
	m.snap.Message = err.Error()
	snap := m.snap
	m.mu.Unlock()

	m.log.Error(ctx, "upload failed", "key", snap.Key, "error", err)
	m.emit(snap)
	m.fail(snap.Message)
	return err
}

func (m *Machine) emit(s Snapshot) {
	if m.hooks.OnChange != nil {
		m.hooks.OnChange(s)
	}
}

func (m *Machine) fail(msg string) {
	if m.hooks.OnUploadError != nil {
		m.hooks.OnUploadError(msg)
	}
}
