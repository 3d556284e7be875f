// Package session drives one multipart upload session against the gateway:
// begin, strictly sequential part transfer, then complete or abort.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/filex"
	"github.com/dmitrijs2005/casupload/internal/logging"
)

const DefaultAbortTimeout = 10 * time.Second

// Gateway is the remote side of a session.
type Gateway interface {
	Begin(ctx context.Context, key string) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error)
	Complete(ctx context.Context, key, uploadID string, parts []api.Part) (string, error)
	Abort(ctx context.Context, key, uploadID string) error
}

// Session is an open multipart upload. It is not safe for concurrent use.
type Session struct {
	Key      string
	UploadID string

	last   int
	closed bool
}

// Transferred is the number of the last acknowledged part.
func (s *Session) Transferred() int { return s.last }

type Manager struct {
	gw           Gateway
	log          logging.Logger
	window       int64
	abortTimeout time.Duration
}

func NewManager(gw Gateway, log logging.Logger, window int64) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	if window <= 0 {
		window = common.DefaultWindowSize
	}
	return &Manager{gw: gw, log: log, window: window, abortTimeout: DefaultAbortTimeout}
}

func (m *Manager) SetAbortTimeout(d time.Duration) { m.abortTimeout = d }

// Begin opens a session for key. common.ErrFileExists means the object is
// already stored and no session was created.
func (m *Manager) Begin(ctx context.Context, key string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCancelled, err)
	}

	id, err := m.gw.Begin(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrFileExists) {
			return nil, err
		}
		return nil, fmt.Errorf("begin %s: %w", key, err)
	}

	m.log.Debug(ctx, "session opened", "key", key, "upload_id", id)
	return &Session{Key: key, UploadID: id}, nil
}

// TransferPart sends part n, which must directly follow the last
// acknowledged one.
func (m *Manager) TransferPart(ctx context.Context, s *Session, n int, data []byte) (api.Part, error) {
	if s.closed {
		return api.Part{}, fmt.Errorf("%w: session %s is closed", common.ErrSessionNotFound, s.UploadID)
	}
	if n != s.last+1 {
		return api.Part{}, fmt.Errorf("%w: got %d after %d", common.ErrPartOrder, n, s.last)
	}
	if err := ctx.Err(); err != nil {
		return api.Part{}, fmt.Errorf("%w: %w", common.ErrCancelled, err)
	}

	etag, err := m.gw.UploadPart(ctx, s.Key, s.UploadID, n, data)
	if err != nil {
		return api.Part{}, fmt.Errorf("part %d: %w", n, err)
	}
	s.last = n

	m.log.Debug(ctx, "part uploaded", "upload_id", s.UploadID, "part", n, "size", len(data))
	return api.Part{PartNumber: n, ETag: etag}, nil
}

// Complete finalizes the session. The acknowledgment set is validated
// locally and a gap never reaches the gateway.
func (m *Manager) Complete(ctx context.Context, s *Session, parts []api.Part) (string, error) {
	if err := api.ValidateParts(parts); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrCancelled, err)
	}

	key, err := m.gw.Complete(ctx, s.Key, s.UploadID, parts)
	if err != nil {
		return "", fmt.Errorf("complete %s: %w", s.Key, err)
	}
	s.closed = true

	m.log.Info(ctx, "upload completed", "key", key, "parts", len(parts))
	return key, nil
}

// Abort releases the session on the gateway. It runs detached from ctx
// cancellation under its own timeout, and failures are only logged.
func (m *Manager) Abort(ctx context.Context, s *Session) {
	if s == nil || s.closed {
		return
	}
	s.closed = true

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.abortTimeout)
	defer cancel()

	if err := m.gw.Abort(actx, s.Key, s.UploadID); err != nil {
		m.log.Warn(ctx, "abort failed", "key", s.Key, "upload_id", s.UploadID, "error", err)
		return
	}
	m.log.Debug(ctx, "session aborted", "key", s.Key, "upload_id", s.UploadID)
}

// TransferAll uploads every part of f in order and returns the
// acknowledgments. It stops at the first failure or cancellation.
func (m *Manager) TransferAll(ctx context.Context, s *Session, f filex.File, progress func(float64)) ([]api.Part, error) {
	plan, err := Plan(f.Size(), m.window)
	if err != nil {
		return nil, err
	}

	acks := make([]api.Part, 0, len(plan))
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}

		data, err := filex.ReadWindow(f, p.Offset, p.Length)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %w", common.ErrReadFailed, p.Number, err)
		}

		ack, err := m.TransferPart(ctx, s, p.Number, data)
		if err != nil {
			return nil, err
		}
		acks = append(acks, ack)

		if progress != nil {
			progress(float64(p.Number) / float64(len(plan)) * 100)
		}
	}
	return acks, nil
}
