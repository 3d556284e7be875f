// Package sessions is the gateway's registry of open multipart sessions.
// A session is recorded on begin and removed on complete or abort, so the
// gateway can refuse parts for sessions it never opened and reap the ones
// clients walked away from.
package sessions

import (
	"context"
	"time"
)

type Session struct {
	UploadID  string
	Key       string
	Subject   string
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, s *Session) error
	// Get returns common.ErrSessionNotFound for an unknown upload id.
	Get(ctx context.Context, uploadID string) (*Session, error)
	Delete(ctx context.Context, uploadID string) error
	// ListStale returns sessions created before the given time.
	ListStale(ctx context.Context, before time.Time) ([]*Session, error)
	IsReady(ctx context.Context) error
}
