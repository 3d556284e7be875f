// Package storage holds the object stores behind the gateway: an S3 (or
// S3-compatible) multipart store and an in-memory one for development and
// tests.
package storage

import (
	"context"
	"io"
	"time"
)

// CompletedPart acknowledges one stored part of a multipart session.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// ObjectStore is the subset of multipart object storage the gateway relies on.
//
// Errors are mapped onto the common sentinels: a missing object is
// common.ErrorNotFound, an unknown session is common.ErrSessionNotFound and a
// rejected part list is common.ErrInvalidParts.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	CreateMultipart(ctx context.Context, key string) (string, error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error
	AbortMultipart(ctx context.Context, key, uploadID string) error
	// Get opens a stored object. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	IsReady(ctx context.Context) error
}

// Presigner is implemented by stores that can hand out time-limited direct
// download links.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
