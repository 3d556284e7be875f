package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/logging"
	sc "github.com/dmitrijs2005/casupload/internal/server/config"
	"github.com/dmitrijs2005/casupload/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/casupload/internal/server/storage"
)

// keyPattern accepts "<lowercase hex digest>.<extension>".
var keyPattern = regexp.MustCompile(`^[0-9a-f]+\.[a-z0-9]+$`)

var timeNow = time.Now

// Object is what GET /files/{key} serves: either a redirect target or a body.
type Object struct {
	RedirectURL string
	Body        io.ReadCloser
	Size        int64
}

type UploadService struct {
	store    storage.ObjectStore
	sessions sessions.Repository
	config   *sc.Config
	logger   logging.Logger
}

func NewUploadService(store storage.ObjectStore, repo sessions.Repository, config *sc.Config, l logging.Logger) *UploadService {
	return &UploadService{
		store:    store,
		sessions: repo,
		config:   config,
		logger:   l.With("module", "upload_service"),
	}
}

// ValidateKey checks key shape and extension.
func (s *UploadService) ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: malformed key %q", common.ErrValidation, key)
	}
	ext := key[strings.LastIndexByte(key, '.')+1:]
	if len(s.config.AllowedExtensions) > 0 && !slices.Contains(s.config.AllowedExtensions, ext) {
		return fmt.Errorf("%w: extension %q is not allowed", common.ErrValidation, ext)
	}
	return nil
}

// Begin opens a multipart session for key on behalf of subject. A key that is
// already stored yields common.ErrFileExists and no session.
func (s *UploadService) Begin(ctx context.Context, subject, key string) (string, error) {
	if err := s.ValidateKey(key); err != nil {
		return "", err
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return "", common.ErrFileExists
	}

	uploadID, err := s.store.CreateMultipart(ctx, key)
	if err != nil {
		return "", err
	}

	err = s.sessions.Create(ctx, &sessions.Session{
		UploadID:  uploadID,
		Key:       key,
		Subject:   subject,
		CreatedAt: timeNow(),
	})
	if err != nil {
		if abortErr := s.store.AbortMultipart(context.WithoutCancel(ctx), key, uploadID); abortErr != nil {
			s.logger.Warn(ctx, "failed to abort unregistered session", "key", key, "upload_id", uploadID, "error", abortErr)
		}
		return "", fmt.Errorf("register session: %w", err)
	}

	s.logger.Info(ctx, "session started", "key", key, "upload_id", uploadID, "subject", subject)
	return uploadID, nil
}

func (s *UploadService) UploadPart(ctx context.Context, subject, key, uploadID string, partNumber int, data []byte) (string, error) {
	if partNumber < 1 || partNumber > common.MaxPartNumber {
		return "", fmt.Errorf("%w: part number %d out of range", common.ErrValidation, partNumber)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty part", common.ErrValidation)
	}
	if s.config.MaxPartSize > 0 && int64(len(data)) > s.config.MaxPartSize {
		return "", fmt.Errorf("%w: part of %d bytes exceeds %d", common.ErrValidation, len(data), s.config.MaxPartSize)
	}

	if _, err := s.session(ctx, subject, key, uploadID); err != nil {
		return "", err
	}

	etag, err := s.store.UploadPart(ctx, key, uploadID, partNumber, data)
	if err != nil {
		return "", err
	}

	s.logger.Debug(ctx, "part stored", "key", key, "upload_id", uploadID, "part", partNumber, "size", len(data))
	return etag, nil
}

func (s *UploadService) Complete(ctx context.Context, subject, key, uploadID string, parts []api.Part) (string, error) {
	if err := api.ValidateParts(parts); err != nil {
		return "", err
	}
	if _, err := s.session(ctx, subject, key, uploadID); err != nil {
		return "", err
	}

	completed := make([]storage.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = storage.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	if err := s.store.CompleteMultipart(ctx, key, uploadID, completed); err != nil {
		return "", err
	}

	if err := s.sessions.Delete(ctx, uploadID); err != nil {
		s.logger.Warn(ctx, "failed to drop completed session", "upload_id", uploadID, "error", err)
	}

	s.logger.Info(ctx, "upload completed", "key", key, "upload_id", uploadID, "parts", len(parts))
	return key, nil
}

func (s *UploadService) Abort(ctx context.Context, subject, key, uploadID string) error {
	if _, err := s.session(ctx, subject, key, uploadID); err != nil {
		return err
	}

	if err := s.store.AbortMultipart(ctx, key, uploadID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		return err
	}
	if err := s.sessions.Delete(ctx, uploadID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		return err
	}

	s.logger.Info(ctx, "upload aborted", "key", key, "upload_id", uploadID)
	return nil
}

// Open resolves the canonical object address. Stores that can presign get a
// redirect; others stream the body.
func (s *UploadService) Open(ctx context.Context, key string) (*Object, error) {
	if err := s.ValidateKey(key); err != nil {
		return nil, common.ErrorNotFound
	}

	if p, ok := s.store.(storage.Presigner); ok && s.config.PresignTTL > 0 {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, common.ErrorNotFound
		}
		url, err := p.PresignGet(ctx, key, s.config.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign: %w", err)
		}
		return &Object{RedirectURL: url}, nil
	}

	body, size, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Object{Body: body, Size: size}, nil
}

// ReapStale aborts sessions older than maxAge and returns how many were
// dropped.
func (s *UploadService) ReapStale(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.sessions.ListStale(ctx, timeNow().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	n := 0
	for _, sess := range stale {
		if err := s.store.AbortMultipart(ctx, sess.Key, sess.UploadID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
			s.logger.Error(ctx, "failed to abort stale session", "upload_id", sess.UploadID, "error", err)
			continue
		}
		if err := s.sessions.Delete(ctx, sess.UploadID); err != nil && !errors.Is(err, common.ErrSessionNotFound) {
			s.logger.Error(ctx, "failed to drop stale session", "upload_id", sess.UploadID, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		s.logger.Info(ctx, "reaped stale sessions", "count", n)
	}
	return n, nil
}

// IsReady reports whether both the store and the registry answer.
func (s *UploadService) IsReady(ctx context.Context) error {
	if err := s.store.IsReady(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.sessions.IsReady(ctx); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

// session loads uploadID and checks it belongs to subject and key. A foreign
// session is reported as missing.
func (s *UploadService) session(ctx context.Context, subject, key, uploadID string) (*sessions.Session, error) {
	sess, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if sess.Key != key || sess.Subject != subject {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, uploadID)
	}
	return sess, nil
}
