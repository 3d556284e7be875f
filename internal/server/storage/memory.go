package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/google/uuid"
)

type memoryUpload struct {
	key   string
	parts map[int][]byte
	etags map[int]string
}

// MemoryStore keeps objects and open sessions in process memory. Part etags
// are the hex MD5 of the part body, as S3 reports them for unencrypted parts.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string]*memoryUpload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		uploads: make(map[string]*memoryUpload),
	}
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) CreateMultipart(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.uploads[id] = &memoryUpload{
		key:   key,
		parts: make(map[int][]byte),
		etags: make(map[int]string),
	}
	return id, nil
}

func (s *MemoryStore) UploadPart(ctx context.Context, key, uploadID string, partNumber int, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.upload(key, uploadID)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(data)
	etag := hex.EncodeToString(sum[:])
	u.parts[partNumber] = bytes.Clone(data)
	u.etags[partNumber] = etag
	return etag, nil
}

func (s *MemoryStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.upload(key, uploadID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, p := range parts {
		etag, ok := u.etags[p.PartNumber]
		if !ok || etag != p.ETag {
			return fmt.Errorf("%w: part %d not acknowledged", common.ErrInvalidParts, p.PartNumber)
		}
		buf.Write(u.parts[p.PartNumber])
	}

	s.objects[key] = buf.Bytes()
	delete(s.uploads, uploadID)
	return nil
}

func (s *MemoryStore) AbortMultipart(ctx context.Context, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.upload(key, uploadID); err != nil {
		return err
	}
	delete(s.uploads, uploadID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.objects[key]
	if !ok {
		return nil, 0, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (s *MemoryStore) IsReady(ctx context.Context) error { return nil }

// upload must be called with s.mu held.
func (s *MemoryStore) upload(key, uploadID string) (*memoryUpload, error) {
	u, ok := s.uploads[uploadID]
	if !ok || u.key != key {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, uploadID)
	}
	return u, nil
}
