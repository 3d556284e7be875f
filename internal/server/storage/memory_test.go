package storage

import (
	"context"
	"io"
	"testing"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MultipartRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Exists(ctx, "abc.pdf")
	require.NoError(t, err)
	require.False(t, ok)

	id, err := s.CreateMultipart(ctx, "abc.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	e1, err := s.UploadPart(ctx, "abc.pdf", id, 1, []byte("hello "))
	require.NoError(t, err)
	e2, err := s.UploadPart(ctx, "abc.pdf", id, 2, []byte("world"))
	require.NoError(t, err)
	require.Equal(t, "5d41402abc4b2a76b9719d911017c592", mustMD5(t, "hello"))
	require.NotEqual(t, e1, e2)

	err = s.CompleteMultipart(ctx, "abc.pdf", id, []CompletedPart{{1, e1}, {2, e2}})
	require.NoError(t, err)

	ok, err = s.Exists(ctx, "abc.pdf")
	require.NoError(t, err)
	require.True(t, ok)

	rc, size, err := s.Get(ctx, "abc.pdf")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(b))
	require.EqualValues(t, 11, size)

	// the session is gone after completion
	_, err = s.UploadPart(ctx, "abc.pdf", id, 3, []byte("x"))
	require.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestMemoryStore_CompleteRejectsUnknownEtag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.CreateMultipart(ctx, "k.zip")
	require.NoError(t, err)
	_, err = s.UploadPart(ctx, "k.zip", id, 1, []byte("a"))
	require.NoError(t, err)

	err = s.CompleteMultipart(ctx, "k.zip", id, []CompletedPart{{1, "bogus"}})
	require.ErrorIs(t, err, common.ErrInvalidParts)

	err = s.CompleteMultipart(ctx, "k.zip", id, []CompletedPart{{2, "x"}})
	require.ErrorIs(t, err, common.ErrInvalidParts)
}

func TestMemoryStore_AbortAndKeyMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.CreateMultipart(ctx, "k.zip")
	require.NoError(t, err)

	_, err = s.UploadPart(ctx, "other.zip", id, 1, []byte("a"))
	require.ErrorIs(t, err, common.ErrSessionNotFound)

	require.NoError(t, s.AbortMultipart(ctx, "k.zip", id))
	require.ErrorIs(t, s.AbortMultipart(ctx, "k.zip", id), common.ErrSessionNotFound)

	_, _, err = s.Get(ctx, "k.zip")
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, s.IsReady(ctx))
}

func mustMD5(t *testing.T, s string) string {
	t.Helper()
	st := NewMemoryStore()
	id, err := st.CreateMultipart(context.Background(), "x.pdf")
	require.NoError(t, err)
	etag, err := st.UploadPart(context.Background(), "x.pdf", id, 1, []byte(s))
	require.NoError(t, err)
	return etag
}
