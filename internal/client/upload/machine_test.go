package upload

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/casupload/internal/api"
	"github.com/dmitrijs2005/casupload/internal/client/session"
	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/digest"
	"github.com/dmitrijs2005/casupload/internal/filex"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

type fakeGateway struct {
	mu sync.Mutex

	exists    bool
	beginErr  error
	beginHook func(ctx context.Context)
	failPart  int
	onPart    func(n int)
	stored    string

	begins    int
	parts     []int
	sizes     []int
	completes int
	aborted   []string
	nextID    int
}

func (f *fakeGateway) Begin(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	f.begins++
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	hook, exists, err := f.beginHook, f.exists, f.beginErr
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if exists {
		return "", common.ErrFileExists
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (f *fakeGateway) UploadPart(ctx context.Context, key, uploadID string, n int, data []byte) (string, error) {
	f.mu.Lock()
	f.parts = append(f.parts, n)
	f.sizes = append(f.sizes, len(data))
	fail, cb := f.failPart == n, f.onPart
	f.mu.Unlock()

	if cb != nil {
		cb(n)
	}
	if fail {
		return "", fmt.Errorf("%w: status 500", common.ErrGateway)
	}
	return fmt.Sprintf("etag-%d", n), nil
}

func (f *fakeGateway) Complete(ctx context.Context, key, uploadID string, parts []api.Part) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	if f.stored != "" {
		return f.stored, nil
	}
	return key, nil
}

func (f *fakeGateway) Abort(ctx context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, uploadID)
	return nil
}

type countingHasher struct {
	inner Hasher
	calls int
}

func (c *countingHasher) Compute(ctx context.Context, f filex.File, p digest.ProgressFunc) (digest.Digest, error) {
	c.calls++
	return c.inner.Compute(ctx, f, p)
}

// gatedHasher blocks until released or cancelled.
type gatedHasher struct {
	release chan struct{}
}

func (g *gatedHasher) Compute(ctx context.Context, f filex.File, p digest.ProgressFunc) (digest.Digest, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", common.ErrCancelled, ctx.Err())
	case <-g.release:
		return "d1", nil
	}
}

type recorder struct {
	mu        sync.Mutex
	states    []State
	successes []string
	infos     []FileInfo
	errs      []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnChange: func(s Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if len(r.states) == 0 || r.states[len(r.states)-1] != s.State {
				r.states = append(r.states, s.State)
			}
		},
		OnUploadSuccess: func(key string, info FileInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.successes = append(r.successes, key)
			r.infos = append(r.infos, info)
		},
		OnUploadError: func(msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, msg)
		},
	}
}

type fixture struct {
	m      *Machine
	gw     *fakeGateway
	hasher *countingHasher
	rec    *recorder
}

func newFixture(t *testing.T, window int64) *fixture {
	t.Helper()

	eng, err := digest.NewEngine(digest.MD5, window)
	require.NoError(t, err)

	gw := &fakeGateway{}
	h := &countingHasher{inner: eng}
	rec := &recorder{}
	mgr := session.NewManager(gw, nil, window)

	m := NewMachine(h, mgr, nil, Config{
		AllowedExtensions: []string{"pdf", "zip"},
		SiteURL:           "https://docs.example.com/",
	}, rec.hooks())

	return &fixture{m: m, gw: gw, hasher: h, rec: rec}
}

func content(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func md5hex(b []byte) string {
	s := md5.Sum(b)
	return hex.EncodeToString(s[:])
}

func TestUpload_ThreePartsInOrder(t *testing.T) {
	fx := newFixture(t, 5*mib)
	data := content(12 * mib)
	ctx := context.Background()

	require.NoError(t, fx.m.Select(ctx, filex.FromBytes("Notes.PDF", data)))
	snap := fx.m.Snapshot()
	require.Equal(t, StateCalculated, snap.State)
	require.Equal(t, md5hex(data)+".pdf", snap.Key)
	require.Equal(t, float64(100), snap.HashProgress)

	require.NoError(t, fx.m.Upload(ctx))

	snap = fx.m.Snapshot()
	require.Equal(t, StateSuccess, snap.State)
	require.Equal(t, md5hex(data)+".pdf", snap.Key)
	require.Equal(t, float64(100), snap.UploadProgress)

	require.Equal(t, 1, fx.hasher.calls)
	require.Equal(t, 1, fx.gw.begins)
	require.Equal(t, []int{1, 2, 3}, fx.gw.parts)
	require.Equal(t, []int{5 * mib, 5 * mib, 2 * mib}, fx.gw.sizes)
	require.Equal(t, 1, fx.gw.completes)
	require.Empty(t, fx.gw.aborted)

	require.Equal(t, []string{snap.Key}, fx.rec.successes)
	require.Equal(t, []FileInfo{{Name: "Notes.PDF", Size: 12 * mib}}, fx.rec.infos)
	require.Equal(t, []State{StateCalculating, StateCalculated, StatePreparing, StateUploading, StateSuccess}, fx.rec.states)

	url, ok := fx.m.ObjectURL()
	require.True(t, ok)
	require.Equal(t, "https://docs.example.com/files/"+snap.Key, url)
}

func TestSelect_RejectsExtension(t *testing.T) {
	fx := newFixture(t, 10)

	err := fx.m.Select(context.Background(), filex.FromBytes("image.png", content(100)))
	require.ErrorIs(t, err, common.ErrValidation)

	snap := fx.m.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, KindValidation, snap.Kind)
	require.Contains(t, snap.Message, "pdf, zip")
	require.Zero(t, fx.hasher.calls)
	require.Zero(t, fx.gw.begins)
	require.Empty(t, fx.rec.errs)

	require.ErrorIs(t, fx.m.Upload(context.Background()), common.ErrValidation)
	require.Zero(t, fx.gw.begins)
}

func TestSelect_RejectsEmptyAndExtensionless(t *testing.T) {
	fx := newFixture(t, 10)

	err := fx.m.Select(context.Background(), filex.FromBytes("empty.pdf", nil))
	require.ErrorIs(t, err, common.ErrValidation)
	require.Equal(t, KindValidation, fx.m.Snapshot().Kind)

	err = fx.m.Select(context.Background(), filex.FromBytes("README", content(10)))
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, fx.hasher.calls)
}

func TestUpload_FileExistsShortCircuits(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.exists = true
	data := content(35)

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.zip", data)))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrFileExists)

	snap := fx.m.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, KindAlreadyExists, snap.Kind)
	require.Equal(t, md5hex(data), snap.Digest)
	require.Equal(t, "zip", snap.Extension)
	require.Empty(t, fx.gw.parts)
	require.Empty(t, fx.gw.aborted)
	require.Empty(t, fx.rec.errs, "already exists is not reported as an upload error")

	url, ok := fx.m.ExistingObjectURL()
	require.True(t, ok)
	require.Equal(t, "https://docs.example.com/files/"+md5hex(data)+".zip", url)
}

func TestUpload_CancelMidTransferAbortsOnce(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.onPart = func(n int) {
		if n == 2 {
			require.True(t, fx.m.Cancel())
		}
	}

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.pdf", content(40))))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrCancelled)

	require.Equal(t, StateIdle, fx.m.Snapshot().State)
	require.Equal(t, []int{1, 2}, fx.gw.parts)
	require.Equal(t, []string{"upload-1"}, fx.gw.aborted)
	require.Zero(t, fx.gw.completes)
	require.Empty(t, fx.rec.errs)
}

func TestUpload_NetworkFailureThenRetry(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.failPart = 2

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.pdf", content(30))))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrGateway)

	snap := fx.m.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, KindNetworkFailure, snap.Kind)
	require.Equal(t, []string{"upload-1"}, fx.gw.aborted)
	require.Len(t, fx.rec.errs, 1)

	fx.gw.failPart = 0
	require.NoError(t, fx.m.Upload(context.Background()))
	require.Equal(t, StateSuccess, fx.m.Snapshot().State)
	require.Equal(t, 2, fx.gw.begins)
	require.Equal(t, []int{1, 2, 1, 2, 3}, fx.gw.parts, "retry restarts at part 1")
	require.Equal(t, 1, fx.hasher.calls, "digest is kept across retries")
}

func TestUpload_BeginFailure(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.beginErr = common.ErrUnavailable

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.pdf", content(5))))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)

	snap := fx.m.Snapshot()
	require.Equal(t, KindNetworkFailure, snap.Kind)
	require.Empty(t, fx.gw.aborted, "no session, nothing to abort")
	require.Len(t, fx.rec.errs, 1)
}

func TestUpload_KeyMismatchOnComplete(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.stored = "ffff.pdf"
	data := content(25)

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.pdf", data)))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrGateway)

	snap := fx.m.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, KindNetworkFailure, snap.Kind)
	require.Equal(t, md5hex(data)+".pdf", snap.Key, "derived key is kept")
	require.Empty(t, fx.rec.successes)

	_, ok := fx.m.ObjectURL()
	require.False(t, ok)
}

func TestUpload_CancelDuringPreparingAbortsLateSession(t *testing.T) {
	fx := newFixture(t, 10)
	fx.gw.beginHook = func(ctx context.Context) {
		fx.m.Cancel()
		<-ctx.Done()
	}

	require.NoError(t, fx.m.Select(context.Background(), filex.FromBytes("a.pdf", content(5))))
	err := fx.m.Upload(context.Background())
	require.ErrorIs(t, err, common.ErrCancelled)

	require.Equal(t, StateIdle, fx.m.Snapshot().State)
	require.Equal(t, []string{"upload-1"}, fx.gw.aborted)
	require.Empty(t, fx.gw.parts)
}

func TestUpload_NotReady(t *testing.T) {
	fx := newFixture(t, 10)
	require.ErrorIs(t, fx.m.Upload(context.Background()), common.ErrValidation)
	require.Zero(t, fx.gw.begins)
}

func TestSelect_HashFailure(t *testing.T) {
	fx := newFixture(t, 10)

	err := fx.m.Select(context.Background(), &brokenFile{MemFile: filex.FromBytes("a.pdf", content(30))})
	require.ErrorIs(t, err, common.ErrReadFailed)

	snap := fx.m.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, KindHashFailure, snap.Kind)
	require.Len(t, fx.rec.errs, 1)

	require.ErrorIs(t, fx.m.Upload(context.Background()), common.ErrValidation)
}

func TestBusyGuardAndCancelWhileCalculating(t *testing.T) {
	g := &gatedHasher{release: make(chan struct{})}
	gw := &fakeGateway{}
	m := NewMachine(g, session.NewManager(gw, nil, 10), nil, Config{AllowedExtensions: []string{"pdf"}}, Hooks{})

	done := make(chan error, 1)
	go func() { done <- m.Select(context.Background(), filex.FromBytes("a.pdf", content(10))) }()

	require.Eventually(t, func() bool { return m.Snapshot().State == StateCalculating }, time.Second, time.Millisecond)

	require.ErrorIs(t, m.Select(context.Background(), filex.FromBytes("b.pdf", content(10))), common.ErrBusy)
	require.ErrorIs(t, m.Upload(context.Background()), common.ErrBusy)
	require.ErrorIs(t, m.Reset(), common.ErrBusy)
	require.ErrorIs(t, m.Restore("abc.pdf", FileInfo{}), common.ErrBusy)

	require.True(t, m.Cancel())
	require.ErrorIs(t, <-done, common.ErrCancelled)
	require.Equal(t, StateIdle, m.Snapshot().State)
	require.False(t, m.Cancel(), "nothing left to cancel")
	require.Zero(t, gw.begins)
}

func TestSelect_RestartsFromCalculatedAndSuccess(t *testing.T) {
	fx := newFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, fx.m.Select(ctx, filex.FromBytes("a.pdf", content(5))))
	require.NoError(t, fx.m.Select(ctx, filex.FromBytes("a.pdf", content(5))))
	require.Equal(t, 2, fx.hasher.calls, "no digest caching")

	require.NoError(t, fx.m.Upload(ctx))
	require.NoError(t, fx.m.Select(ctx, filex.FromBytes("b.zip", content(7))))
	require.Equal(t, StateCalculated, fx.m.Snapshot().State)
}

func TestReset(t *testing.T) {
	fx := newFixture(t, 10)
	require.Error(t, fx.m.Select(context.Background(), filex.FromBytes("x.exe", content(5))))
	require.Equal(t, StateError, fx.m.Snapshot().State)
	require.NoError(t, fx.m.Reset())
	require.Equal(t, Snapshot{State: StateIdle}, fx.m.Snapshot())
}

func TestRestore(t *testing.T) {
	fx := newFixture(t, 10)

	require.NoError(t, fx.m.Restore("abc123.pdf", FileInfo{Name: "old.pdf", Size: 42}))
	snap := fx.m.Snapshot()
	require.Equal(t, StateSuccess, snap.State)
	require.Equal(t, "abc123", snap.Digest)
	require.Equal(t, "pdf", snap.Extension)
	require.Equal(t, int64(42), snap.FileSize)

	url, ok := fx.m.ObjectURL()
	require.True(t, ok)
	require.Equal(t, "https://docs.example.com/files/abc123.pdf", url)

	_, ok = fx.m.ExistingObjectURL()
	require.False(t, ok)

	for _, bad := range []string{"", "abc", ".pdf", "abc.", "a.b.pdf"} {
		require.ErrorIs(t, fx.m.Restore(bad, FileInfo{}), common.ErrValidation, bad)
	}
}

func TestStateStrings(t *testing.T) {
	require.Equal(t, "uploading", StateUploading.String())
	require.Equal(t, "unknown", State(99).String())
	require.Equal(t, "already exists", KindAlreadyExists.String())
	require.True(t, StatePreparing.Busy())
	require.False(t, StateError.Busy())
}

type brokenFile struct {
	*filex.MemFile
}

func (b *brokenFile) ReadAt(p []byte, off int64) (int, error) {
	if off > 0 {
		return 0, errors.New("device gone")
	}
	return b.MemFile.ReadAt(p, off)
}
