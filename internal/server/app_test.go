package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/casupload/internal/server/config"
	"github.com/dmitrijs2005/casupload/internal/server/storage"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestNewApp_MemoryBackends(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	require.IsType(t, &storage.MemoryStore{}, app.store)
	require.Nil(t, app.db)
	require.NoError(t, app.Close())
}

func TestNewApp_UnknownBackend(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = "ftp"

	_, err := NewApp(context.Background(), c)
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = freeAddr(t)
	c.HealthAddr = freeAddr(t)

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + c.HTTPAddr + "/files/0cc175b9c0f1b6a831c399e269772661.pdf")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 3*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
