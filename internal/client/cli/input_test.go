package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubTerminal(t *testing.T, tty bool, pw []byte, err error) {
	t.Helper()
	origRead, origTTY := readPassword, isTerminal
	readPassword = func(int) ([]byte, error) { return pw, err }
	isTerminal = func(int) bool { return tty }
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTTY })
}

func TestPromptToken(t *testing.T) {
	t.Run("reads token without echo", func(t *testing.T) {
		stubTerminal(t, true, []byte("  tok-123 \n"), nil)
		var out bytes.Buffer
		tok, err := promptToken(&out)
		require.NoError(t, err)
		require.Equal(t, "tok-123", tok)
		require.Contains(t, out.String(), "Enter token: ")
	})

	t.Run("not a terminal", func(t *testing.T) {
		stubTerminal(t, false, nil, nil)
		_, err := promptToken(&bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("read error", func(t *testing.T) {
		stubTerminal(t, true, nil, errors.New("eof"))
		_, err := promptToken(&bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("empty token", func(t *testing.T) {
		stubTerminal(t, true, []byte("   "), nil)
		_, err := promptToken(&bytes.Buffer{})
		require.Error(t, err)
	})
}
