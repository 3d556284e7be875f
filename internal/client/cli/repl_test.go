package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	calls []string
}

func (f *fakeExec) rec(s string) error { f.calls = append(f.calls, s); return nil }

func (f *fakeExec) Select(ctx context.Context, path string) error { return f.rec("select " + path) }
func (f *fakeExec) Upload(ctx context.Context) error              { return f.rec("upload") }
func (f *fakeExec) Send(ctx context.Context, path string) error   { return f.rec("send " + path) }
func (f *fakeExec) Cancel() error                                 { return f.rec("cancel") }
func (f *fakeExec) Reset() error                                  { return f.rec("reset") }
func (f *fakeExec) Status() error                                 { return f.rec("status") }
func (f *fakeExec) URL() error                                    { return f.rec("url") }
func (f *fakeExec) History(ctx context.Context) error             { return f.rec("history") }
func (f *fakeExec) Restore(ctx context.Context, key string) error { return f.rec("restore " + key) }
func (f *fakeExec) Ping(ctx context.Context) error                { return f.rec("ping") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"select my report.pdf",
		"",
		"upload",
		"status",
		"cancel",
		"url",
		"reset",
		"history",
		"restore abc.pdf",
		"ping",
		"send b.zip",
		"s c.pdf",
		"foobar",
		"exit",
		"upload",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(idle)" }, bufio.NewScanner(input))

	require.Equal(t, []string{
		"select my report.pdf", "upload", "status", "cancel", "url", "reset",
		"history", "restore abc.pdf", "ping", "send b.zip", "select c.pdf",
	}, exec.calls)
	require.Contains(t, *out, "Unknown command: foobar")
	require.Contains(t, *out, "Bye!")
	require.Contains(t, *out, "casup (idle)>")
}

func TestRunREPL_UsageAndEOF(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader("select\nsend\nrestore\nrestore a b\n")
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	require.Empty(t, exec.calls)
	require.Contains(t, *out, "Usage: select <file>")
	require.Contains(t, *out, "Usage: send <file>")
	require.Contains(t, *out, "Usage: restore <key>")
}
