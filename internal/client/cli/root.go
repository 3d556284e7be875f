package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
)

func (a *App) getStatus() string {
	s := a.machine.Snapshot().State.String()
	if m := a.Mode(); m != "" {
		s = string(m) + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// Run starts the interactive REPL. Ctrl-C cancels the running operation
// instead of killing the process.
func (a *App) Run(ctx context.Context) {
	a.background = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	go a.cancelOnInterrupt(ctx, func() {
		if !a.machine.Cancel() {
			fmt.Fprintln(a.out, "\ntype 'exit' to quit")
		}
	})

	fmt.Fprintln(a.out, "casupload client (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

// RunOnce uploads path and returns when the upload is over. Ctrl-C cancels
// the upload and aborts the gateway session.
func (a *App) RunOnce(ctx context.Context, path string) error {
	a.background = false

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.cancelOnInterrupt(ctx, func() { a.machine.Cancel() })

	return a.Send(ctx, path)
}

func (a *App) cancelOnInterrupt(ctx context.Context, onSignal func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	for {
		select {
		case <-sig:
			onSignal()
		case <-ctx.Done():
			return
		}
	}
}
