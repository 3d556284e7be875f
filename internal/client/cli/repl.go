package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	Select(ctx context.Context, path string) error
	Upload(ctx context.Context) error
	Send(ctx context.Context, path string) error
	Cancel() error
	Reset() error
	Status() error
	URL() error
	History(ctx context.Context) error
	Restore(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

const helpText = `Available commands:
  select <file>   compute the digest of a file
  upload          upload the selected file (retries after a failure)
  send <file>     select and upload
  cancel          stop the running digest or upload
  status          show the current state
  url             show the object address
  reset           clear a finished upload or error
  history         list recent uploads
  restore <key>   show an earlier upload from the history
  ping            check the gateway
  exit | quit     leave the program`

// runREPL reads commands line by line and dispatches them to a until EOF or
// "exit". Handler errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("casup %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]
		// file names may contain spaces
		arg := strings.Join(args, " ")

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "select", "s":
			if arg == "" {
				printlnFn("Usage: select <file>")
				continue
			}
			_ = a.Select(ctx, arg)

		case "upload", "u":
			_ = a.Upload(ctx)

		case "send":
			if arg == "" {
				printlnFn("Usage: send <file>")
				continue
			}
			_ = a.Send(ctx, arg)

		case "cancel", "c":
			_ = a.Cancel()

		case "reset":
			_ = a.Reset()

		case "status", "st":
			_ = a.Status()

		case "url":
			_ = a.URL()

		case "history", "h":
			_ = a.History(ctx)

		case "restore":
			if len(args) != 1 {
				printlnFn("Usage: restore <key>")
				continue
			}
			_ = a.Restore(ctx, args[0])

		case "ping":
			_ = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
