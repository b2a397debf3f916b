package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Upload(ctx context.Context) error
	UploadFile(ctx context.Context, path string) error
	History(ctx context.Context) error
	ClearHistory(ctx context.Context) error
	ShowConfig(ctx context.Context) error
	Set(ctx context.Context, key, value string) error
}

const helpText = "Available commands: (u)pload, file <path>, (h)istory, clear, config, set <key> [value], help, exit"

// runREPL reads commands from reader and dispatches them to a until the
// user types "exit" or "quit", the input ends or ctx is cancelled. Handlers
// that prompt for more input read from the same reader.
//
// The prompt shows statusFn(). Handlers report their own errors, so the
// errors they return are only used to keep the loop going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("up2git %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		// the host may have started shutting down while we were blocked
		if ctx.Err() != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "u", "upload":
			_ = a.Upload(ctx)

		case "file":
			if len(args) == 0 {
				printlnFn("Usage: file <path>")
				continue
			}
			_ = a.UploadFile(ctx, strings.Join(args, " "))

		case "h", "history":
			_ = a.History(ctx)

		case "clear":
			_ = a.ClearHistory(ctx)

		case "config":
			_ = a.ShowConfig(ctx)

		case "set":
			if len(args) == 0 {
				printlnFn("Usage: set <token|repo|folder|branch> [value]")
				continue
			}
			_ = a.Set(ctx, args[0], strings.Join(args[1:], " "))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
