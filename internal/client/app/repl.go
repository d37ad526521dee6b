package app

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Say(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string) error
	SendImage(ctx context.Context, path string) error
	Read(ctx context.Context, amount, offset int64) error
	Local(ctx context.Context, limit int) error
}

// runREPL reads lines from the scanner until EOF or an exit command.
//
// A line that does not start with '.' is sent as a chat message. Dot
// commands:
//
//	.file <path>       — send a file attachment
//	.image <path>      — send an image attachment
//	.read <n> [offset] — request the n most recent messages from the server
//	.local <n>         — list the n most recent locally cached messages
//
// "help" shows the command list, "exit" or "quit" leaves the program.
// Errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "help":
			printlnFn("Type a message and press Enter to send it.")
			printlnFn("Commands: .file <path>, .image <path>, .read <n> [offset], .local <n>, exit")
			continue
		case line == "exit" || line == "quit":
			printlnFn("Bye!")
			return
		case !strings.HasPrefix(line, "."):
			_ = a.Say(ctx, line)
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case ".file":
			if len(parts) != 2 {
				printlnFn("Usage: .file <path>")
				continue
			}
			_ = a.SendFile(ctx, parts[1])

		case ".image":
			if len(parts) != 2 {
				printlnFn("Usage: .image <path>")
				continue
			}
			_ = a.SendImage(ctx, parts[1])

		case ".read":
			if len(parts) != 2 && len(parts) != 3 {
				printlnFn("Usage: .read <n> [offset]")
				continue
			}
			amount, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil || amount < 0 {
				printlnFn("Usage: .read <n> [offset]")
				continue
			}
			var offset int64
			if len(parts) == 3 {
				offset, err = strconv.ParseInt(parts[2], 10, 64)
				if err != nil || offset < 0 {
					printlnFn("Usage: .read <n> [offset]")
					continue
				}
			}
			_ = a.Read(ctx, amount, offset)

		case ".local":
			if len(parts) != 2 {
				printlnFn("Usage: .local <n>")
				continue
			}
			limit, err := strconv.Atoi(parts[1])
			if err != nil || limit < 0 {
				printlnFn("Usage: .local <n>")
				continue
			}
			_ = a.Local(ctx, limit)

		default:
			printlnFn("Unknown command:", parts[0])
		}
	}
}
