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
	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Favorite(ctx context.Context, kind, id string) error
	MarkRead(ctx context.Context, id string) error
	Downloads(ctx context.Context) error
	RemoveDownload(ctx context.Context, id string) error
	Settings(ctx context.Context, args []string) error
	Track(ctx context.Context, args []string) error
	Flush(ctx context.Context) error
	ClearCache(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the Beacon client.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//	help                       — show available commands
//	status                     — connectivity, sync and queue snapshot
//	sync                       — trigger a content sync now
//	fav <kind> <id>            — toggle a favorite (devotional/video/audio)
//	read <id>                  — mark a devotional as read
//	downloads                  — list downloaded audio sermons
//	rmdownload <id>            — drop a download record
//	settings [<field> <value>] — show or change a setting
//	track <type> <id> <action> — record an analytics event
//	flush                      — push pending analytics now
//	clearcache                 — drop all cached content
//	exit | quit                — leave the program
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("beacon %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: status, sync, fav <kind> <id>, read <id>, downloads, rmdownload <id>, settings [<field> <value>], track <type> <id> <action>, flush, clearcache, exit")

		case "status":
			_ = a.Status(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "fav":
			if len(args) < 2 {
				printlnFn("Usage: fav <kind> <id>")
				continue
			}
			_ = a.Favorite(ctx, args[0], args[1])

		case "read":
			if len(args) == 0 {
				printlnFn("Usage: read <id>")
				continue
			}
			_ = a.MarkRead(ctx, args[0])

		case "downloads":
			_ = a.Downloads(ctx)

		case "rmdownload":
			if len(args) == 0 {
				printlnFn("Usage: rmdownload <id>")
				continue
			}
			_ = a.RemoveDownload(ctx, args[0])

		case "settings":
			_ = a.Settings(ctx, args)

		case "track":
			if len(args) < 3 {
				printlnFn("Usage: track <type> <id> <action>")
				continue
			}
			_ = a.Track(ctx, args)

		case "flush":
			_ = a.Flush(ctx)

		case "clearcache":
			_ = a.ClearCache(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
