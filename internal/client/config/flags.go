package config

import (
	"flag"
	"os"

	"github.com/akruglov/chatline/internal/flagx"
)

// parseFlags populates client Config fields from command-line flags.
//
// Supported flags:
//
//	-s string   server websocket URL (e.g., "ws://localhost:11111/ws")
//	-o string   data directory for history cache and attachments
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerURL, "s", config.ServerURL, "server websocket URL")
	fs.StringVar(&config.DataDir, "o", config.DataDir, "data directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
