package config

import (
	"flag"
	"os"
	"time"

	"github.com/akruglov/chatline/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   websocket bind address (e.g., ":11111")
//	-d string   PostgreSQL DSN
//	-t int      session token validity, hours
//	-l int      inbound frame size limit, bytes
//	-q int      per-connection outbound queue length, frames
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the -c/-config JSON flags.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-l", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	tokenValidity := fs.Int("t", int(config.TokenValidity.Hours()), "session token validity (in hours)")
	fs.Int64Var(&config.ReadLimit, "l", config.ReadLimit, "inbound frame size limit (bytes)")
	fs.IntVar(&config.SendBuffer, "q", config.SendBuffer, "outbound queue length (frames)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*tokenValidity) * time.Hour
}
