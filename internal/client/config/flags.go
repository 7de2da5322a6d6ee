package config

import (
	"flag"
	"os"
	"time"

	"github.com/zeroeau/washpro-technician/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the dispatch backend (default from Config)
//	-k string   service key for the admin API
//	-d string   path of the local database file
//	-i int      background sync interval in seconds
//
// The function filters os.Args to only the flags it knows about, using
// flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the dispatch backend")
	fs.StringVar(&cfg.AdminKey, "k", cfg.AdminKey, "service key for the admin API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database file")
	pollInterval := fs.Int("i", int(cfg.PollInterval.Seconds()), "background sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
}
