package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/casupload/internal/flagx"
)

var valueFlags = []string{"-a", "-g", "-t", "-e", "-w", "-alg", "-d", "-s", "-i"}

// ValueFlags lists every client flag that takes a value, the config file
// flags included.
var ValueFlags = append(append([]string{}, valueFlags...), "-c", "-config")

// parseFlags populates Config fields from command-line flags. Unknown
// arguments are filtered out first, so positional arguments are left alone.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], valueFlags, "-v")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayURL, "a", cfg.GatewayURL, "base URL of the upload gateway")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address of the gateway health endpoint")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "bearer token")
	extensions := fs.String("e", strings.Join(cfg.AllowedExtensions, ","), "allowed file extensions")
	fs.Int64Var(&cfg.WindowSize, "w", cfg.WindowSize, "window size in bytes")
	fs.StringVar(&cfg.Algorithm, "alg", cfg.Algorithm, "digest algorithm")
	fs.StringVar(&cfg.HistoryDSN, "d", cfg.HistoryDSN, "history database path")
	fs.StringVar(&cfg.SiteURL, "s", cfg.SiteURL, "public site URL")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AllowedExtensions = splitList(*extensions)
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(p), "."))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
