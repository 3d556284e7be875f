package config

import (
	"time"

	"github.com/dmitrijs2005/casupload/internal/common"
	"github.com/dmitrijs2005/casupload/internal/digest"
)

type Config struct {
	GatewayURL          string
	HealthAddr          string
	Token               string
	AllowedExtensions   []string
	WindowSize          int64
	Algorithm           string
	HistoryDSN          string
	SiteURL             string
	OnlineCheckInterval time.Duration
	Verbose             bool
}

func (c *Config) LoadDefaults() {
	c.GatewayURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.AllowedExtensions = []string{"pdf", "zip"}
	c.WindowSize = common.DefaultWindowSize
	c.Algorithm = string(digest.MD5)
	c.OnlineCheckInterval = 3 * time.Second
}

// PublicURL is the base of object links, the gateway itself unless a site
// URL is configured.
func (c *Config) PublicURL() string {
	if c.SiteURL != "" {
		return c.SiteURL
	}
	return c.GatewayURL
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
