package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/casupload/internal/flagx"
	"github.com/dmitrijs2005/casupload/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key from a zero value.
type JsonConfig struct {
	GatewayURL          *string         `json:"gateway_url"`
	HealthAddr          *string         `json:"health_addr"`
	Token               *string         `json:"token"`
	AllowedExtensions   []string        `json:"allowed_extensions"`
	WindowSize          *int64          `json:"window_size"`
	Algorithm           *string         `json:"algorithm"`
	HistoryDSN          *string         `json:"history_dsn"`
	SiteURL             *string         `json:"site_url"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	Verbose             *bool           `json:"verbose"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.GatewayURL, jc.GatewayURL)
	setIf(&cfg.HealthAddr, jc.HealthAddr)
	setIf(&cfg.Token, jc.Token)
	setIf(&cfg.WindowSize, jc.WindowSize)
	setIf(&cfg.Algorithm, jc.Algorithm)
	setIf(&cfg.HistoryDSN, jc.HistoryDSN)
	setIf(&cfg.SiteURL, jc.SiteURL)
	setIf(&cfg.Verbose, jc.Verbose)
	if jc.AllowedExtensions != nil {
		cfg.AllowedExtensions = jc.AllowedExtensions
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
