package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://gw:9090", "-g", "gw:50051", "-t", "tok", "-e", "PDF, .zip,txt",
				"-w", "1024", "-alg", "blake3", "-d", "/tmp/h.db", "-s", "https://site", "-i", "10", "-v"},
			expected: &Config{
				GatewayURL:          "http://gw:9090",
				HealthAddr:          "gw:50051",
				Token:               "tok",
				AllowedExtensions:   []string{"pdf", "zip", "txt"},
				WindowSize:          1024,
				Algorithm:           "blake3",
				HistoryDSN:          "/tmp/h.db",
				SiteURL:             "https://site",
				OnlineCheckInterval: 10 * time.Second,
				Verbose:             true,
			},
		},
		{
			name: "positional file and config flag are ignored",
			args: []string{"cmd", "-c", "conf.json", "report.pdf", "-a", "http://gw"},
			expected: &Config{
				GatewayURL: "http://gw",
			},
		},
		{name: "incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
		{name: "incorrect window", args: []string{"cmd", "-w", "big"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"pdf"}, splitList(" .PDF ,, "))
}
