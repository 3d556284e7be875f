// Package config loads the gateway configuration.
//
// Sources, later ones win: built-in defaults, an optional JSON file (-c or
// -config), environment variables prefixed with CASUP_ (a .env file in the
// working directory is read first), then command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/casupload/internal/common"
)

const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

type Config struct {
	HTTPAddr              string
	HealthAddr            string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	StorageBackend        string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
	AllowedExtensions     []string
	MaxPartSize           int64
	PresignTTL            time.Duration
	SessionTTL            time.Duration
	CORSOrigins           []string
	LogLevel              string
}

func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.HealthAddr = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.StorageBackend = StorageMemory
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "files"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.AllowedExtensions = []string{"pdf", "zip"}
	c.MaxPartSize = 4 * common.DefaultWindowSize
	c.PresignTTL = 15 * time.Minute
	c.SessionTTL = 24 * time.Hour
	c.CORSOrigins = []string{"*"}
	c.LogLevel = "info"
}

// Validate checks the merged result of all sources.
func (c *Config) Validate() error {
	if c.MaxPartSize <= 0 {
		return fmt.Errorf("%w: max part size must be a positive number of bytes, got %d", common.ErrValidation, c.MaxPartSize)
	}
	return nil
}

// LoadConfig panics when a source is malformed or the merged config is invalid.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
