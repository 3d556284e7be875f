package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/casupload/internal/flagx"
	"github.com/dmitrijs2005/casupload/internal/timex"
)

type JsonConfig struct {
	HTTPAddr              *string         `json:"http_addr"`
	HealthAddr            *string         `json:"health_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	StorageBackend        *string         `json:"storage_backend"`
	S3RootUser            *string         `json:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket"`
	S3Region              *string         `json:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint"`
	AllowedExtensions     []string        `json:"allowed_extensions"`
	MaxPartSize           *int64          `json:"max_part_size"`
	PresignTTL            *timex.Duration `json:"presign_ttl"`
	SessionTTL            *timex.Duration `json:"session_ttl"`
	CORSOrigins           []string        `json:"cors_origins"`
	LogLevel              *string         `json:"log_level"`
}

func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.HealthAddr, c.HealthAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.StorageBackend, c.StorageBackend)
	setIf(&config.S3RootUser, c.S3RootUser)
	setIf(&config.S3RootPassword, c.S3RootPassword)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.MaxPartSize, c.MaxPartSize)
	setIf(&config.LogLevel, c.LogLevel)
	if c.AllowedExtensions != nil {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.PresignTTL != nil {
		config.PresignTTL = c.PresignTTL.Duration
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
