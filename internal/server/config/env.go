package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CASUP_"

// dotEnvFile is loaded into the process environment when present. Variables
// already set are not overridden.
var dotEnvFile = ".env"

// parseEnv overlays config with CASUP_* variables, e.g. CASUP_HTTP_ADDR or
// CASUP_PRESIGN_TTL=10m. It panics on malformed values.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		panic(err)
	}

	str := func(key string, dst *string) {
		if k.Exists(key) {
			*dst = k.String(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if k.Exists(key) {
			d, err := time.ParseDuration(k.String(key))
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("http_addr", &config.HTTPAddr)
	str("health_addr", &config.HealthAddr)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	str("storage_backend", &config.StorageBackend)
	str("s3_root_user", &config.S3RootUser)
	str("s3_root_password", &config.S3RootPassword)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("log_level", &config.LogLevel)
	dur("token_validity_duration", &config.TokenValidityDuration)
	dur("presign_ttl", &config.PresignTTL)
	dur("session_ttl", &config.SessionTTL)

	if k.Exists("allowed_extensions") {
		config.AllowedExtensions = splitList(k.String("allowed_extensions"))
	}
	if k.Exists("cors_origins") {
		config.CORSOrigins = splitCSV(k.String("cors_origins"))
	}
	if k.Exists("max_part_size") {
		// non-numeric values read as 0 and are rejected by Validate
		config.MaxPartSize = k.Int64("max_part_size")
	}
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

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
