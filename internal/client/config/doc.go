// Package config loads runtime configuration for the upload client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the upload gateway
//	-g string   host:port of the gateway gRPC health endpoint
//	-t string   bearer token
//	-e string   comma separated list of allowed extensions
//	-w int      window size in bytes, used for hashing and for parts
//	-alg string digest algorithm (md5, sha256, blake2b, blake3)
//	-d string   path of the local history database
//	-s string   public site URL used to build object links
//	-i int      online status check interval (seconds)
//	-v          verbose logging
//
// # JSON schema
//
//	{
//	  "gateway_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "token": "...",
//	  "allowed_extensions": ["pdf", "zip"],
//	  "window_size": 5242880,
//	  "algorithm": "md5",
//	  "history_dsn": "/home/me/.config/casupload/history.db",
//	  "site_url": "https://docs.example.com",
//	  "online_check_interval": "3s",
//	  "verbose": false
//	}
//
// Only the keys present in the file override earlier values.
package config
