package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/casupload/internal/flagx"
)

func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-k", "-u", "-p", "-b", "-r", "-e", "-x", "-m", "-l", "-st", "-o", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port of the HTTP API")
	fs.StringVar(&config.HealthAddr, "g", config.HealthAddr, "address and port of the gRPC health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN (empty keeps sessions in memory)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.StringVar(&config.StorageBackend, "k", config.StorageBackend, "storage backend: memory or s3")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	extensions := fs.String("x", strings.Join(config.AllowedExtensions, ","), "allowed file extensions")
	fs.Int64Var(&config.MaxPartSize, "m", config.MaxPartSize, "maximum part size in bytes")
	presignTTL := fs.Int("l", int(config.PresignTTL.Minutes()), "presigned URL lifetime (in minutes)")
	sessionTTL := fs.Int("st", int(config.SessionTTL.Minutes()), "age after which an unfinished session is aborted (in minutes)")
	origins := fs.String("o", strings.Join(config.CORSOrigins, ","), "allowed CORS origins")
	fs.StringVar(&config.LogLevel, "log", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.AllowedExtensions = splitList(*extensions)
	config.PresignTTL = time.Duration(*presignTTL) * time.Minute
	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.CORSOrigins = splitCSV(*origins)
}
