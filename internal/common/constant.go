// Package common contains shared constants and sentinel errors used by the
// upload client and the gateway.
package common

const (
	// AuthorizationHeaderName carries the bearer token on gateway requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// CodeFileExists is returned by the gateway when an object with the
	// requested key is already stored.
	CodeFileExists = "FILE_EXISTS"

	// CodeInvalidParts is returned when a completion request carries a
	// non-contiguous or malformed acknowledgment set.
	CodeInvalidParts = "INVALID_PARTS"

	// DefaultWindowSize is the fixed window used both for hashing and for
	// part transfer.
	DefaultWindowSize int64 = 5 * 1024 * 1024

	// MaxPartNumber mirrors the S3 multipart limit.
	MaxPartNumber = 10000
)
