package common

import "errors"

var (
	// Local errors. None of these ever reach the network layer.
	ErrValidation = errors.New("validation error")
	ErrReadFailed = errors.New("read failed")
	ErrCancelled  = errors.New("cancelled")
	ErrBusy       = errors.New("an upload attempt is already in progress")
	ErrPartOrder  = errors.New("parts must be transferred in increasing order starting at 1")

	// Gateway outcomes.
	ErrFileExists      = errors.New("file already exists")
	ErrGateway         = errors.New("gateway error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("gateway unavailable")
	ErrSessionNotFound = errors.New("upload session not found")
	ErrInvalidParts    = errors.New("invalid part list")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
