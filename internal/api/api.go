// Package api holds the wire types and routes shared by the gateway and its
// HTTP client.
package api

import (
	"fmt"

	"github.com/dmitrijs2005/casupload/internal/common"
)

const (
	RouteStart      = "/api/mpu-start"
	RouteUploadPart = "/api/mpu-uploadpart"
	RouteComplete   = "/api/mpu-complete"
	RouteAbort      = "/api/mpu-abort"
	RouteFiles      = "/files"

	// multipart form fields of an uploadpart request
	FieldKey        = "key"
	FieldUploadID   = "uploadId"
	FieldPartNumber = "partNumber"
	FieldFile       = "file"
)

// Response is the envelope of every gateway reply. Only the fields relevant
// to the route are set.
type Response struct {
	Success  bool   `json:"success"`
	Code     string `json:"code,omitempty"`
	Key      string `json:"key,omitempty"`
	UploadID string `json:"uploadId,omitempty"`
	ETag     string `json:"etag,omitempty"`
	Error    string `json:"error,omitempty"`
}

type StartRequest struct {
	Key string `json:"key" binding:"required"`
}

type Part struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

type CompleteRequest struct {
	Key      string `json:"key" binding:"required"`
	UploadID string `json:"uploadId" binding:"required"`
	Parts    []Part `json:"parts"`
}

type AbortRequest struct {
	Key      string `json:"key" binding:"required"`
	UploadID string `json:"uploadId" binding:"required"`
}

// ObjectPath is the canonical address of a stored object relative to the
// gateway root.
func ObjectPath(key string) string {
	return RouteFiles + "/" + key
}

// ValidateParts checks that parts acknowledge exactly 1..N in order, each
// with a non-empty etag.
func ValidateParts(parts []Part) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts", common.ErrInvalidParts)
	}
	if len(parts) > common.MaxPartNumber {
		return fmt.Errorf("%w: %d parts exceed the limit of %d", common.ErrInvalidParts, len(parts), common.MaxPartNumber)
	}
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return fmt.Errorf("%w: expected part %d, got %d", common.ErrInvalidParts, i+1, p.PartNumber)
		}
		if p.ETag == "" {
			return fmt.Errorf("%w: part %d has no etag", common.ErrInvalidParts, p.PartNumber)
		}
	}
	return nil
}
