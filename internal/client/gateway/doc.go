// Package gateway is the authenticated HTTP client of the upload gateway.
//
// Every call carries the bearer token. Transport failures and non-success
// replies are mapped to the sentinel errors of package common, so callers
// match outcomes with errors.Is. Gateway readiness is checked through the
// standard gRPC health service.
package gateway
