// Package cli provides the upload client front-end.
//
// It wires configuration, the local history database, the gateway client and
// the upload state machine. Two modes are supported: a one-shot upload of a
// file given on the command line, and an interactive REPL in which hashing
// and uploading run in the background so that "cancel" and "status" stay
// available while a transfer is in flight.
//
// A background watcher pings the gateway health endpoint and shows the
// online/offline mode in the prompt.
package cli
