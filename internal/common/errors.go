// Package common defines shared constants and sentinel errors used across
// the Beacon client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Network-level errors: the remote content API could not be reached or
	// answered with a non-2xx status.
	ErrUnavailable = errors.New("remote unavailable")

	// Flow-control errors.
	ErrOffline        = errors.New("client is offline")
	ErrSyncInProgress = errors.New("sync already in progress")
)
