// Package common defines shared constants and sentinel errors used across
// the WashPro technician client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Transport-level errors: the dispatch backend is unreachable or
	// answered with a non-success status. The sync engine degrades to the
	// local cache instead of propagating these.
	ErrUnavailable = errors.New("remote unavailable")

	// The backend was reached but refused the request (for example a
	// status mutation it considers invalid). Never masked by the cache.
	ErrRejected = errors.New("remote rejected request")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("local storage unavailable")

	// Photo upload failed. Non-blocking: the local preview stays and the
	// workflow continues.
	ErrUploadFailed = errors.New("photo upload failed")

	// A device permission (location, notifications) was denied. The
	// dependent feature degrades, nothing else stops.
	ErrPermissionDenied = errors.New("permission denied")

	// Mission workflow errors.
	ErrPhotosIncomplete = errors.New("photo slots incomplete")
	ErrInvalidStep      = errors.New("action not valid in current step")

	// Session errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
)
