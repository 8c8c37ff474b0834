package repository

import "errors"

// Sentinel kinds for leaderboard store errors.
var (
	// ErrNotFound means the user has no score record in the queried tier.
	// It is a valid outcome, never a connectivity failure.
	ErrNotFound = errors.New("user not found")

	// ErrUnavailable wraps connectivity or timeout failures of a tier. It
	// must never be collapsed into an empty result.
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidLimit rejects non-positive limits before any store I/O.
	ErrInvalidLimit = errors.New("invalid leaderboard limit")

	// ErrInvalidOffset rejects negative offsets before any store I/O.
	ErrInvalidOffset = errors.New("invalid leaderboard offset")
)
