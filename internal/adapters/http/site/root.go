// Package site serves the embedded leaderboard dashboard.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded dashboard to mux at the root path. API
// routes registered on the same mux take precedence over the catch-all.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/", http.FileServer(FS()))
}
