// Package model contains domain models passed between layers.
package model

import "time"

// Event represents a feature event submitted by clients.
// Fields mirror the JSON schema for POST /events.
type Event struct {
	EventID    string         // unique id for idempotency
	InstanceID string         // leaderboard instance the event belongs to
	UserID     string         // subject user identifier
	Features   map[string]any // raw feature values used for score calculation
	TS         time.Time      // event timestamp
}

// ScoreRecord is the durable shape of a user's score: one logical record per
// (instance, user) pair.
type ScoreRecord struct {
	InstanceID string
	UserID     string
	Score      float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
