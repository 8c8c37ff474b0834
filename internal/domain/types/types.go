// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank   int64          `json:"rank"`
	UserID string         `json:"user_id"`
	Score  float64        `json:"score"`
	Data   map[string]any `json:"data,omitempty"`
}
