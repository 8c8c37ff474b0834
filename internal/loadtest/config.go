package loadtest

import "time"

// Config holds the parameters for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	InstanceID string        // Leaderboard instance to target
	Feature    string        // Feature name carried by generated events
	NumEvents  int           // Number of events to generate
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	SettleWait time.Duration // How long to wait for async processing
	Verbose    bool          // Enable verbose logging
}

// Event mirrors the wire shape accepted by POST /events.
type Event struct {
	EventID    string             `json:"event_id"`
	InstanceID string             `json:"instance_id"`
	UserID     string             `json:"user_id"`
	Features   map[string]float64 `json:"features"`
	TS         string             `json:"ts"`
}

// Entry mirrors a leaderboard entry returned by the read endpoints.
type Entry struct {
	Rank   int64   `json:"rank"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// Ack mirrors the acknowledgement returned by POST /events.
type Ack struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats accumulates counters over a load run.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsAccepted     int
	EventsDuplicate    int
	EventsRejected     int
	EventsFailed       int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
