// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/platforms/leaderboard/internal/adapters/repository"
	"github.com/platforms/leaderboard/internal/domain/model"
	"github.com/platforms/leaderboard/internal/domain/types"
	"github.com/platforms/leaderboard/internal/domain/validate"
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Idempotency tracking for the async ingest path.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes an event for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.Event) bool

	// Synchronous ingest: validate, score and persist in one call.
	SubmitScore(ctx context.Context, instanceID, userID string, features map[string]any) (Entry, error)

	// Read operations expose leaderboard data.
	TopK(ctx context.Context, instanceID string, limit, offset int64) ([]Entry, error)
	UserRank(ctx context.Context, instanceID, userID string) (Entry, error)
	AroundUser(ctx context.Context, instanceID, userID string, limit int64) ([]Entry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/around/", MetricsMiddleware(s.rankHandler.HandleGetAround, "around"))
}

// eventRequest mirrors the JSON schema for POST /events. A missing event_id
// is allowed; the handler assigns one before deduplication.
type eventRequest struct {
	EventID    string         `json:"event_id"`
	InstanceID string         `json:"instance_id"`
	UserID     string         `json:"user_id"`
	Features   map[string]any `json:"features"`
	TS         string         `json:"ts"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.InstanceID) == "":
		return errors.New("missing instance_id")
	case strings.TrimSpace(e.UserID) == "":
		return errors.New("missing user_id")
	case len(e.Features) == 0:
		return errors.New("missing features")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// scoreRequest mirrors the JSON schema for POST /scores.
type scoreRequest struct {
	InstanceID string         `json:"instance_id"`
	UserID     string         `json:"user_id"`
	Features   map[string]any `json:"features"`
}

func (s scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(s.InstanceID) == "":
		return errors.New("missing instance_id")
	case strings.TrimSpace(s.UserID) == "":
		return errors.New("missing user_id")
	case len(s.Features) == 0:
		return errors.New("missing features")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeStoreError translates service errors into HTTP responses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidOffset),
		errors.Is(err, validate.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
