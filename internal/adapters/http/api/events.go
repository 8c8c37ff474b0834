package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/platforms/leaderboard/internal/domain/model"
)

// EventsHandler handles async event submissions.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	// Idempotency check first; a duplicate is acknowledged, not re-queued.
	if h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: req.EventID, Duplicate: true})
		return
	}

	ts := time.Now().UTC()
	if req.TS != "" {
		// validate() already checked the format.
		ts, _ = time.Parse(time.RFC3339, req.TS)
	}

	event := model.Event{
		EventID:    req.EventID,
		InstanceID: req.InstanceID,
		UserID:     req.UserID,
		Features:   req.Features,
		TS:         ts,
	}
	if ok := h.deps.Enqueue(r.Context(), event); !ok {
		// Release the seen mark so a retry of the same id can succeed.
		h.deps.Unrecord(r.Context(), req.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: req.EventID})
}
