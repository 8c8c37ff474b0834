package api

import (
	"fmt"
	"net/http"
	"strings"
)

// RankHandler handles single-user rank and around-user window requests.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{user_id}?instance_id=ID requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, instanceID, err := pathUserAndInstance(r, "/rank/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entry, err := h.deps.UserRank(r.Context(), instanceID, userID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleGetAround handles GET /around/{user_id}?instance_id=ID&limit=N requests.
func (h *RankHandler) HandleGetAround(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, instanceID, err := pathUserAndInstance(r, "/around/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, err := h.deps.AroundUser(r.Context(), instanceID, userID, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// pathUserAndInstance extracts the user id path segment after prefix and the
// required instance_id query parameter.
func pathUserAndInstance(r *http.Request, prefix string) (userID, instanceID string, err error) {
	userID = strings.TrimPrefix(r.URL.Path, prefix)
	if userID == "" || strings.Contains(userID, "/") {
		return "", "", fmt.Errorf("%w: missing user id", ErrBadRequest)
	}
	instanceID = strings.TrimSpace(r.URL.Query().Get("instance_id"))
	if instanceID == "" {
		return "", "", fmt.Errorf("%w: missing instance_id", ErrBadRequest)
	}
	return userID, instanceID, nil
}
