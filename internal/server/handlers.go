package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/deploykit/stagegate/internal/domain"
	"github.com/deploykit/stagegate/internal/lifecycle"
)

// pathToken matches the URL-safe names allowed for environments and stages.
var pathToken = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// StageHandler maps the stage routes onto the lifecycle manager.
type StageHandler struct {
	manager *lifecycle.Manager
	logger  *slog.Logger
}

// stageKey pulls and validates the (env, stage) pair from the route.
func stageKey(r *http.Request) (string, string, error) {
	env := chi.URLParam(r, "envName")
	stage := chi.URLParam(r, "stageName")
	if !pathToken.MatchString(env) {
		return "", "", domain.ErrInvalidArgument("invalid environment name").WithParam("envName")
	}
	if !pathToken.MatchString(stage) {
		return "", "", domain.ErrInvalidArgument("invalid stage name").WithParam("stageName")
	}
	return env, stage, nil
}

// Get returns a stage given environment and stage names.
func (h *StageHandler) Get(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st, err := h.manager.Get(r.Context(), env, stage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Update applies a desired stage state.
func (h *StageHandler) Update(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var update domain.StageUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, r, domain.ErrInvalidArgument("malformed stage payload"))
		return
	}

	st, err := h.manager.Update(r.Context(), env, stage, update, CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Delete removes a stage.
func (h *StageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.manager.Delete(r.Context(), env, stage, CallerFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bodyToken reads a small plain-text body, tolerating a JSON string literal.
func bodyToken(r *http.Request) string {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// SetExternalID sets the external correlation id on a stage.
func (h *StageHandler) SetExternalID(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st, err := h.manager.SetExternalID(r.Context(), env, stage, bodyToken(r), CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// SetComplianceFlag sets the SOX compliance flag on a stage.
func (h *StageHandler) SetComplianceFlag(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st, err := h.manager.SetComplianceFlag(r.Context(), env, stage, bodyToken(r), CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// PerformAction dispatches a discrete action (enable/disable) on a stage.
func (h *StageHandler) PerformAction(w http.ResponseWriter, r *http.Request) {
	env, stage, err := stageKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rawAction := r.URL.Query().Get("actionType")
	if rawAction == "" {
		writeError(w, r, domain.ErrInvalidArgument("actionType is required").WithParam("actionType"))
		return
	}
	description := r.URL.Query().Get("description")
	if description == "" {
		writeError(w, r, domain.ErrInvalidArgument("description is required").WithParam("description"))
		return
	}

	action, err := lifecycle.ParseActionType(rawAction)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.manager.PerformAction(r.Context(), env, stage, action, description, CallerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
