package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"interview/internal/auth"
	"interview/internal/lifecycle"
	"interview/internal/models"
	"interview/internal/signal"
)

type Handlers struct {
	lifecycle *lifecycle.Service
	registry  *signal.Registry
	tokens    *auth.Tokens
}

func NewHandlers(lc *lifecycle.Service, registry *signal.Registry, tokens *auth.Tokens) *Handlers {
	return &Handlers{lifecycle: lc, registry: registry, tokens: tokens}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) CreateInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	var req models.CreateInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}
	iv, err := h.lifecycle.Create(r.Context(), *actor, req)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, formatInterview(iv))
}

func (h *Handlers) ListInterviews(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	open := r.URL.Query().Get("filter") == "open"
	ivs, err := h.lifecycle.List(r.Context(), *actor, open)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(ivs))
	for i := range ivs {
		out = append(out, formatInterview(&ivs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	iv, err := h.lifecycle.Get(r.Context(), *actor, chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatInterview(iv))
}

// GetInterviewByRoom resolves a room id to its interview and, while the
// interview is still joinable, mints the room token the signaling endpoint
// requires. Terminal interviews resolve without a token.
func (h *Handlers) GetInterviewByRoom(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	iv, err := h.lifecycle.GetByRoom(r.Context(), *actor, chi.URLParam(r, "roomId"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	resp := map[string]any{"interview": formatInterview(iv)}
	if !iv.Status.Terminal() {
		token, err := h.tokens.IssueRoomToken(iv.RoomID, *actor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "failed to issue room token")
			return
		}
		resp["roomToken"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) AcceptInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	iv, err := h.lifecycle.Accept(r.Context(), *actor, chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatInterview(iv))
}

func (h *Handlers) StartInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	iv, err := h.lifecycle.Start(r.Context(), *actor, chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatInterview(iv))
}

func (h *Handlers) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	var req models.CompleteInterviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "malformed request body")
			return
		}
	}
	iv, err := h.lifecycle.Complete(r.Context(), *actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatInterview(iv))
}

func (h *Handlers) CancelInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	iv, err := h.lifecycle.Cancel(r.Context(), *actor, chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatInterview(iv))
}

func (h *Handlers) DeleteInterview(w http.ResponseWriter, r *http.Request) {
	actor := auth.CurrentUser(r.Context())
	if err := h.lifecycle.Delete(r.Context(), *actor, chi.URLParam(r, "id")); err != nil {
		writeLifecycleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatInterview(iv *models.Interview) map[string]any {
	out := map[string]any{
		"id":          iv.ID,
		"roomId":      iv.RoomID,
		"candidate":   iv.Candidate(),
		"status":      iv.Status,
		"scheduledAt": iv.ScheduledAt,
		"duration":    iv.DurationMin,
		"createdAt":   iv.CreatedAt,
		"updatedAt":   iv.UpdatedAt,
	}
	if ref, ok := iv.Interviewer(); ok {
		out["interviewer"] = ref
	}
	if iv.Score != nil {
		out["score"] = *iv.Score
	}
	if iv.Feedback != nil {
		out["feedback"] = *iv.Feedback
	}
	if iv.StartedAt != nil {
		out["startedAt"] = *iv.StartedAt
	}
	if iv.CompletedAt != nil {
		out["completedAt"] = *iv.CompletedAt
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeLifecycleError maps the lifecycle failure taxonomy onto HTTP statuses
// with machine-readable codes so clients can distinguish the cases.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrSchedulingConflict):
		writeError(w, http.StatusBadRequest, "scheduling_conflict", err.Error())
	case errors.Is(err, lifecycle.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, lifecycle.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", err.Error())
	case errors.Is(err, lifecycle.ErrAlreadyAssigned):
		writeError(w, http.StatusConflict, "already_assigned", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
