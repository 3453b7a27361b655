// Package api exposes the engine over JSON HTTP. It owns no business
// rules: requests are decoded, handed to the engine, and error kinds
// are mapped to status codes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tossware/poolengine/internal/engine"
	"github.com/tossware/poolengine/internal/models"
)

// Handler serves the pool engine API.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a handler over the given engine.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// Register adds all engine routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/pools", h.createPool)
	mux.HandleFunc("GET /v1/pools", h.listPools)
	mux.HandleFunc("GET /v1/pools/{id}", h.getPool)
	mux.HandleFunc("POST /v1/pools/{id}/activate", h.activatePool)
	mux.HandleFunc("POST /v1/pools/{id}/advance", h.advancePool)
	mux.HandleFunc("POST /v1/pools/{id}/suspend", h.suspendPool)
	mux.HandleFunc("POST /v1/pools/{id}/resume", h.resumePool)
	mux.HandleFunc("POST /v1/pools/{id}/close", h.closePool)
	mux.HandleFunc("POST /v1/pools/{id}/cancel", h.cancelPool)
	mux.HandleFunc("POST /v1/pools/{id}/members", h.join)
	mux.HandleFunc("POST /v1/pools/{id}/members/{memberID}/approve", h.approveMember)
	mux.HandleFunc("POST /v1/pools/{id}/members/{memberID}/suspend", h.suspendMember)
	mux.HandleFunc("DELETE /v1/pools/{id}/members/{memberID}", h.removeMember)
	mux.HandleFunc("POST /v1/pools/{id}/allocations", h.reserve)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/release", h.release)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/distribute", h.distribute)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/shares/{memberID}/settle", h.settleShare)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/payments", h.applyPayment)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/overdue", h.markOverdue)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/default", h.markDefaulted)
	mux.HandleFunc("POST /v1/pools/{id}/allocations/{allocID}/write-off", h.writeOff)
}

// statusFor maps engine error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrPreconditionNotMet),
		errors.Is(err, models.ErrInvalidStateTransition),
		errors.Is(err, models.ErrOperationNotAllowedInState),
		errors.Is(err, models.ErrPoolClosed),
		errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrInsufficientCapacity),
		errors.Is(err, models.ErrNoParticipants),
		errors.Is(err, models.ErrZeroTotalWeight):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
