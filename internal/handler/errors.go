package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"turnengine/internal/domain"
	"turnengine/internal/httputil"
)

// ConflictDetail provides structured information about a resource conflict
type ConflictDetail struct {
	Type         string `json:"type"`          // Always "duplicate" for now
	ResourceType string `json:"resource_type"` // "document", "folder", "project", or "chat"
	ResourceID   string `json:"resource_id"`   // ID of the conflicting resource
	Location     string `json:"location"`      // API path to the conflicting resource
}

// ConflictResponse represents a 409 conflict response with structured details
type ConflictResponse struct {
	Error    string          `json:"error"`              // Human-readable error message
	Conflict *ConflictDetail `json:"conflict,omitempty"` // Optional structured conflict details
}

// handleError maps domain errors to HTTP responses and writes them directly.
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		httputil.RespondJSON(w, http.StatusConflict, ConflictResponse{
			Error: conflictErr.Message,
			Conflict: &ConflictDetail{
				Type:         "duplicate",
				ResourceType: conflictErr.ResourceType,
				ResourceID:   conflictErr.ResourceID,
				Location:     fmt.Sprintf("/api/%ss/%s", conflictErr.ResourceType, conflictErr.ResourceID),
			},
		})
		return
	}

	status, message := mapErrorToHTTP(err)
	httputil.RespondError(w, status, message)
}

// mapErrorToHTTP maps domain errors to HTTP status codes and messages
func mapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	default:
		slog.Error("unmapped error in mapErrorToHTTP",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "Internal server error"
	}
}
