package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// GetRequestIDFromContext extracts the request identifier set by RequestIDMiddleware
func GetRequestIDFromContext(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(requestIDContextKey).(string)
	return id, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// statusForError maps service errors to an HTTP status and a client-safe message.
func statusForError(err error) (int, string) {
	var validationErr *domain.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "Document not found"
	case errors.Is(err, domain.ErrPageOutOfRange):
		return http.StatusNotFound, "Page not found"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "Document too large"
	case errors.Is(err, domain.ErrInvalidFile):
		return http.StatusUnprocessableEntity, "Invalid PDF file"
	case errors.As(err, &appErr):
		return apperrors.GetStatusCode(err), appErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}
