package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/render"
	apperrors "pdf-annotator/pkg/errors"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps err to a status code and writes it. Internal
// errors are logged; their details are not sent to the client.
func writeServiceError(w http.ResponseWriter, logger domain.Logger, err error) {
	if errors.Is(err, render.ErrSuperseded) {
		writeError(w, http.StatusConflict, "document changed while rendering, retry")
		return
	}

	appErr := apperrors.FromDomain(err)
	if appErr.Type == apperrors.ErrorTypeInternal || appErr.Type == apperrors.ErrorTypeStorage {
		logger.Error("Request failed", err, "type", appErr.Type)
	}
	writeError(w, appErr.StatusCode, appErr.Message)
}

// decodeJSON reads a JSON request body of at most limit bytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	if r.Body == nil {
		return &domain.ValidationError{Message: "request body is required"}
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrFileTooLarge
		}
		return &domain.ValidationError{Message: "invalid JSON body"}
	}
	return nil
}
