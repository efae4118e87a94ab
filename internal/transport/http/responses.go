package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"vouch/internal/registrant"
	dErrors "vouch/pkg/domain-errors"
)

// Every response carries the success flag; errors replace data with a
// message the client can show.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps domain errors onto HTTP statuses. Validation failures
// include per-field detail; everything else surfaces only the coded
// message, with internals kept server-side.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var verrs registrant.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  verrs,
		})
		return
	}

	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := "Internal server error"
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			message = de.Message
		}
	} else {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", string(code),
			"error", err,
		)
	}

	writeJSON(w, status, envelope{Success: false, Message: message})
}
