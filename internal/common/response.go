package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithAppError writes err using its mapped status and public message.
// Server errors are logged with their full text, access denials with their reason.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := HTTPStatusFromError(err)

	var denied *AccessDeniedError
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case errors.As(err, &denied):
		log.Info("access denied",
			"resource", denied.Resource, "id", denied.ID, "reason", denied.Reason,
			"method", r.Method, "path", r.URL.Path)
	default:
		log.Debug("request rejected", "status", status, "error", err)
	}

	RespondWithError(w, status, PublicMessage(err))
}
