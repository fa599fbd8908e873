package server

import (
	"encoding/json"
	"errors"
	"github.com/maxaizer/jobscout/internal/logger"
	"github.com/maxaizer/jobscout/internal/services"
	"github.com/maxaizer/jobscout/internal/workers"
	log "github.com/sirupsen/logrus"
	"net/http"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeServiceError maps domain errors to statuses, anything unknown is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrScrapeAlreadyRunning):
		WriteError(w, r, http.StatusConflict, "already_running", "a scrape is already running")
	case errors.Is(err, services.ErrScorerNotConfigured):
		WriteError(w, r, http.StatusServiceUnavailable, "scorer_not_configured", "AI analysis is not configured")
	case errors.Is(err, services.ErrNoResume):
		WriteError(w, r, http.StatusBadRequest, "no_resume", "no resume uploaded")
	case errors.Is(err, services.ErrUnsupportedResume):
		WriteError(w, r, http.StatusUnsupportedMediaType, "unsupported_resume",
			"resume must be plain text, markdown or html")
	case errors.Is(err, services.ErrResumeTooLarge):
		WriteError(w, r, http.StatusRequestEntityTooLarge, "resume_too_large", "resume file is too large")
	case errors.Is(err, services.ErrProfileNotFound):
		WriteError(w, r, http.StatusNotFound, "profile_not_found", "profile not found")
	case errors.Is(err, workers.ErrPoolFull), errors.Is(err, workers.ErrPoolStopped):
		WriteError(w, r, http.StatusServiceUnavailable, "busy", "server is busy, try again later")
	default:
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttp).
			WithField("request_id", RequestIDFrom(r.Context())).
			Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
