package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ezeatin-backend/internal/onboarding"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps onboarding errors onto HTTP statuses.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		verr *onboarding.ValidationError
		terr *onboarding.TransitionError
	)
	switch {
	case errors.Is(err, onboarding.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "onboarding session not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":       "invalid answer",
			"question_id": verr.QuestionID,
			"rule":        verr.Rule,
			"detail":      verr.Detail,
		})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  err.Error(),
			"status": string(terr.From),
		})
	case errors.Is(err, onboarding.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session was modified concurrently, reload and retry"})
	case errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, onboarding.ErrFinalizeFailed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session is busy, try again"})
	default:
		log.Error("Onboarding request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
