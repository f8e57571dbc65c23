package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"suzukitracker/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Count int    `json:"count,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondWithError(w http.ResponseWriter, log *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(logMsg, zap.Error(err))
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service error onto its HTTP status
func respondWithServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var hasAssignments *service.HasAssignmentsError
	var songInUse *service.SongInUseError

	switch {
	case errors.As(err, &hasAssignments):
		respondWithJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Count: hasAssignments.Count})
	case errors.As(err, &songInUse):
		respondWithJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Count: songInUse.Count})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		respondWithJSON(w, http.StatusForbidden, errorResponse{Error: ErrForbidden})
	case errors.Is(err, service.ErrNotFound):
		respondWithJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrDuplicateNumber), errors.Is(err, service.ErrAlreadyAssigned),
		errors.Is(err, service.ErrEmailTaken):
		respondWithJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidResetToken):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "request failed", err)
	}
}
