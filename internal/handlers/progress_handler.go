package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"suzukitracker/internal/models"
	"suzukitracker/internal/service"
)

// ProgressHandler handles mastery flags, song details and progress history
type ProgressHandler struct {
	progressService *service.ProgressService
	log             *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		log:             log,
	}
}

type toggleRequest struct {
	service.SongRef
	Field string `json:"field"`
}

type progressRequest struct {
	Left  int    `json:"leftHand"`
	Right int    `json:"rightHand"`
	Both  int    `json:"bothHands"`
	Note  string `json:"note"`
}

type mediaRequest struct {
	URL string `json:"url"`
}

// ToggleFlag flips one mastery flag, by instance ID or by student and song
func (h *ProgressHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	var in toggleRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}
	field, err := models.ParseField(in.Field)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	outcome, err := h.progressService.ToggleFlag(r.Context(), in.SongRef, field)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// GetStudentSong returns one song instance
func (h *ProgressHandler) GetStudentSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	ss, err := h.progressService.GetStudentSong(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ss)
}

// UpdateDetails sets a song instance's notes and video link
func (h *ProgressHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in service.SongDetails
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	ss, err := h.progressService.UpdateSongDetails(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ss)
}

// SetMedia stores the URL of an image or audio file kept in external storage
func (h *ProgressHandler) SetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in mediaRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	kind := models.MediaKind(r.PathValue("kind"))
	if err := h.progressService.SetSongMedia(r.Context(), id, kind, in.URL); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProgress returns a song instance's history, newest first
func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	notes, err := h.progressService.ListProgress(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notes)
}

// RecordProgress appends a percentage snapshot
func (h *ProgressHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in progressRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	note, err := h.progressService.RecordProgress(r.Context(), id, in.Left, in.Right, in.Both, in.Note)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, note)
}

// DeleteProgress removes one progress note
func (h *ProgressHandler) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.progressService.DeleteProgress(r.Context(), id); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
