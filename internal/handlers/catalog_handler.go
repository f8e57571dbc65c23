package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"suzukitracker/internal/models"
	"suzukitracker/internal/service"
)

// CatalogHandler handles book and song requests
type CatalogHandler struct {
	catalogService *service.CatalogService
	log            *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		log:            log,
	}
}

type songRequest struct {
	Title string `json:"title"`
}

type reorderRequest struct {
	SongIDs []int64 `json:"songIds"`
}

type numberResponse struct {
	Number    int  `json:"number"`
	Available bool `json:"available"`
}

// ListBooks returns the catalog ordered by book number
func (h *CatalogHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalogService.ListBooks(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, books)
}

// CreateBook creates a book together with its initial songs
func (h *CatalogHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in models.NewBook
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	book, err := h.catalogService.CreateBook(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, book)
}

// GetBook returns a book with its songs and assigned students
func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	book, err := h.catalogService.GetBook(r.Context(), bookID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, book)
}

// UpdateBook applies a partial update, including renumbering
func (h *CatalogHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var upd models.BookUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	book, err := h.catalogService.UpdateBook(r.Context(), bookID, upd)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, book)
}

// DeleteBook removes a book that no student holds
func (h *CatalogHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.catalogService.DeleteBook(r.Context(), bookID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NextNumber suggests the next free book number
func (h *CatalogHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.catalogService.NextBookNumber(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, numberResponse{Number: number, Available: true})
}

// NumberAvailable reports whether ?number= is free, ignoring the book in ?exclude=
func (h *CatalogHandler) NumberAvailable(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.URL.Query().Get("number"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid number"})
		return
	}

	var excludeID int64
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		excludeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
			return
		}
	}

	available, err := h.catalogService.IsNumberAvailable(r.Context(), number, excludeID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, numberResponse{Number: number, Available: available})
}

// AddSong appends a song to a book
func (h *CatalogHandler) AddSong(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in songRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	song, err := h.catalogService.AddSong(r.Context(), bookID, in.Title)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, song)
}

// UpdateSong renames a song
func (h *CatalogHandler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	songID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in songRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	song, err := h.catalogService.UpdateSong(r.Context(), songID, in.Title)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, song)
}

// DeleteSong removes a song no student has started
func (h *CatalogHandler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	songID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.catalogService.DeleteSong(r.Context(), songID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResequenceSongs closes gaps in a book's song order
func (h *CatalogHandler) ResequenceSongs(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	if err := h.catalogService.ResequenceSongs(r.Context(), bookID); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderSongs sets a book's song order from a full permutation of its song IDs
func (h *CatalogHandler) ReorderSongs(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathID(r, "id")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidID})
		return
	}

	var in reorderRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	if err := h.catalogService.ReorderSongs(r.Context(), bookID, in.SongIDs); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
