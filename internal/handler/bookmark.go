package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type BookmarkHandler struct {
	bookmarks *repository.BookmarkRepository
	couples   *service.CoupleService
}

func NewBookmarkHandler(bookmarks *repository.BookmarkRepository, couples *service.CoupleService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, couples: couples}
}

func (h *BookmarkHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	u := middleware.GetUser(r.Context())
	var req struct {
		PlaceID   string   `json:"place_id"`
		PlaceName string   `json:"place_name"`
		Address   string   `json:"address"`
		Note      string   `json:"note"`
		Tags      []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PlaceID) == "" {
		writeError(w, http.StatusBadRequest, "place_id is required")
		return
	}
	b := &model.Bookmark{
		CoupleID:  c.ID,
		UserID:    u.ID,
		PlaceID:   req.PlaceID,
		PlaceName: req.PlaceName,
		Address:   req.Address,
		Note:      req.Note,
		Tags:      req.Tags,
	}
	if err := h.bookmarks.Create(r.Context(), b); err != nil {
		if errors.Is(err, repository.ErrDuplicateBookmark) {
			writeError(w, http.StatusConflict, "place already bookmarked")
			return
		}
		logger.Errorf("create bookmark for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create bookmark")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	tag := r.URL.Query().Get("tag")
	list, err := h.bookmarks.ListByCouple(r.Context(), c.ID, tag)
	if err != nil {
		logger.Errorf("list bookmarks for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarks": list})
}

func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.bookmarks.Delete(r.Context(), c.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		logger.Errorf("delete bookmark %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete bookmark")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
