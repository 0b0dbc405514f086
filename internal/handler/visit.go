package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type VisitHandler struct {
	visits  *service.VisitService
	couples *service.CoupleService
}

func NewVisitHandler(visits *service.VisitService, couples *service.CoupleService) *VisitHandler {
	return &VisitHandler{visits: visits, couples: couples}
}

func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	u := middleware.GetUser(r.Context())
	var in service.VisitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(in.PlaceID) == "" && strings.TrimSpace(in.PlaceName) == "" {
		writeError(w, http.StatusBadRequest, "place_id or place_name is required")
		return
	}
	v, reward, err := h.visits.Add(r.Context(), c.ID, u.ID, in)
	if err != nil {
		if errors.Is(err, service.ErrChallengeNeedsLocation) {
			writeError(w, http.StatusBadRequest, "challenge check-in requires verified location")
			return
		}
		logger.Errorf("create visit for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to record visit")
		return
	}
	resp := map[string]any{"visit": v}
	if reward != nil {
		resp["reward"] = reward
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *VisitHandler) List(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	limit := queryInt(r, "limit", 0)
	list, err := h.visits.List(r.Context(), c.ID, limit)
	if err != nil {
		logger.Errorf("list visits for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load visits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": list})
}

func (h *VisitHandler) Update(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	var in service.VisitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, reward, err := h.visits.Update(r.Context(), c.ID, id, in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "visit not found")
		case errors.Is(err, service.ErrChallengeNeedsLocation):
			writeError(w, http.StatusBadRequest, "challenge check-in requires verified location")
		default:
			logger.Errorf("update visit %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to update visit")
		}
		return
	}
	resp := map[string]any{"visit": v}
	if reward != nil {
		resp["reward"] = reward
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *VisitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.visits.Delete(r.Context(), c.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "visit not found")
			return
		}
		logger.Errorf("delete visit %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete visit")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
