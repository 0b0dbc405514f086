package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
)

// AdminHandler — CRUD челлендж-мест и категорий. Доступ только под RequireAdmin.
type AdminHandler struct {
	challenges *repository.ChallengeRepository
}

func NewAdminHandler(challenges *repository.ChallengeRepository) *AdminHandler {
	return &AdminHandler{challenges: challenges}
}

type challengePlaceRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Address      string   `json:"address"`
	CategoryID   string   `json:"category_id"`
	Tags         []string `json:"tags"`
	BadgeReward  string   `json:"badge_reward"`
	PointsReward int      `json:"points_reward"`
	Active       *bool    `json:"active"`
}

func (req *challengePlaceRequest) apply(p *model.ChallengePlace) {
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Latitude = req.Latitude
	p.Longitude = req.Longitude
	p.Address = req.Address
	p.CategoryID = req.CategoryID
	p.Tags = req.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.BadgeReward = req.BadgeReward
	p.PointsReward = req.PointsReward
	if req.Active != nil {
		p.Active = *req.Active
	}
}

func (h *AdminHandler) CreateChallengePlace(w http.ResponseWriter, r *http.Request) {
	var req challengePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p := &model.ChallengePlace{Active: true}
	req.apply(p)
	if err := h.challenges.CreatePlace(r.Context(), p); err != nil {
		logger.Errorf("create challenge place: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create challenge place")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) ListChallengePlaces(w http.ResponseWriter, r *http.Request) {
	// Админ видит и выключенные места.
	list, err := h.challenges.ListPlaces(r.Context(), false)
	if err != nil {
		logger.Errorf("list challenge places: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge places")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": list})
}

func (h *AdminHandler) UpdateChallengePlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.challenges.GetPlace(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "challenge place not found")
			return
		}
		logger.Errorf("get challenge place %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge place")
		return
	}
	var req challengePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = p.Name
	}
	req.apply(p)
	if err := h.challenges.UpdatePlace(r.Context(), p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "challenge place not found")
			return
		}
		logger.Errorf("update challenge place %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update challenge place")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) DeleteChallengePlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.challenges.DeletePlace(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "challenge place not found")
			return
		}
		logger.Errorf("delete challenge place %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete challenge place")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type challengeCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Active      *bool  `json:"active"`
}

func (req *challengeCategoryRequest) apply(c *model.ChallengeCategory) {
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.Icon = req.Icon
	c.Color = req.Color
	if req.Active != nil {
		c.Active = *req.Active
	}
}

func (h *AdminHandler) CreateChallengeCategory(w http.ResponseWriter, r *http.Request) {
	var req challengeCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c := &model.ChallengeCategory{Active: true}
	req.apply(c)
	if err := h.challenges.CreateCategory(r.Context(), c); err != nil {
		logger.Errorf("create challenge category: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create challenge category")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) ListChallengeCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.challenges.ListCategories(r.Context(), false)
	if err != nil {
		logger.Errorf("list challenge categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (h *AdminHandler) UpdateChallengeCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req challengeCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c := &model.ChallengeCategory{ID: id, Active: true}
	req.apply(c)
	if err := h.challenges.UpdateCategory(r.Context(), c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "challenge category not found")
			return
		}
		logger.Errorf("update challenge category %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update challenge category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) DeleteChallengeCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.challenges.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "challenge category not found")
			return
		}
		logger.Errorf("delete challenge category %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete challenge category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
