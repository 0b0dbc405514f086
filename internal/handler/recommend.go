package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type RecommendHandler struct {
	recommend *service.RecommendService
	places    *repository.PlaceRepository
	couples   *service.CoupleService
}

func NewRecommendHandler(recommend *service.RecommendService, places *repository.PlaceRepository, couples *service.CoupleService) *RecommendHandler {
	return &RecommendHandler{recommend: recommend, places: places, couples: couples}
}

// Recommend — основная выдача: погода + бюджет + ранжированные места + AI-курсы.
// Пустые предпочтения и бюджет добираются из профиля пары.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req service.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Preferences) == 0 {
		req.Preferences = c.Preferences.Tags
	}
	if req.BudgetRange == "" {
		req.BudgetRange = c.Preferences.Budget
	}
	resp, err := h.recommend.Recommend(r.Context(), req)
	if err != nil {
		logger.Errorf("recommend for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build recommendations")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// MapSuggestions — точечная подборка для карты вокруг выбранной точки.
func (h *RecommendHandler) MapSuggestions(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req service.MapSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Preferences) == 0 {
		req.Preferences = c.Preferences.Tags
	}
	if req.Budget == "" {
		req.Budget = c.Preferences.Budget
	}
	resp, err := h.recommend.MapSuggestions(r.Context(), req)
	if err != nil {
		logger.Errorf("map suggestions for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build suggestions")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecommendHandler) Weather(w http.ResponseWriter, r *http.Request) {
	lat := queryFloat(r, "lat", 0)
	lon := queryFloat(r, "lon", 0)
	info, sugg := h.recommend.CurrentWeather(r.Context(), lat, lon)
	writeJSON(w, http.StatusOK, map[string]any{
		"weather":     info,
		"suggestions": sugg,
	})
}

func (h *RecommendHandler) BudgetRanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"budget_ranges": service.BudgetRanges()})
}

func (h *RecommendHandler) PreferenceTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"preference_tags": service.PreferenceTagKeys()})
}

// NearbyPlaces — сырой гео-поиск мест без ранжирования.
func (h *RecommendHandler) NearbyPlaces(w http.ResponseWriter, r *http.Request) {
	lat := queryFloat(r, "lat", 0)
	lon := queryFloat(r, "lon", 0)
	if lat == 0 && lon == 0 {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	radius := queryInt(r, "radius", 3000)
	if radius <= 0 || radius > 20000 {
		radius = 3000
	}
	limit := queryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	places, err := h.places.Nearby(r.Context(), lat, lon, radius, limit, nil)
	if err != nil {
		logger.Errorf("nearby places: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load places")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": places})
}
