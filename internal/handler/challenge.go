package handler

import (
	"net/http"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type ChallengeHandler struct {
	challenges *service.ChallengeService
	repo       *repository.ChallengeRepository
	couples    *service.CoupleService
}

func NewChallengeHandler(challenges *service.ChallengeService, repo *repository.ChallengeRepository, couples *service.CoupleService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, repo: repo, couples: couples}
}

// Progress — прогресс пары по статическим челленджам.
func (h *ChallengeHandler) Progress(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	progress, err := h.challenges.Progress(r.Context(), c.ID)
	if err != nil {
		logger.Errorf("challenge progress for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": progress})
}

// Places — активные челлендж-места (для карты).
func (h *ChallengeHandler) Places(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListPlaces(r.Context(), true)
	if err != nil {
		logger.Errorf("list challenge places: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge places")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": list})
}

func (h *ChallengeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListCategories(r.Context(), true)
	if err != nil {
		logger.Errorf("list challenge categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load challenge categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}
