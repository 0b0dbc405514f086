package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type PlanHandler struct {
	plans   *repository.PlanRepository
	couples *service.CoupleService
}

func NewPlanHandler(plans *repository.PlanRepository, couples *service.CoupleService) *PlanHandler {
	return &PlanHandler{plans: plans, couples: couples}
}

type planRequest struct {
	Title       string           `json:"title"`
	Date        *time.Time       `json:"date"`
	EmotionGoal string           `json:"emotion_goal"`
	BudgetRange string           `json:"budget_range"`
	Notes       string           `json:"notes"`
	Stops       []model.PlanStop `json:"stops"`
}

func (req *planRequest) apply(p *model.Plan) {
	p.Title = strings.TrimSpace(req.Title)
	p.Date = req.Date
	p.EmotionGoal = req.EmotionGoal
	p.BudgetRange = req.BudgetRange
	p.Notes = req.Notes
	p.Stops = req.Stops
	if p.Stops == nil {
		p.Stops = []model.PlanStop{}
	}
	// Порядок остановок нормализуем по позиции в списке.
	for i := range p.Stops {
		p.Stops[i].Order = i
	}
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	p := &model.Plan{CoupleID: c.ID}
	req.apply(p)
	if err := h.plans.Create(r.Context(), p); err != nil {
		logger.Errorf("create plan for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	list, err := h.plans.ListByCouple(r.Context(), c.ID)
	if err != nil {
		logger.Errorf("list plans for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load plans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": list})
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.plans.GetByID(r.Context(), c.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		logger.Errorf("get plan %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.plans.GetByID(r.Context(), c.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		logger.Errorf("get plan %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = p.Title
	}
	req.apply(p)
	if err := h.plans.Update(r.Context(), p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		logger.Errorf("update plan %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to update plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.plans.Delete(r.Context(), c.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "plan not found")
			return
		}
		logger.Errorf("delete plan %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
