package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/llm"
	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/service"
)

// AIHandler — асинхронные LLM-задачи: постановка и опрос статуса.
type AIHandler struct {
	tasks   *service.LLMTaskService
	reports *service.ReportService
	couples *service.CoupleService
}

func NewAIHandler(tasks *service.LLMTaskService, reports *service.ReportService, couples *service.CoupleService) *AIHandler {
	return &AIHandler{tasks: tasks, reports: reports, couples: couples}
}

// EnqueueCourse ставит генерацию AI-курса в фон и сразу отдаёт task_id.
func (h *AIHandler) EnqueueCourse(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req struct {
		Emotion           string   `json:"emotion"`
		Preferences       []string `json:"preferences"`
		LocationText      string   `json:"location_text"`
		Weather           string   `json:"weather"`
		Budget            string   `json:"budget"`
		AdditionalContext string   `json:"additional_context"`
	}
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
	taskID, err := h.tasks.EnqueueItinerary(r.Context(), llm.ItineraryRequest{
		Emotion:           req.Emotion,
		Preferences:       strings.Join(req.Preferences, ", "),
		Location:          req.LocationText,
		Weather:           req.Weather,
		Budget:            service.BudgetLabel(req.Budget),
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		logger.Errorf("enqueue course task: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "status": "pending"})
}

// EnqueueReport строит агрегаты месяца синхронно, а LLM-резюме считает в фоне.
func (h *AIHandler) EnqueueReport(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rep, err := h.reports.BuildMonthly(r.Context(), c, req.Month, false)
	if err != nil {
		if errors.Is(err, service.ErrBadMonth) {
			writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		logger.Errorf("build report %s for couple %s: %v", req.Month, c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	taskID, err := h.tasks.EnqueueReport(r.Context(), llm.ReportPayload{
		Month:             rep.Month,
		VisitCount:        rep.VisitCount,
		TopTags:           rep.TopTags,
		EmotionStats:      rep.EmotionStats,
		ChallengeProgress: rep.ChallengeProgress,
		PreferenceTags:    rep.PreferredTags,
		EmotionGoals:      rep.PreferredEmotions,
		PlanEmotionGoals:  rep.PlanEmotionGoals,
	})
	if err != nil {
		logger.Errorf("enqueue report task: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "status": "pending"})
}

func (h *AIHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")
	status, err := h.tasks.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		logger.Errorf("task status %s: %v", taskID, err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
