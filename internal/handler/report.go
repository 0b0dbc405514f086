package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type ReportHandler struct {
	reports *service.ReportService
	couples *service.CoupleService
}

func NewReportHandler(reports *service.ReportService, couples *service.CoupleService) *ReportHandler {
	return &ReportHandler{reports: reports, couples: couples}
}

// Monthly строит отчёт за месяц (?month=YYYY-MM, ?summary=true добавляет LLM-резюме).
func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	month := r.URL.Query().Get("month")
	withSummary := queryBool(r, "summary")
	rep, err := h.reports.BuildMonthly(r.Context(), c, month, withSummary)
	if err != nil {
		if errors.Is(err, service.ErrBadMonth) {
			writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		logger.Errorf("build report %s for couple %s: %v", month, c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// MonthlySummary строит отчёт за месяц вместе с LLM-резюме (медленный путь).
func (h *ReportHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
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
	rep, err := h.reports.BuildMonthly(r.Context(), c, req.Month, true)
	if err != nil {
		if errors.Is(err, service.ErrBadMonth) {
			writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		logger.Errorf("build report %s for couple %s: %v", req.Month, c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// SaveMonthly строит и сразу сохраняет отчёт.
func (h *ReportHandler) SaveMonthly(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	var req struct {
		Month       string `json:"month"`
		Name        string `json:"name"`
		WithSummary bool   `json:"with_summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rep, err := h.reports.BuildMonthly(r.Context(), c, req.Month, req.WithSummary)
	if err != nil {
		if errors.Is(err, service.ErrBadMonth) {
			writeError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		logger.Errorf("build report %s for couple %s: %v", req.Month, c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	saved, err := h.reports.Save(r.Context(), c.ID, req.Name, rep)
	if err != nil {
		logger.Errorf("save report %s for couple %s: %v", req.Month, c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *ReportHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	list, err := h.reports.ListSaved(r.Context(), c.ID)
	if err != nil {
		logger.Errorf("list saved reports for couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list})
}

func (h *ReportHandler) GetSaved(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	rep, err := h.reports.GetSaved(r.Context(), c.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		logger.Errorf("get saved report %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.reports.DeleteSaved(r.Context(), c.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		logger.Errorf("delete saved report %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
