package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
)

type CoupleHandler struct {
	couples *service.CoupleService
}

func NewCoupleHandler(couples *service.CoupleService) *CoupleHandler {
	return &CoupleHandler{couples: couples}
}

// coupleOf возвращает пару текущего пользователя, создавая её при первом обращении.
// Пишет ошибку в ответ сама; вызывающий при nil просто выходит.
func coupleOf(w http.ResponseWriter, r *http.Request, couples *service.CoupleService) *model.Couple {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	c, err := couples.GetOrCreate(r.Context(), u.ID)
	if err != nil {
		logger.Errorf("resolve couple for %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load couple")
		return nil
	}
	return c
}

func (h *CoupleHandler) Me(w http.ResponseWriter, r *http.Request) {
	c := coupleOf(w, r, h.couples)
	if c == nil {
		return
	}
	summary, err := h.couples.Summarize(r.Context(), c)
	if err != nil {
		logger.Errorf("summarize couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load couple")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *CoupleHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	code, err := h.couples.RegenerateInvite(r.Context(), u.ID)
	if err != nil {
		logger.Errorf("regenerate invite for %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to regenerate invite code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invite_code": code})
}

func (h *CoupleHandler) Join(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.InviteCode))
	if code == "" {
		writeError(w, http.StatusBadRequest, "invite_code is required")
		return
	}
	c, err := h.couples.JoinByCode(r.Context(), u.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteNotFound):
			writeError(w, http.StatusNotFound, "invite code not found")
		case errors.Is(err, repository.ErrCoupleFull):
			writeError(w, http.StatusConflict, "couple already has two members")
		default:
			logger.Errorf("join couple by code %s: %v", code, err)
			writeError(w, http.StatusInternalServerError, "failed to join couple")
		}
		return
	}
	summary, err := h.couples.Summarize(r.Context(), c)
	if err != nil {
		logger.Errorf("summarize couple %s: %v", c.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load couple")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *CoupleHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var prefs model.CouplePreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.couples.UpdatePreferences(r.Context(), u.ID, prefs)
	if err != nil {
		logger.Errorf("update couple preferences for %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
