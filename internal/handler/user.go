package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/repository"
)

type UserHandler struct {
	users *repository.UserRepository
}

func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// UpdateMe меняет только переданные поля профиля.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Nickname    *string  `json:"nickname"`
		Preferences []string `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.users.UpdateProfile(r.Context(), u.ID, req.Nickname, req.Preferences)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Errorf("update profile %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated.ToPublic())
}
