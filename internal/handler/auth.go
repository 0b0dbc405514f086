package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/service"
	"github.com/lovenav/internal/token"
)

const refreshCookieName = "refresh_token"

// AuthHandler — регистрация, логин, ротация refresh и управление сессиями.
// Refresh-токен живёт только в HttpOnly-cookie и в тело ответа не попадает:
// JS-коду клиента он недоступен.
type AuthHandler struct {
	auth         *service.AuthService
	cookiePath   string
	cookieSecure bool
	cookieMaxAge int
}

func NewAuthHandler(auth *service.AuthService, cookiePath string, cookieSecure bool, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{auth: auth, cookiePath: cookiePath, cookieSecure: cookieSecure, cookieMaxAge: cookieMaxAge}
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     h.cookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFrom достаёт refresh-токен из cookie. Тело запроса не
// читается: токен в JSON не принимается и не выдаётся.
func refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "email already registered")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "invalid email")
		default:
			logger.Errorf("signup failed: %v", err)
			writeError(w, http.StatusInternalServerError, "signup failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, u.ToPublic())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ip, ua := middleware.ClientMeta(r)
	pair, u, err := h.auth.Login(r.Context(), req.Email, req.Password, ip, ua)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		logger.Errorf("login failed for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, h.cookieMaxAge)
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": pair,
		"user":   u.ToPublic(),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tok := refreshTokenFrom(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "refresh token required")
		return
	}
	ip, ua := middleware.ClientMeta(r)
	pair, err := h.auth.Refresh(r.Context(), tok, ip, ua)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionRevoked):
			writeError(w, http.StatusUnauthorized, "session revoked")
		case errors.Is(err, service.ErrSessionNotFound),
			errors.Is(err, token.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logger.Errorf("refresh failed: %v", err)
			writeError(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, h.cookieMaxAge)
	writeJSON(w, http.StatusOK, pair)
}

// Logout всегда отвечает 200: повторный или кривой запрос не должен ломать выход.
// Сессия отзывается по access-токену из заголовка либо по refresh из cookie,
// что из них есть.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	access := middleware.BearerToken(r)
	refresh := refreshTokenFrom(r)
	if access != "" || refresh != "" {
		h.auth.Logout(r.Context(), access, refresh)
	}
	h.setRefreshCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	sess := middleware.GetSession(r.Context())
	if u == nil || sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.auth.ListSessions(r.Context(), u.ID, sess.SessionID)
	if err != nil {
		logger.Errorf("list sessions for %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := chi.URLParam(r, "id")
	if err := h.auth.RevokeSession(r.Context(), u.ID, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		logger.Errorf("revoke session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
