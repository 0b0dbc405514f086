package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lovenav/internal/middleware"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/service"
	redisstore "github.com/lovenav/internal/storage/redis"
	"github.com/lovenav/internal/token"
)

type memUsers struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	nextID  int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.nextID++
	u.ID = "uid-" + strconv.Itoa(m.nextID)
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redisstore.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	codec, err := token.NewCodec("test-secret-please-rotate", "HS256")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	auth := service.NewAuthService(newMemUsers(), store, codec, 15*time.Minute, 7*24*time.Hour, "")
	h := NewAuthHandler(auth, "/api/auth", false, 604800)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(auth))
			r.Get("/me", h.Me)
			r.Get("/sessions", h.Sessions)
			r.Delete("/sessions/{id}", h.RevokeSession)
		})
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, router http.Handler) (access string, cookies []*http.Cookie, body []byte) {
	t.Helper()
	rec := postJSON(t, router, "/api/auth/signup", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse",
		"nickname": "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Tokens.AccessToken, rec.Result().Cookies(), rec.Body.Bytes()
}

func refreshCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("refresh_token cookie not set")
	return nil
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	router := newTestRouter(t)
	access, cookies, body := signupAndLogin(t, router)
	if access == "" {
		t.Fatal("login returned empty access token")
	}
	found := refreshCookie(t, cookies)
	if !found.HttpOnly {
		t.Error("refresh cookie must be HttpOnly")
	}
	if found.Path != "/api/auth" {
		t.Errorf("cookie path = %q, want /api/auth", found.Path)
	}
	if found.Value == "" {
		t.Error("refresh cookie is empty")
	}
	// Refresh-токен выдаётся только в cookie. В JSON его быть не должно.
	if bytes.Contains(body, []byte("refresh_token")) {
		t.Errorf("login body exposes refresh token: %s", body)
	}
	if bytes.Contains(body, []byte(found.Value)) {
		t.Error("login body contains the refresh token value")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	signupAndLogin(t, router)
	rec := postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func postRefresh(router http.Handler, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRefreshFromCookie(t *testing.T) {
	router := newTestRouter(t)
	_, cookies, _ := signupAndLogin(t, router)

	rec := postRefresh(router, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	var pair service.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("refresh returned empty access token")
	}
	// Новый refresh уходит в Set-Cookie, а не в тело.
	if bytes.Contains(rec.Body.Bytes(), []byte("refresh_token")) {
		t.Errorf("refresh body exposes refresh token: %s", rec.Body.String())
	}
	rotated := refreshCookie(t, rec.Result().Cookies())
	if rotated.Value == "" || rotated.Value == refreshCookie(t, cookies).Value {
		t.Error("refresh cookie not rotated")
	}
}

func TestRefreshIgnoresBodyToken(t *testing.T) {
	router := newTestRouter(t)
	_, cookies, _ := signupAndLogin(t, router)

	// Токен в JSON-теле не принимается, только cookie.
	rec := postJSON(t, router, "/api/auth/refresh", map[string]string{
		"refresh_token": refreshCookie(t, cookies).Value,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("body-token refresh status = %d, want 401", rec.Code)
	}
}

func TestRefreshReplayRejected(t *testing.T) {
	router := newTestRouter(t)
	_, cookies, _ := signupAndLogin(t, router)

	if rec := postRefresh(router, cookies); rec.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d", rec.Code)
	}
	// Повтор со старой cookie: jti уже ротирован.
	if rec := postRefresh(router, cookies); rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d, want 401", rec.Code)
	}
}

func TestMeAndSessions(t *testing.T) {
	router := newTestRouter(t)
	access, _, _ := signupAndLogin(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body.String())
	}
	var me model.UserPublic
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("me email = %q", me.Email)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions status = %d", rec.Code)
	}
	var resp struct {
		Sessions []model.SessionInfo `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(resp.Sessions) != 1 || !resp.Sessions[0].IsCurrent {
		t.Fatalf("sessions = %+v, want one current session", resp.Sessions)
	}
}

func TestLogoutInvalidatesAccess(t *testing.T) {
	router := newTestRouter(t)
	access, _, _ := signupAndLogin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d, want 401", rec.Code)
	}
}

func TestLogoutWithCookieOnly(t *testing.T) {
	router := newTestRouter(t)
	_, cookies, _ := signupAndLogin(t, router)

	// Браузерный выход: access уже потерян, есть только refresh-cookie.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	if rec := postRefresh(router, cookies); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after cookie-only logout status = %d, want 401", rec.Code)
	}
}

func TestRevokeSessionNoContent(t *testing.T) {
	router := newTestRouter(t)
	access, _, _ := signupAndLogin(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions status = %d", rec.Code)
	}
	var resp struct {
		Sessions []model.SessionInfo `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Sessions) != 1 {
		t.Fatalf("sessions = %+v (err %v)", resp.Sessions, err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/auth/sessions/no-such-session", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("revoke unknown status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/auth/sessions/"+resp.Sessions[0].SessionID, nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("revoke body not empty: %s", rec.Body.String())
	}
}

func TestMeWithoutToken(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
