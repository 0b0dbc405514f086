package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lovenav/internal/model"
)

type fakeAuthenticator struct {
	user *model.User
	sess *model.Session
	err  error

	gotIP *string
	gotUA *string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, _ string, ip, userAgent *string) (*model.User, *model.Session, error) {
	f.gotIP = ip
	f.gotUA = userAgent
	return f.user, f.sess, f.err
}

func TestClientMeta(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:51234"
	r.Header.Set("User-Agent", "test-agent/1.0")
	ip, ua := ClientMeta(r)
	if ip == nil || *ip != "::1" {
		t.Errorf("ipv6 remote addr: ip = %v", ip)
	}
	if ua == nil || *ua != "test-agent/1.0" {
		t.Errorf("user agent = %v", ua)
	}

	r.RemoteAddr = "10.0.0.7:443"
	ip, _ = ClientMeta(r)
	if ip == nil || *ip != "10.0.0.7" {
		t.Errorf("ipv4 remote addr: ip = %v", ip)
	}

	// X-Real-Ip от reverse-proxy перекрывает RemoteAddr.
	r.Header.Set("X-Real-Ip", "203.0.113.9")
	ip, _ = ClientMeta(r)
	if ip == nil || *ip != "203.0.113.9" {
		t.Errorf("x-real-ip: ip = %v", ip)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := BearerToken(r); got != "" {
		t.Errorf("no header: got %q", got)
	}
	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := BearerToken(r); got != "abc.def.ghi" {
		t.Errorf("got %q", got)
	}
	r.Header.Set("Authorization", "bearer lower")
	if got := BearerToken(r); got != "lower" {
		t.Errorf("case-insensitive scheme: got %q", got)
	}
	r.Header.Set("Authorization", "Basic dXNlcg==")
	if got := BearerToken(r); got != "" {
		t.Errorf("basic scheme: got %q", got)
	}
}

func TestRequireAuth(t *testing.T) {
	user := &model.User{ID: "u1", Email: "a@b.com"}
	sess := &model.Session{SessionID: "s1", UserID: "u1", Status: model.SessionStatusActive}

	var seenUser *model.User
	var seenSess *model.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = GetUser(r.Context())
		seenSess = GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("ok", func(t *testing.T) {
		fake := &fakeAuthenticator{user: user, sess: sess}
		h := RequireAuth(fake)(next)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		r.Header.Set("User-Agent", "test-agent/1.0")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if seenUser == nil || seenUser.ID != "u1" {
			t.Errorf("user not in context: %+v", seenUser)
		}
		if seenSess == nil || seenSess.SessionID != "s1" {
			t.Errorf("session not in context: %+v", seenSess)
		}
		if fake.gotIP == nil || *fake.gotIP == "" {
			t.Errorf("client ip not passed through")
		}
		if fake.gotUA == nil || *fake.gotUA != "test-agent/1.0" {
			t.Errorf("user agent not passed through: %v", fake.gotUA)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		h := RequireAuth(&fakeAuthenticator{user: user, sess: sess})(next)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d, want 401", w.Code)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		h := RequireAuth(&fakeAuthenticator{err: errors.New("bad token")})(next)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d, want 401", w.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	admin := &model.User{ID: "u1", Email: "Admin@Example.com"}
	regular := &model.User{ID: "u2", Email: "user@example.com"}
	sess := &model.Session{SessionID: "s1"}

	run := func(u *model.User) int {
		h := RequireAdmin("admin@example.com")(next)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if u != nil {
			r = r.WithContext(WithUser(r.Context(), u, sess))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	// Сравнение email регистронезависимое.
	if code := run(admin); code != http.StatusOK {
		t.Errorf("admin: status %d", code)
	}
	if code := run(regular); code != http.StatusForbidden {
		t.Errorf("regular user: status %d, want 403", code)
	}
	if code := run(nil); code != http.StatusForbidden {
		t.Errorf("no user: status %d, want 403", code)
	}
}

func TestRecoverJSON(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type %q", ct)
	}
}
