package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	redisstore "github.com/lovenav/internal/storage/redis"
	"github.com/lovenav/internal/token"
)

type memUserStore struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	nextID  int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (m *memUserStore) Create(_ context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.nextID++
	u.ID = string(rune('a'+m.nextID)) + "-uid"
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *redisstore.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	store := redisstore.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	codec, err := token.NewCodec("test-secret", "HS256")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	users := newMemUserStore()
	svc := NewAuthService(users, store, codec, 15*time.Minute, 7*24*time.Hour, "admin@example.com")
	if _, err := svc.Signup(context.Background(), SignupRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
		Nickname: "alice",
	}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return svc, store
}

func login(t *testing.T, svc *AuthService) (*TokenPair, *model.User) {
	t.Helper()
	pair, u, err := svc.Login(context.Background(), "alice@example.com", "correct horse", nil, nil)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return pair, u
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupRequest{Email: "not-an-email", Password: "long enough"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad email: got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupRequest{Email: "bob@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupRequest{Email: "Alice@Example.com", Password: "correct horse"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email (case-insensitive): got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong", nil, nil)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	_, _, err = svc.Login(context.Background(), "nobody@example.com", "whatever", nil, nil)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginCreatesSession(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	pair, u := login(t, svc)

	if pair.TokenType != "bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("bad token pair: %+v", pair)
	}

	gotUser, sess, err := svc.Authenticate(ctx, pair.AccessToken, nil, nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if gotUser.ID != u.ID {
		t.Errorf("authenticated user %s, want %s", gotUser.ID, u.ID)
	}
	if sess.Status != model.SessionStatusActive {
		t.Errorf("session status %q", sess.Status)
	}

	// Refresh-журнал заполнен для выданного jti.
	ids, err := store.SessionIDs(ctx, u.ID)
	if err != nil || len(ids) != 1 {
		t.Fatalf("session index: ids=%v err=%v", ids, err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, _ := login(t, svc)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newPair.RefreshToken == pair.RefreshToken {
		t.Error("refresh token not rotated")
	}

	// Новый access работает, старый отклоняется по jti.
	if _, _, err := svc.Authenticate(ctx, newPair.AccessToken, nil, nil); err != nil {
		t.Errorf("new access rejected: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, pair.AccessToken, nil, nil); !errors.Is(err, token.ErrInvalidToken) {
		t.Errorf("old access after rotation: got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshReplayFails(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, _ := login(t, svc)

	if _, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	// Повторный refresh тем же токеном: jti уже ротирован и изъят из журнала.
	if _, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("replayed refresh: got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	pair, _ := login(t, svc)
	if _, err := svc.Refresh(context.Background(), pair.AccessToken, nil, nil); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("access token in refresh: got %v", err)
	}
}

func TestRefreshRevokedSessionFails(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, _ := login(t, svc)

	svc.Logout(ctx, pair.AccessToken, "")

	if _, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("refresh of revoked session: got %v, want ErrSessionRevoked", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, _ := login(t, svc)

	svc.Logout(ctx, pair.AccessToken, "")

	if _, _, err := svc.Authenticate(ctx, pair.AccessToken, nil, nil); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("access after logout: got %v, want ErrSessionRevoked", err)
	}
	// Повторный logout не паникует и не меняет результат.
	svc.Logout(ctx, pair.AccessToken, "")
	svc.Logout(ctx, "garbage", "")
}

func TestLogoutByRefreshTokenOnly(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, _ := login(t, svc)

	// Выход без access-токена: достаточно refresh из cookie.
	svc.Logout(ctx, "", pair.RefreshToken)

	if _, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("refresh after cookie-only logout: got %v, want ErrSessionRevoked", err)
	}
	if _, _, err := svc.Authenticate(ctx, pair.AccessToken, nil, nil); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("access after cookie-only logout: got %v, want ErrSessionRevoked", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	// Вставка нарочно не по порядку: выдача должна сортироваться по last_seen.
	stamps := []string{"2026-08-02T10:00:00Z", "2026-08-04T10:00:00Z", "2026-08-03T10:00:00Z"}
	for i, seen := range stamps {
		sess := &model.Session{
			SessionID: string(rune('a'+i)) + "-sess",
			UserID:    "order-uid",
			Status:    model.SessionStatusActive,
			CreatedAt: "2026-08-01T00:00:00Z",
			LastSeen:  seen,
		}
		if err := store.SetSession(ctx, sess, time.Hour); err != nil {
			t.Fatalf("SetSession: %v", err)
		}
	}

	infos, err := svc.ListSessions(ctx, "order-uid", "")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d sessions, want 3", len(infos))
	}
	want := []string{"2026-08-04T10:00:00Z", "2026-08-03T10:00:00Z", "2026-08-02T10:00:00Z"}
	for i, info := range infos {
		if info.LastSeen != want[i] {
			t.Fatalf("order wrong at [%d]: got %s, want %s (all: %+v)", i, info.LastSeen, want[i], infos)
		}
	}
}

func TestAuthenticateTouchesClientMeta(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	homeIP, homeUA := "192.0.2.1", "phone-app/1.0"
	pair, _, err := svc.Login(ctx, "alice@example.com", "correct horse", &homeIP, &homeUA)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	officeIP, officeUA := "198.51.100.7", "laptop-browser/2.0"
	_, sess, err := svc.Authenticate(ctx, pair.AccessToken, &officeIP, &officeUA)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	saved, err := store.GetSession(ctx, sess.SessionID)
	if err != nil || saved == nil {
		t.Fatalf("GetSession: %v (%v)", saved, err)
	}
	if saved.IP == nil || *saved.IP != officeIP {
		t.Errorf("session ip = %v, want %s", saved.IP, officeIP)
	}
	if saved.UserAgent == nil || *saved.UserAgent != officeUA {
		t.Errorf("session user agent = %v, want %s", saved.UserAgent, officeUA)
	}

	// Ротация refresh тоже переносит метаданные клиента.
	roamIP := "203.0.113.42"
	if _, err := svc.Refresh(ctx, pair.RefreshToken, &roamIP, nil); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	saved, _ = store.GetSession(ctx, sess.SessionID)
	if saved.IP == nil || *saved.IP != roamIP {
		t.Errorf("ip after refresh = %v, want %s", saved.IP, roamIP)
	}
	// nil не затирает прежнее значение.
	if saved.UserAgent == nil || *saved.UserAgent != officeUA {
		t.Errorf("user agent after refresh = %v, want %s", saved.UserAgent, officeUA)
	}
}

func TestRevokeSessionReason(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	pair, u := login(t, svc)
	_, sess, _ := svc.Authenticate(ctx, pair.AccessToken, nil, nil)

	if err := svc.RevokeSession(ctx, u.ID, sess.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	saved, _ := store.GetSession(ctx, sess.SessionID)
	if saved == nil || saved.RevokedReason != "user_revoked" {
		t.Fatalf("revoked reason = %+v, want user_revoked", saved)
	}
}

func TestListSessionsMarksCurrent(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair1, u := login(t, svc)
	login(t, svc)

	_, sess1, err := svc.Authenticate(ctx, pair1.AccessToken, nil, nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	infos, err := svc.ListSessions(ctx, u.ID, sess1.SessionID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}
	current := 0
	for _, i := range infos {
		if i.IsCurrent {
			current++
			if i.SessionID != sess1.SessionID {
				t.Errorf("wrong current session %s", i.SessionID)
			}
		}
	}
	if current != 1 {
		t.Errorf("current sessions = %d, want 1", current)
	}
}

func TestRevokeSessionOwnership(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, u := login(t, svc)
	_, sess, _ := svc.Authenticate(ctx, pair.AccessToken, nil, nil)

	// Чужой userID: сессия "не найдена".
	if err := svc.RevokeSession(ctx, "someone-else", sess.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign revoke: got %v", err)
	}
	if err := svc.RevokeSession(ctx, u.ID, "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session: got %v", err)
	}

	if err := svc.RevokeSession(ctx, u.ID, sess.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken, nil, nil); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("refresh after revoke: got %v", err)
	}
	// Отзыв уже отозванной сессии идемпотентен.
	if err := svc.RevokeSession(ctx, u.ID, sess.SessionID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestAdminRole(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupRequest{Email: "admin@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("Signup admin: %v", err)
	}
	pair, _, err := svc.Login(ctx, "admin@example.com", "correct horse", nil, nil)
	if err != nil {
		t.Fatalf("Login admin: %v", err)
	}
	codec, _ := token.NewCodec("test-secret", "HS256")
	claims, err := codec.Decode(pair.AccessToken)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}
