package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/lovenav/internal/model"
)

// Authenticator проверяет access-токен и возвращает пользователя с сессией.
// ip и userAgent обновляют метаданные сессии на каждом запросе.
// Реализация: service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string, ip, userAgent *string) (*model.User, *model.Session, error)
}

// ClientMeta достаёт IP и User-Agent запроса. X-Real-Ip (его выставляет
// reverse-proxy) важнее RemoteAddr.
func ClientMeta(r *http.Request) (ip, userAgent *string) {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		ip = &host
	} else if addr := r.RemoteAddr; addr != "" {
		ip = &addr
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		ip = &realIP
	}
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}
	return ip, userAgent
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// BearerToken достаёт токен из Authorization: Bearer <token>.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth пускает дальше только запросы с валидным access-токеном.
// Пользователь и сессия кладутся в контекст. Причина отказа клиенту не
// детализируется, всё — 401.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			ip, ua := ClientMeta(r)
			u, sess, err := auth.Authenticate(r.Context(), tok, ip, ua)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u, sess)))
		})
	}
}

// RequireAdmin — поверх RequireAuth: доступ только админу.
func RequireAdmin(adminEmail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := GetUser(r.Context())
			if u == nil || adminEmail == "" || !strings.EqualFold(u.Email, adminEmail) {
				writeAuthError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
