package middleware

import (
	"context"

	"github.com/lovenav/internal/model"
)

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// WithUser кладёт аутентифицированного пользователя и его сессию в контекст.
func WithUser(ctx context.Context, u *model.User, s *model.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, sessionKey, s)
}

// GetUser возвращает пользователя из контекста (устанавливается RequireAuth).
func GetUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

// GetSession возвращает сессию текущего запроса.
func GetSession(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey).(*model.Session)
	return s
}
