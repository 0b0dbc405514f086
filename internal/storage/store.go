package storage

import (
	"context"
	"time"

	"github.com/lovenav/internal/model"
)

// SessionLedgerStore — хранилище серверных сессий и одноразового refresh-журнала.
// Реализация: redis.Client.
type SessionLedgerStore interface {
	// Сессии: auth:session:{id} (JSON) + индекс auth:user-sessions:{uid} (SET).
	SetSession(ctx context.Context, s *model.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	SessionIDs(ctx context.Context, userID string) ([]string, error)
	RemoveSessionID(ctx context.Context, userID, sessionID string) error

	// Refresh-журнал: auth:refresh:{jti} -> session_id, TTL = времени жизни refresh.
	RecordRefresh(ctx context.Context, jti, sessionID string, ttl time.Duration) error
	// ConsumeRefresh атомарно читает и удаляет запись (GETDEL).
	// Повторное потребление того же jti возвращает "".
	ConsumeRefresh(ctx context.Context, jti string) (string, error)
	RevokeRefresh(ctx context.Context, jti string) error

	Close() error
}

// CacheStore — кеш ответов внешних API (погода и т.п.).
type CacheStore interface {
	CacheGet(ctx context.Context, key string) (string, error)
	CacheSet(ctx context.Context, key, value string, ttl time.Duration) error
}

// TaskStore — статусы фоновых LLM-задач (hash llm:task:{id}).
type TaskStore interface {
	SetTask(ctx context.Context, taskID string, fields map[string]string, ttl time.Duration) error
	UpdateTask(ctx context.Context, taskID string, fields map[string]string) error
	GetTask(ctx context.Context, taskID string) (map[string]string, error)
}
