package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lovenav/internal/model"
)

// Префиксы ключей. Сессия и её refresh-запись живут независимо:
// отзыв сессии не трогает журнал, проверка идёт по обоим.
const (
	sessionKeyPrefix  = "auth:session:"
	userIndexPrefix   = "auth:user-sessions:"
	refreshKeyPrefix  = "auth:refresh:"
	cacheKeyPrefix    = "cache:"
	taskKeyPrefix     = "llm:task:"
)

// MinSessionTTL — нижняя граница TTL сессионных ключей (1 час),
// чтобы короткие тестовые TTL токенов не роняли запись раньше времени.
const MinSessionTTL = time.Hour

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

// NewFromClient оборачивает готовое соединение (miniredis в тестах).
func NewFromClient(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetSession пишет JSON сессии и добавляет session_id в индекс пользователя.
// TTL обоих ключей продлевается при каждой записи (touch при refresh).
func (c *Client) SetSession(ctx context.Context, s *model.Session, ttl time.Duration) error {
	if ttl < MinSessionTTL {
		ttl = MinSessionTTL
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe := c.cli.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.SessionID, raw, ttl)
	pipe.SAdd(ctx, userIndexPrefix+s.UserID, s.SessionID)
	pipe.Expire(ctx, userIndexPrefix+s.UserID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// GetSession возвращает сессию или (nil, nil), если ключ истёк/не существует.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	raw, err := c.cli.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &s, nil
}

func (c *Client) DeleteSession(ctx context.Context, userID, sessionID string) error {
	pipe := c.cli.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	if userID != "" {
		pipe.SRem(ctx, userIndexPrefix+userID, sessionID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SessionIDs возвращает содержимое индекса пользователя (включая протухшие id —
// ленивую чистку делает слой сервиса через RemoveSessionID).
func (c *Client) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := c.cli.SMembers(ctx, userIndexPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return ids, err
}

func (c *Client) RemoveSessionID(ctx context.Context, userID, sessionID string) error {
	return c.cli.SRem(ctx, userIndexPrefix+userID, sessionID).Err()
}

// RecordRefresh регистрирует jti выпущенного refresh-токена.
func (c *Client) RecordRefresh(ctx context.Context, jti, sessionID string, ttl time.Duration) error {
	return c.cli.Set(ctx, refreshKeyPrefix+jti, sessionID, ttl).Err()
}

// ConsumeRefresh атомарно забирает запись журнала (GETDEL): второй вызов
// с тем же jti вернёт "", чем закрывается гонка двойного refresh.
func (c *Client) ConsumeRefresh(ctx context.Context, jti string) (string, error) {
	val, err := c.cli.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) RevokeRefresh(ctx context.Context, jti string) error {
	return c.cli.Del(ctx, refreshKeyPrefix+jti).Err()
}

func (c *Client) CacheGet(ctx context.Context, key string) (string, error) {
	val, err := c.cli.Get(ctx, cacheKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) CacheSet(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.cli.Set(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

// SetTask создаёт hash статуса фоновой задачи; TTL защищает от утечки
// записей брошенных задач.
func (c *Client) SetTask(ctx context.Context, taskID string, fields map[string]string, ttl time.Duration) error {
	key := taskKeyPrefix + taskID
	pipe := c.cli.TxPipeline()
	pipe.HSet(ctx, key, toAnyMap(fields))
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, fields map[string]string) error {
	return c.cli.HSet(ctx, taskKeyPrefix+taskID, toAnyMap(fields)).Err()
}

// GetTask возвращает поля hash или nil, если задачи нет.
func (c *Client) GetTask(ctx context.Context, taskID string) (map[string]string, error) {
	fields, err := c.cli.HGetAll(ctx, taskKeyPrefix+taskID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// FlushDB очищает текущую БД Redis (тесты, dev-перезапуск).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}

func toAnyMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
