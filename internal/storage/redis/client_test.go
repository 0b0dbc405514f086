package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lovenav/internal/model"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	c := NewFromClient(rdb)
	t.Cleanup(func() {
		_ = c.Close()
		mr.Close()
	})
	return c, mr
}

func testSession(id, userID string) *model.Session {
	now := time.Now().UTC().Format(time.RFC3339)
	return &model.Session{
		SessionID:  id,
		UserID:     userID,
		Status:     model.SessionStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeen:   now,
		AccessJTI:  "a-" + id,
		RefreshJTI: "r-" + id,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	s := testSession("s1", "u1")
	if err := c.SetSession(ctx, s, 2*time.Hour); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	got, err := c.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.UserID != "u1" || got.Status != model.SessionStatusActive || got.RefreshJTI != "r-s1" {
		t.Errorf("session fields not preserved: %+v", got)
	}

	ids, err := c.SessionIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("SessionIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("user index = %v, want [s1]", ids)
	}
}

func TestGetSessionMissing(t *testing.T) {
	c, _ := newTestClient(t)
	got, err := c.GetSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestDeleteSessionRemovesIndexEntry(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_ = c.SetSession(ctx, testSession("s1", "u1"), 2*time.Hour)
	_ = c.SetSession(ctx, testSession("s2", "u1"), 2*time.Hour)

	if err := c.DeleteSession(ctx, "u1", "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if got, _ := c.GetSession(ctx, "s1"); got != nil {
		t.Error("session s1 still present after delete")
	}
	ids, _ := c.SessionIDs(ctx, "u1")
	if len(ids) != 1 || ids[0] != "s2" {
		t.Errorf("index = %v, want [s2]", ids)
	}
}

func TestSessionMinTTL(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	// TTL короче часа поднимается до MinSessionTTL.
	_ = c.SetSession(ctx, testSession("s1", "u1"), time.Minute)
	if ttl := mr.TTL(sessionKeyPrefix + "s1"); ttl < MinSessionTTL {
		t.Errorf("session ttl = %v, want >= %v", ttl, MinSessionTTL)
	}
}

func TestSessionExpiryLeavesStaleIndex(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_ = c.SetSession(ctx, testSession("s1", "u1"), 2*time.Hour)
	mr.Del(sessionKeyPrefix + "s1")

	// Индекс чистится лениво: id остаётся, пока его не уберёт RemoveSessionID.
	ids, _ := c.SessionIDs(ctx, "u1")
	if len(ids) != 1 {
		t.Fatalf("index = %v, want stale [s1]", ids)
	}
	if err := c.RemoveSessionID(ctx, "u1", "s1"); err != nil {
		t.Fatalf("RemoveSessionID: %v", err)
	}
	ids, _ = c.SessionIDs(ctx, "u1")
	if len(ids) != 0 {
		t.Errorf("index = %v, want empty after prune", ids)
	}
}

func TestConsumeRefreshIsOneShot(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.RecordRefresh(ctx, "jti-1", "s1", time.Hour); err != nil {
		t.Fatalf("RecordRefresh: %v", err)
	}

	sid, err := c.ConsumeRefresh(ctx, "jti-1")
	if err != nil {
		t.Fatalf("ConsumeRefresh: %v", err)
	}
	if sid != "s1" {
		t.Errorf("session id = %q, want s1", sid)
	}

	// Повторное потребление: запись уже удалена.
	sid, err = c.ConsumeRefresh(ctx, "jti-1")
	if err != nil {
		t.Fatalf("ConsumeRefresh second: %v", err)
	}
	if sid != "" {
		t.Errorf("expected empty on replay, got %q", sid)
	}
}

func TestRevokeRefresh(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_ = c.RecordRefresh(ctx, "jti-1", "s1", time.Hour)
	if err := c.RevokeRefresh(ctx, "jti-1"); err != nil {
		t.Fatalf("RevokeRefresh: %v", err)
	}
	if sid, _ := c.ConsumeRefresh(ctx, "jti-1"); sid != "" {
		t.Errorf("expected empty after revoke, got %q", sid)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if err := c.CacheSet(ctx, "weather:37.50:127.00", `{"temp":21}`, 30*time.Minute); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	val, err := c.CacheGet(ctx, "weather:37.50:127.00")
	if err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	if val != `{"temp":21}` {
		t.Errorf("cache value = %q", val)
	}

	mr.FastForward(31 * time.Minute)
	if val, _ := c.CacheGet(ctx, "weather:37.50:127.00"); val != "" {
		t.Errorf("expected empty after TTL, got %q", val)
	}
}

func TestTaskLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	err := c.SetTask(ctx, "t1", map[string]string{"status": "pending"}, time.Hour)
	if err != nil {
		t.Fatalf("SetTask: %v", err)
	}
	if err := c.UpdateTask(ctx, "t1", map[string]string{"status": "done", "result": "ok"}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	fields, err := c.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if fields["status"] != "done" || fields["result"] != "ok" {
		t.Errorf("task fields = %v", fields)
	}

	if fields, _ := c.GetTask(ctx, "missing"); fields != nil {
		t.Errorf("expected nil for missing task, got %v", fields)
	}
}
