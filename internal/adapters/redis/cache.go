package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"roomledger/internal/adapters/observability"
	"roomledger/internal/domain"
)

type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, _ := json.Marshal(v)
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// ---- session store ----

func sessionKey(token string) string { return "session:" + token }

func (r *Cache) PutSession(ctx context.Context, s domain.Session, ttlSec int) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.c.Set(ctx, sessionKey(s.Token), b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) GetSession(ctx context.Context, token string) (domain.Session, bool, error) {
	v, err := r.c.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var s domain.Session
	if err := json.Unmarshal(v, &s); err != nil {
		return domain.Session{}, false, err
	}
	return s, true, nil
}

func (r *Cache) DelSession(ctx context.Context, token string) error {
	return r.c.Del(ctx, sessionKey(token)).Err()
}
