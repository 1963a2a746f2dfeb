package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "verification:"

// RedisCodeStore shares verification records between server instances.
// Keys expire together with the code they hold.
type RedisCodeStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client, now: time.Now}
}

// ConnectRedis dials addr and pings it within two seconds.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func codeKey(email string) string {
	return codeKeyPrefix + email
}

func (r *RedisCodeStore) Save(ctx context.Context, email string, rec CodeRecord) error {
	ttl := rec.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.client.Del(ctx, codeKey(email)).Err()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, codeKey(email), payload, ttl).Err()
}

func (r *RedisCodeStore) Get(ctx context.Context, email string) (CodeRecord, error) {
	raw, err := r.client.Get(ctx, codeKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CodeRecord{}, errNoCode
	}
	if err != nil {
		return CodeRecord{}, err
	}
	var rec CodeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return CodeRecord{}, fmt.Errorf("corrupt verification record: %w", err)
	}
	return rec, nil
}

func (r *RedisCodeStore) MarkVerified(ctx context.Context, email string) error {
	rec, err := r.Get(ctx, email)
	if err != nil {
		return err
	}
	rec.Verified = true
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, codeKey(email), payload, redis.KeepTTL).Err()
}

func (r *RedisCodeStore) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, codeKey(email)).Err()
}
