package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore keeps short-lived phone verification codes.
type CodeStore interface {
	Put(ctx context.Context, userID uint64, phone, code string, ttl time.Duration) error
	// Take returns the stored phone and code and deletes them.  A missing
	// or expired entry is ErrNotFound.
	Take(ctx context.Context, userID uint64) (phone, code string, err error)
}

// RedisCodeStore stores one hash per user under tripshare:phone:<id>.
type RedisCodeStore struct{ rdb *redis.Client }

func NewRedisCodeStore(rdb *redis.Client) *RedisCodeStore { return &RedisCodeStore{rdb: rdb} }

func codeKey(userID uint64) string { return "tripshare:phone:" + strconv.FormatUint(userID, 10) }

func (s *RedisCodeStore) Put(ctx context.Context, userID uint64, phone, code string, ttl time.Duration) error {
	key := codeKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "phone", phone, "code", code)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisCodeStore) Take(ctx context.Context, userID uint64) (string, string, error) {
	key := codeKey(userID)
	pipe := s.rdb.TxPipeline()
	get := pipe.HGetAll(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", "", err
	}
	vals := get.Val()
	if vals["code"] == "" {
		return "", "", ErrNotFound
	}
	return vals["phone"], vals["code"], nil
}
