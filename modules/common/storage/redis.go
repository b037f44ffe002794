package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Redis - Redis 기반 슬롯 저장소
// Redis에는 키별 용량 제한 프리미티브가 없으므로 쿼터는 클라이언트 측에서 강제한다
type Redis struct {
	rdb        *redis.Client
	quotaBytes int
	keyPrefix  string
}

// NewRedis - Redis 저장소 생성
func NewRedis(rdb *redis.Client, quotaBytes int) *Redis {
	return &Redis{
		rdb:        rdb,
		quotaBytes: quotaBytes,
		keyPrefix:  "studio:slot:",
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, r.keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if r.quotaBytes > 0 && len(value) > r.quotaBytes {
		log.Printf("⚠️  Slot %s rejected: %d bytes exceeds quota %d", key, len(value), r.quotaBytes)
		return ErrQuotaExceeded
	}

	if err := r.rdb.Set(ctx, r.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", key, err)
	}
	return nil
}
