package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 취소 플래그는 worker 재시작에도 살아남도록 Redis에 둔다
const cancelKeyPrefix = "jobs:cancelled:"

// SetJobCancelled - Job 취소 플래그 설정 (1시간 TTL)
func SetJobCancelled(rdb *redis.Client, jobID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s", cancelKeyPrefix, jobID)
	return rdb.Set(ctx, key, "1", time.Hour).Err()
}

// IsJobCancelled - Job 취소 여부 확인
func IsJobCancelled(rdb *redis.Client, jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%s", cancelKeyPrefix, jobID)
	exists, err := rdb.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
