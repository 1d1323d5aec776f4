package cache

import (
	"context"
	"errors"
	"time"

	"OptInSync/internal/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockKey 订单同步锁在 Redis 中的键
const DefaultLockKey = "optinsync:lock:order_sync"

// 只有令牌匹配时才删除，避免误删已过期后被他人获取的锁
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLock struct {
	client *redis.Client
	key    string
	script *redis.Script
}

// NewRedisLock 基于 SET NX PX 的同步锁
func NewRedisLock(client *redis.Client, key string) (interfaces.SyncLock, error) {
	if client == nil {
		return nil, errors.New("redis 客户端未配置")
	}
	if key == "" {
		key = DefaultLockKey
	}
	return &redisLock{client: client, key: key, script: redis.NewScript(releaseScript)}, nil
}

func (l *redisLock) TryAcquire(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if ttl <= 0 {
		return "", false, errors.New("锁超时时间必须大于0")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *redisLock) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.key}, token).Err()
}
