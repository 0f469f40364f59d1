package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/wfunc/dragon-companion/internal/config"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"go.uber.org/zap"
)

const (
	defaultLockTTL       = 5 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	defaultMaxRetries    = 200
	redisKeyPrefix       = "dragon:lock:"
)

// 只有锁持有者才能删除
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker 基于Redis SET NX 的跨进程用户锁
type RedisLocker struct {
	client        goredis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
	logger        *zap.Logger
}

// NewRedisLocker 创建Redis锁
func NewRedisLocker(client goredis.UniversalClient, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	l := &RedisLocker{
		client:        client,
		ttl:           cfg.TTL,
		retryInterval: cfg.RetryInterval,
		maxRetries:    cfg.MaxRetries,
		logger:        logger,
	}
	if l.ttl <= 0 {
		l.ttl = defaultLockTTL
	}
	if l.retryInterval <= 0 {
		l.retryInterval = defaultRetryInterval
	}
	if l.maxRetries <= 0 {
		l.maxRetries = defaultMaxRetries
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// NewRedisClient 按配置创建Redis客户端并检查连通性
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}
	return client, nil
}

// Lock 获取锁
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := OrderedKeys(keys...)
	token := uuid.New().String()
	held := make([]string, 0, len(ordered))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// 使用独立的context，调用方取消后仍能释放
			rctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := unlockScript.Run(rctx, l.client, []string{redisKeyPrefix + held[i]}, token).Err(); err != nil {
				l.logger.Warn("释放用户锁失败", zap.String("key", held[i]), zap.Error(err))
			}
			cancel()
		}
	}

	for _, key := range ordered {
		if err := l.acquire(ctx, redisKeyPrefix+key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	for i := 0; i < l.maxRetries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrLockAcquire, key)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.ErrLockAcquire, key)
		case <-time.After(l.retryInterval):
		}
	}
	return apperrors.Newf(apperrors.ErrLockAcquire, "%s: 重试%d次仍被占用", key, l.maxRetries)
}

// New 按配置选择锁实现
func New(ctx context.Context, lockCfg config.LockConfig, redisCfg config.RedisConfig, logger *zap.Logger) (Locker, func() error, error) {
	switch lockCfg.Driver {
	case "redis":
		client, err := NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisLocker(client, lockCfg, logger), client.Close, nil
	default:
		return NewKeyedLocker(), func() error { return nil }, nil
	}
}
