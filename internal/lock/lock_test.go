package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/dragon-companion/internal/config"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
)

func TestOrderedKeys(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"single", []string{"alice"}, []string{"alice"}},
		{"sorted", []string{"bob", "alice"}, []string{"alice", "bob"}},
		{"dedup", []string{"bob", "alice", "bob"}, []string{"alice", "bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderedKeys(tt.in...))
		})
	}
}

func TestKeyedLocker_MutualExclusion(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "alice")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size())
}

// 相反顺序传入的两把锁不会死锁
func TestKeyedLocker_OppositeOrderNoDeadlock(t *testing.T) {
	l := NewKeyedLocker()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var done int32
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "alice", "bob")
			if assert.NoError(t, err) {
				atomic.AddInt32(&done, 1)
				unlock()
			}
		}()
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "bob", "alice")
			if assert.NoError(t, err) {
				atomic.AddInt32(&done, 1)
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), done)
	assert.Equal(t, 0, l.size())
}

func TestKeyedLocker_DuplicateKeys(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "alice", "alice")
	require.NoError(t, err)
	unlock()
	// 重复调用unlock无副作用
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestKeyedLocker_ContextCanceled(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "bob")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "alice", "bob")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTimeout))

	// 失败时已获取的alice被释放
	unlockAlice, err := l.Lock(context.Background(), "alice")
	require.NoError(t, err)
	unlockAlice()

	unlock()
	assert.Equal(t, 0, l.size())
}

func TestNew_DefaultsToMemory(t *testing.T) {
	locker, closeFn, err := New(context.Background(), config.LockConfig{Driver: "memory"}, config.RedisConfig{}, nil)
	require.NoError(t, err)
	defer closeFn()
	_, ok := locker.(*KeyedLocker)
	assert.True(t, ok)
}

// 需要真实Redis，设置 DRAGON_TEST_REDIS_ADDR 后运行
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("DRAGON_TEST_REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("未配置 DRAGON_TEST_REDIS_ADDR，跳过Redis锁测试")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, config.LockConfig{
		TTL:           2 * time.Second,
		RetryInterval: 5 * time.Millisecond,
		MaxRetries:    4,
	}, nil)

	unlock, err := l.Lock(ctx, "test-bob", "test-alice")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "test-alice")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrLockAcquire))

	unlock()

	unlock2, err := l.Lock(ctx, "test-alice")
	require.NoError(t, err)
	unlock2()
}
