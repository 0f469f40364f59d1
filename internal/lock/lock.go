package lock

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/wfunc/dragon-companion/internal/errors"
)

// Locker 按用户串行化写操作
type Locker interface {
	// Lock 获取全部key的锁，key会去重并按字典序获取；返回的unlock释放全部锁
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// OrderedKeys 去重并按字典序排序
func OrderedKeys(keys ...string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// KeyedLocker 进程内按key加锁，不再使用的key自动回收
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedLocker 创建进程内锁
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry)}
}

// Lock 获取锁
func (l *KeyedLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := OrderedKeys(keys...)
	held := make([]string, 0, len(ordered))

	release := func() {
		// 逆序释放
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, key := range ordered {
		if err := l.acquire(ctx, key); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *KeyedLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, e)
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.Wrap(ctx.Err(), apperrors.ErrTimeout, "等待用户锁超时: "+key)
		}
		return apperrors.Wrap(ctx.Err(), apperrors.ErrCanceled, "等待用户锁被取消: "+key)
	}
}

func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	l.unref(key, e)
}

func (l *KeyedLocker) unref(key string, e *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// size 当前持有或等待中的key数量
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
