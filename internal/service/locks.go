package service

import (
	"sort"
	"sync"
)

// LockScope 学习者互斥作用域，多个作用域总是按数值升序获取
type LockScope int

const (
	// ScopeSession 会话状态机
	ScopeSession LockScope = iota
	// ScopeProgress 连续天数、徽章进度、测验结果、闪卡调度
	ScopeProgress
)

type lockKey struct {
	learnerID uint
	scope     LockScope
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// LearnerLocks 按学习者划分的互斥锁表，不同学习者互不阻塞
type LearnerLocks struct {
	mu      sync.Mutex
	entries map[lockKey]*lockEntry
}

func NewLearnerLocks() *LearnerLocks {
	return &LearnerLocks{entries: make(map[lockKey]*lockEntry)}
}

// Lock 获取学习者的一个或多个作用域，返回的 unlock 必须且只能调用一次
func (l *LearnerLocks) Lock(learnerID uint, scopes ...LockScope) (unlock func()) {
	ordered := append([]LockScope(nil), scopes...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	held := make([]lockKey, 0, len(ordered))
	for i, scope := range ordered {
		if i > 0 && ordered[i-1] == scope {
			continue
		}
		key := lockKey{learnerID: learnerID, scope: scope}
		l.acquire(key).mu.Lock()
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				l.release(held[i])
			}
		})
	}
}

func (l *LearnerLocks) acquire(key lockKey) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *LearnerLocks) release(key lockKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entries[key]
	entry.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// size 当前持有或等待中的锁数量
func (l *LearnerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
