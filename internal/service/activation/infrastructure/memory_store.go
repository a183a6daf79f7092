// activation-service/internal/infrastructure/memory_store.go
package infrastructure

import (
	"context"
	"sync"

	"codepay/internal/service/activation/domain"
)

// MemorySnapshotStore 是 SnapshotStore 的进程内实现。
// 只用于测试和本地开发：并发部署下不要依赖进程内可变状态。
type MemorySnapshotStore struct {
	mu       sync.RWMutex
	snapshot *domain.Snapshot
}

// NewMemorySnapshotStore 创建一个空的内存存储。
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshot: domain.NewSnapshot()}
}

// GetSnapshot 返回快照的深拷贝，调用方的修改在 PutSnapshot 之前不可见。
func (s *MemorySnapshotStore) GetSnapshot(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone(), nil
}

func (s *MemorySnapshotStore) PutSnapshot(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot.Clone()
	return nil
}

// KeyedMutexLocker 是 Locker 的进程内实现：每个激活码一把互斥锁。
// 单实例部署时足够；多实例部署应改用 Redis 或 ZooKeeper 锁。
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *KeyedMutexLocker) Acquire(_ context.Context, code string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[code]
	if !ok {
		m = &sync.Mutex{}
		l.locks[code] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
