// activation-service/internal/domain/store.go
package domain

import "context"

// SnapshotStore 是激活码存储的端口：整体读、整体写。
// 存储未初始化时 GetSnapshot 必须返回空快照而不是错误。
// 读-改-写本身不具备原子性，互斥由 Locker 提供。
type SnapshotStore interface {
	GetSnapshot(ctx context.Context) (*Snapshot, error)
	PutSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Locker 对单个激活码提供互斥。
// 并发激活同一个码时，读-改-写必须串行化，否则后写者会
// 无声覆盖先写者的设备绑定。
type Locker interface {
	// Acquire 获取 code 上的锁，返回释放函数。
	Acquire(ctx context.Context, code string) (release func(), err error)
}
