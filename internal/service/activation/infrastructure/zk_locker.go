// activation-service/internal/infrastructure/zk_locker.go
package infrastructure

import (
	"context"
	"fmt"

	"codepay/internal/zookeeper"
)

// ZookeeperLocker 是 Locker 的 ZooKeeper 实现。
// 用于 JSONBin 这类没有原子写能力的存储：激活的读-改-写
// 在跨实例的分布式锁内串行执行。
type ZookeeperLocker struct {
	conn *zookeeper.Conn
}

func NewZookeeperLocker(conn *zookeeper.Conn) *ZookeeperLocker {
	return &ZookeeperLocker{conn: conn}
}

func (l *ZookeeperLocker) Acquire(_ context.Context, code string) (func(), error) {
	lock := zookeeper.NewDistributedLock(l.conn, code)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire zookeeper lock for %s: %w", code, err)
	}
	return func() { _ = lock.Unlock() }, nil
}
