// activation-service/internal/infrastructure/redis_store.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"codepay/internal/pkg/redis"
	"codepay/internal/service/activation/domain"
)

const (
	snapshotKey = "activation:snapshot"

	unlockScriptName = "activation_unlock"
	lockTTL          = 30 * time.Second
	lockRetryDelay   = 50 * time.Millisecond
)

// unlockScript 只在持有者 token 匹配时删除锁，避免释放掉别人续上的锁。
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`

// RedisSnapshotStore 是 SnapshotStore 的 Redis 实现。
// 整个快照序列化为 JSON 存在一个 Key 下，和对端存储（JSONBin）保持同构。
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore 创建 Redis 存储适配器。
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

// GetSnapshot 读取快照。Key 不存在时返回空快照。
func (s *RedisSnapshotStore) GetSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.GetClient().Get(ctx, snapshotKey).Bytes()
	if err == goredis.Nil {
		return domain.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activation snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("activation snapshot is corrupted: %w", err)
	}
	snapshot.EnsureMaps()
	return &snapshot, nil
}

func (s *RedisSnapshotStore) PutSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal activation snapshot: %w", err)
	}
	if err := s.client.GetClient().Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write activation snapshot: %w", err)
	}
	return nil
}

// RedisLocker 是 Locker 的 Redis 实现：SET NX PX 租约 + Lua 校验释放。
type RedisLocker struct {
	client *redis.Client
	nodeID string
}

// NewRedisLocker 创建 Redis 锁适配器。它在创建时加载释放锁所需的 Lua 脚本。
func NewRedisLocker(client *redis.Client, nodeID string) (*RedisLocker, error) {
	if err := client.LoadScriptFromContent(unlockScriptName, unlockScript); err != nil {
		return nil, fmt.Errorf("failed to load unlock script: %w", err)
	}
	return &RedisLocker{client: client, nodeID: nodeID}, nil
}

// Acquire 自旋获取 code 上的租约锁，直到成功或 ctx 结束。
func (l *RedisLocker) Acquire(ctx context.Context, code string) (func(), error) {
	lockKey := fmt.Sprintf("activation:lock:{%s}", code)
	token := fmt.Sprintf("%s-%d", l.nodeID, time.Now().UnixNano())

	for {
		ok, err := l.client.GetClient().SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for %s: %w", code, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	release := func() {
		// 释放时必须校验 token：租约过期后锁可能已被他人持有
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.client.RunScript(releaseCtx, unlockScriptName, []string{lockKey}, token)
	}
	return release, nil
}
