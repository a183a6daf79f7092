package infrastructure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codepay/internal/service/activation/domain"
)

func TestMemorySnapshotStore_Isolation(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()

	snapshot, err := store.GetSnapshot(ctx)
	require.NoError(t, err)
	snapshot.Codes["HORSE-2026-AAAA-AAAA"] = domain.IssuanceRecord{Index: 1}

	// 未 Put 的修改对后续读取不可见
	fresh, err := store.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh.Codes)

	require.NoError(t, store.PutSnapshot(ctx, snapshot))

	// Put 之后调用方继续改自己的副本也不影响存储
	snapshot.Codes["HORSE-2026-BBBB-BBBB"] = domain.IssuanceRecord{Index: 2}
	stored, err := store.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Codes, 1)
}

func TestKeyedMutexLocker_MutualExclusion(t *testing.T) {
	locker := NewKeyedMutexLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "HORSE-2026-AAAA-AAAA")
	require.NoError(t, err)

	// 不同的码互不阻塞
	otherRelease, err := locker.Acquire(ctx, "HORSE-2026-BBBB-BBBB")
	require.NoError(t, err)
	otherRelease()

	acquired := make(chan struct{})
	go func() {
		r, err := locker.Acquire(ctx, "HORSE-2026-AAAA-AAAA")
		assert.NoError(t, err)
		r()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must block until release")
	default:
	}

	release()
	<-acquired
}
