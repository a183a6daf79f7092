package application

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"codepay/internal/service/activation/domain"
	"codepay/internal/service/activation/infrastructure"
)

const testCode = "HORSE-2026-TEST-CODE"

// failingStore 在写入时报错，用于验证持久化失败不改变对外状态。
type failingStore struct {
	inner domain.SnapshotStore
}

func (f *failingStore) GetSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	return f.inner.GetSnapshot(ctx)
}

func (f *failingStore) PutSnapshot(context.Context, *domain.Snapshot) error {
	return errors.New("storage unavailable")
}

func newTestService(t *testing.T, store domain.SnapshotStore, seed ...string) *ActivationService {
	t.Helper()
	svc := NewActivationService(store, infrastructure.NewKeyedMutexLocker(),
		domain.NewGenerator("HORSE", "2026"), otel.Tracer("test"))
	if len(seed) > 0 {
		require.NoError(t, svc.SeedCodes(context.Background(), seed))
	}
	return svc
}

func TestVerifyOnly(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemorySnapshotStore(), testCode)

	t.Run("valid code", func(t *testing.T) {
		result, err := svc.VerifyOnly(context.Background(), testCode, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusValid, result.Status)
	})

	t.Run("normalizes input", func(t *testing.T) {
		result, err := svc.VerifyOnly(context.Background(), "  horse-2026-test-code  ", "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusValid, result.Status)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.VerifyOnly(context.Background(), "HORSE-2026-XXXX-XXXX", "")
		assert.ErrorIs(t, err, domain.ErrCodeNotFound)
	})
}

func TestActivate_Lifecycle(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemorySnapshotStore(), testCode)
	ctx := context.Background()

	// 首次激活
	result, err := svc.Activate(ctx, testCode, "DEVICE-001", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActivated, result.Status)

	// 同一设备重复激活：幂等成功，返回原始激活时间
	again, err := svc.Activate(ctx, testCode, "DEVICE-001", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyActivated, again.Status)
	assert.False(t, again.ActivatedAt.IsZero())

	verified, err := svc.VerifyOnly(ctx, testCode, "DEVICE-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyActivated, verified.Status)
	assert.Equal(t, again.ActivatedAt, verified.ActivatedAt)

	// 其他设备：拒绝且不改写绑定
	_, err = svc.Activate(ctx, testCode, "DEVICE-002", "198.51.100.1")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, again.ActivatedAt, conflict.ActivatedAt)

	stillBound, err := svc.VerifyOnly(ctx, testCode, "DEVICE-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAlreadyActivated, stillBound.Status)
}

func TestActivate_UnknownCode(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemorySnapshotStore(), testCode)

	_, err := svc.Activate(context.Background(), "HORSE-2026-XXXX-XXXX", "DEVICE-001", "")
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}

func TestActivate_EmptyDeviceID(t *testing.T) {
	store := infrastructure.NewMemorySnapshotStore()
	svc := newTestService(t, store, testCode)

	result, err := svc.Activate(context.Background(), testCode, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActivated, result.Status)

	snapshot, err := store.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown", snapshot.UsedCodes[testCode].DeviceID)
}

func TestActivate_SaveFailure(t *testing.T) {
	inner := infrastructure.NewMemorySnapshotStore()
	newTestService(t, inner, testCode) // 预置一个可激活的码

	svc := NewActivationService(&failingStore{inner: inner}, infrastructure.NewKeyedMutexLocker(),
		domain.NewGenerator("HORSE", "2026"), otel.Tracer("test"))

	_, err := svc.Activate(context.Background(), testCode, "DEVICE-001", "")
	assert.ErrorIs(t, err, domain.ErrSaveFailed)

	// 失败的激活不能留下任何痕迹
	snapshot, err := inner.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.UsedCodes)
}

func TestIssueCode(t *testing.T) {
	store := infrastructure.NewMemorySnapshotStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	code, err := svc.IssueCode(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^HORSE-2026-`, code)

	// 新签发的码立即可验证
	result, err := svc.VerifyOnly(ctx, code, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValid, result.Status)

	snapshot, err := store.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Codes[code].Index)
}

func TestSeedCodes_Idempotent(t *testing.T) {
	store := infrastructure.NewMemorySnapshotStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	require.NoError(t, svc.SeedCodes(ctx, []string{testCode, testCode, "horse-2026-aaaa-bbbb"}))
	require.NoError(t, svc.SeedCodes(ctx, []string{testCode}))

	snapshot, err := store.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Codes, 2)
	assert.Contains(t, snapshot.Codes, "HORSE-2026-AAAA-BBBB")
}

func TestConcurrentActivation_SingleWinner(t *testing.T) {
	svc := newTestService(t, infrastructure.NewMemorySnapshotStore(), testCode)
	ctx := context.Background()

	type outcome struct {
		status domain.Status
		err    error
	}
	results := make(chan outcome, 2)
	for _, device := range []string{"DEVICE-001", "DEVICE-002"} {
		go func(device string) {
			result, err := svc.Activate(ctx, testCode, device, "")
			if err != nil {
				results <- outcome{err: err}
				return
			}
			results <- outcome{status: result.Status}
		}(device)
	}

	var activated, conflicted int
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				var conflict *domain.ConflictError
				require.ErrorAs(t, r.err, &conflict)
				conflicted++
			} else {
				assert.Equal(t, domain.StatusActivated, r.status)
				activated++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("activation did not finish")
		}
	}

	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, conflicted)
}
