// activation-service/internal/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"codepay/internal/pkg/logger"
	"codepay/internal/service/activation/domain"
)

// 签发时防撞库的重试上限。字符集 32^8 的空间下碰撞本身就极罕见。
const maxIssueAttempts = 10

// VerifyResult 是验证/激活操作的业务结果。
type VerifyResult struct {
	Status      domain.Status
	ActivatedAt time.Time // 已激活时为原始激活时间，否则为零值
}

// ActivationService 实现激活码的验证、激活与签发。
type ActivationService struct {
	store  domain.SnapshotStore
	locker domain.Locker
	gen    *domain.Generator
	tracer trace.Tracer
	now    func() time.Time
}

// NewActivationService 创建激活服务实例。
func NewActivationService(store domain.SnapshotStore, locker domain.Locker, gen *domain.Generator, tracer trace.Tracer) *ActivationService {
	return &ActivationService{
		store:  store,
		locker: locker,
		gen:    gen,
		tracer: tracer,
		now:    time.Now,
	}
}

// VerifyOnly 检查激活码状态，不做任何写入。
// deviceID 可选：提供时会和已有的设备绑定做比对。
func (s *ActivationService) VerifyOnly(ctx context.Context, code, deviceID string) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.VerifyOnly")
	defer span.End()

	normalized := domain.Normalize(code)
	span.SetAttributes(attribute.String("activation.code", normalized))

	snapshot, err := s.store.GetSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "load activation store")
	}

	if _, issued := snapshot.Codes[normalized]; !issued {
		return nil, domain.ErrCodeNotFound
	}

	if usage, used := snapshot.UsedCodes[normalized]; used {
		if deviceID != "" && usage.DeviceID != deviceID {
			return nil, &domain.ConflictError{ActivatedAt: usage.ActivatedAt}
		}
		return &VerifyResult{Status: domain.StatusAlreadyActivated, ActivatedAt: usage.ActivatedAt}, nil
	}

	return &VerifyResult{Status: domain.StatusValid}, nil
}

// Activate 激活一个码并绑定设备。
// 整个读-改-写在 code 粒度的锁内执行：两个并发激活同一个未用码的请求
// 必须串行，否则后写者会覆盖先写者的设备绑定。
//
// 同一设备重复激活幂等成功（支持 App 重装），返回原始激活时间；
// 其他设备的激活请求被拒绝，且不改写既有使用记录。
func (s *ActivationService) Activate(ctx context.Context, code, deviceID, clientIP string) (*VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Activate")
	defer span.End()

	normalized := domain.Normalize(code)
	span.SetAttributes(
		attribute.String("activation.code", normalized),
		attribute.String("activation.device_id", deviceID),
	)

	release, err := s.locker.Acquire(ctx, normalized)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "acquire activation lock")
	}
	defer release()

	snapshot, err := s.store.GetSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "load activation store")
	}

	if _, issued := snapshot.Codes[normalized]; !issued {
		return nil, domain.ErrCodeNotFound
	}

	if usage, used := snapshot.UsedCodes[normalized]; used {
		if deviceID != "" && usage.DeviceID == deviceID {
			return &VerifyResult{Status: domain.StatusAlreadyActivated, ActivatedAt: usage.ActivatedAt}, nil
		}
		return nil, &domain.ConflictError{ActivatedAt: usage.ActivatedAt}
	}

	if deviceID == "" {
		deviceID = "unknown"
	}
	snapshot.UsedCodes[normalized] = domain.UsageRecord{
		ActivatedAt: s.now(),
		DeviceID:    deviceID,
		IP:          clientIP,
	}

	if err := s.store.PutSnapshot(ctx, snapshot); err != nil {
		span.RecordError(err)
		// 持久化失败即操作未完成，调用方看到的状态不变
		return nil, errors.Wrap(domain.ErrSaveFailed, err.Error())
	}

	logger.Ctx(ctx).Info().
		Str("code", normalized).
		Str("device_id", deviceID).
		Msg("activation code activated")

	return &VerifyResult{Status: domain.StatusActivated}, nil
}

// IssueCode 铸造一个新激活码并登记到存储。
// 生成后先对照存量快照查重，避免签发一个早已存在的码。
func (s *ActivationService) IssueCode(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "service.IssueCode")
	defer span.End()

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code := s.gen.Generate()

		release, err := s.locker.Acquire(ctx, code)
		if err != nil {
			span.RecordError(err)
			return "", errors.Wrap(err, "acquire issue lock")
		}

		ok, err := s.tryRegister(ctx, code)
		release()
		if err != nil {
			span.RecordError(err)
			return "", err
		}
		if ok {
			span.SetAttributes(attribute.String("activation.code", code))
			return code, nil
		}
		// 碰撞：换一个码重试
	}
	return "", errors.New("could not generate a unique activation code")
}

func (s *ActivationService) tryRegister(ctx context.Context, code string) (bool, error) {
	snapshot, err := s.store.GetSnapshot(ctx)
	if err != nil {
		return false, errors.Wrap(err, "load activation store")
	}
	if _, exists := snapshot.Codes[code]; exists {
		return false, nil
	}
	snapshot.Codes[code] = domain.IssuanceRecord{
		CreatedAt: s.now(),
		Index:     len(snapshot.Codes) + 1,
	}
	if err := s.store.PutSnapshot(ctx, snapshot); err != nil {
		return false, errors.Wrap(domain.ErrSaveFailed, err.Error())
	}
	return true, nil
}

// SeedCodes 批量登记离线生成的激活码（codegen 工具使用）。
func (s *ActivationService) SeedCodes(ctx context.Context, codes []string) error {
	snapshot, err := s.store.GetSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "load activation store")
	}
	for _, code := range codes {
		normalized := domain.Normalize(code)
		if _, exists := snapshot.Codes[normalized]; exists {
			continue
		}
		snapshot.Codes[normalized] = domain.IssuanceRecord{
			CreatedAt: s.now(),
			Index:     len(snapshot.Codes) + 1,
		}
	}
	if err := s.store.PutSnapshot(ctx, snapshot); err != nil {
		return errors.Wrap(domain.ErrSaveFailed, err.Error())
	}
	return nil
}
