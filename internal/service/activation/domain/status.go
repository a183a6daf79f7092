// activation-service/internal/domain/status.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status 是对外返回的机器可读状态码，与前端约定保持一致。
type Status string

const (
	StatusValid            Status = "VALID"             // 已签发未使用
	StatusActivated        Status = "ACTIVATED"         // 本次激活成功
	StatusAlreadyActivated Status = "ALREADY_ACTIVATED" // 同设备重复激活
	StatusAlreadyUsed      Status = "ALREADY_USED"      // 已被其他设备使用
	StatusInvalidCode      Status = "INVALID_CODE"
	StatusSaveError        Status = "SAVE_ERROR"
	StatusServerError      Status = "SERVER_ERROR"
)

var (
	// ErrCodeNotFound 激活码不存在。
	ErrCodeNotFound = errors.New("activation code not found")

	// ErrSaveFailed 校验通过但持久化失败，调用方可以重试。
	ErrSaveFailed = errors.New("failed to persist activation store")
)

// ConflictError 激活码已被另一台设备使用。
// 带上原始激活时间，便于客服排查。
type ConflictError struct {
	ActivatedAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("activation code already used at %s", e.ActivatedAt.Format(time.RFC3339))
}
