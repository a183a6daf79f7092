// payment-service/internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMerchantConfig 商户ID或密钥未配置。配置错误，非调用方问题。
	ErrMissingMerchantConfig = errors.New("merchant id or secret is not configured")

	// ErrMissingOrderID / ErrInvalidPrice 请求参数校验失败。
	ErrMissingOrderID = errors.New("order_id is required")
	ErrInvalidPrice   = errors.New("price must be a positive number")

	// ErrSignatureMismatch 回调签名校验失败，报文不可信。
	ErrSignatureMismatch = errors.New("callback signature mismatch")

	// ErrRiskRejected 回调被风控规则拒绝。
	ErrRiskRejected = errors.New("callback rejected by risk rules")
)

// GatewayError 表示码支付网关返回了业务失败（code != 1）。
type GatewayError struct {
	Code int
	Msg  string
}

func (e *GatewayError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("payment gateway rejected the order (code=%d)", e.Code)
	}
	return fmt.Sprintf("payment gateway rejected the order (code=%d): %s", e.Code, e.Msg)
}
