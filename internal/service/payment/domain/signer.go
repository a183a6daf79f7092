// payment-service/internal/domain/signer.go
package domain

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Signer 负责计算和校验与码支付网关之间的 MD5 签名。
// 这是一个对外固定的协议：拼接顺序由网关定义，双方必须逐字一致，
// 任何偏差都会导致所有校验静默失败。不要调整字段顺序。
type Signer struct {
	secret string
}

// NewSigner 创建一个持有商户密钥的签名器。
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// SignOrder 计算下单请求的签名。
// 算法：MD5(商户ID + 订单号 + 金额 + 通知URL + 密钥)，hex 小写。
func (s *Signer) SignOrder(merchantID, orderID, price, notifyURL string) string {
	return s.digest(merchantID, orderID, price, notifyURL)
}

// SignCallback 计算回调通知的签名。
// 算法：MD5(订单号 + 金额 + 支付类型 + 密钥)。
// 回调报文没有商户ID和通知URL字段，所以拼接顺序与下单不同。
func (s *Signer) SignCallback(payID, price, payType string) string {
	return s.digest(payID, price, payType)
}

// VerifyCallback 校验回调签名。使用常数时间比较，避免时间侧信道。
func (s *Signer) VerifyCallback(candidate, payID, price, payType string) bool {
	expected := s.SignCallback(payID, price, payType)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}

func (s *Signer) digest(fields ...string) string {
	sum := md5.Sum([]byte(strings.Join(fields, "") + s.secret))
	return hex.EncodeToString(sum[:])
}
