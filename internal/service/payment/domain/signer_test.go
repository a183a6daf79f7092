package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigner_SignOrder(t *testing.T) {
	signer := NewSigner("test-secret")

	sign := signer.SignOrder("10001", "ORD-20260901-001", "9.90", "https://pay.example.com/callback")
	assert.Equal(t, "c096ca2ffea324568f92f76759e241bc", sign)
}

func TestSigner_SignCallback(t *testing.T) {
	signer := NewSigner("test-secret")

	sign := signer.SignCallback("ORD-20260901-001", "9.90", "2")
	assert.Equal(t, "dd312443e55f6dd45c4dddf3875ad717", sign)

	// 支付类型参与签名
	assert.Equal(t, "fc0f842a812b73ecaa0e1f83eb64b498", signer.SignCallback("ORD-20260901-001", "9.90", "1"))

	// 金额按原文拼接，"9.90" 和 "9.9" 是两个不同的签名
	assert.NotEqual(t, sign, signer.SignCallback("ORD-20260901-001", "9.9", "2"))
}

func TestSigner_VerifyCallback(t *testing.T) {
	signer := NewSigner("test-secret")
	sign := signer.SignCallback("ORD-1", "1.00", "1")

	assert.True(t, signer.VerifyCallback(sign, "ORD-1", "1.00", "1"))
	assert.False(t, signer.VerifyCallback(sign, "ORD-1", "2.00", "1"))
	assert.False(t, signer.VerifyCallback("forged", "ORD-1", "1.00", "1"))

	// 不同密钥产生的签名不能通过校验
	other := NewSigner("other-secret").SignCallback("ORD-1", "1.00", "1")
	assert.False(t, signer.VerifyCallback(other, "ORD-1", "1.00", "1"))
}

func TestNewPaymentOrder(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		order, err := NewPaymentOrder("ORD-1", "9.90", 2)
		assert.NoError(t, err)
		assert.Equal(t, "ORD-1", order.OrderID)
		assert.Equal(t, "9.90", order.Price)
		assert.Equal(t, PaymentTypeWechat, order.Type)
	})

	t.Run("missing order id", func(t *testing.T) {
		_, err := NewPaymentOrder("", "9.90", 1)
		assert.ErrorIs(t, err, ErrMissingOrderID)
	})

	t.Run("invalid price", func(t *testing.T) {
		for _, price := range []string{"", "abc", "0", "-1.00", "NaN", "Inf"} {
			_, err := NewPaymentOrder("ORD-1", price, 1)
			assert.ErrorIs(t, err, ErrInvalidPrice, "price=%q", price)
		}
	})

	t.Run("type defaults to alipay", func(t *testing.T) {
		order, err := NewPaymentOrder("ORD-1", "1.00", 0)
		assert.NoError(t, err)
		assert.Equal(t, PaymentTypeAlipay, order.Type)
	})
}
