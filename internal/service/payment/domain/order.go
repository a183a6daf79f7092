// payment-service/internal/domain/order.go
package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// PaymentType 是码支付的支付渠道枚举。
type PaymentType int

const (
	PaymentTypeAlipay PaymentType = 1 // 支付宝
	PaymentTypeWechat PaymentType = 2 // 微信
)

// Label 返回支付渠道的展示名，用于订单记录。
func (t PaymentType) Label() string {
	switch t {
	case PaymentTypeWechat:
		return "微信"
	default:
		return "支付宝"
	}
}

// PaymentOrder 是一次支付请求。提交后不可变。
// Price 保留调用方传入的原始字符串：签名必须对原文计算，
// 转成 float 再格式化回来可能改变表示（如 "10.0" 变 "10"）。
type PaymentOrder struct {
	OrderID string
	Price   string
	Type    PaymentType
}

// NewPaymentOrder 校验输入并构造订单。
// orderID 不能为空；price 必须能解析为正的有限数；type 缺省为支付宝。
func NewPaymentOrder(orderID, price string, payType int) (*PaymentOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || parsed <= 0 || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return nil, ErrInvalidPrice
	}

	t := PaymentType(payType)
	if payType == 0 {
		t = PaymentTypeAlipay
	}

	return &PaymentOrder{
		OrderID: orderID,
		Price:   strings.TrimSpace(price),
		Type:    t,
	}, nil
}

// OrderRecord 是一条成功支付的订单历史记录，按订单号幂等追加。
type OrderRecord struct {
	OrderID        string
	Price          string
	TypeLabel      string
	ActivationCode string
	CustomerName   string
	CustomerPhone  string
	PaidAt         time.Time
	Status         string // 恒为 "paid"
}
