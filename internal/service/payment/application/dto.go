// payment-service/internal/application/dto.go
package application

import (
	"bytes"
	"encoding/json"
)

// FlexString 同时接受 JSON 字符串和数字。
// 码支付的 status/type/price 两种形态都出现过，统一按原文保留为字符串，
// 这样签名计算不会因为数值格式化而偏离原文。
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// CreateOrderRequest 是 /create_payment 的业务入参。
type CreateOrderRequest struct {
	OrderID string     `json:"order_id"`
	Price   FlexString `json:"price"`
	Type    int        `json:"type"`
}

// CreateOrderResponse 成功时返回支付页面链接（可能带二维码链接）。
type CreateOrderResponse struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	QrcodeURL  string `json:"qrcode_url"`
}

// CallbackRequest 是码支付异步通知的业务入参。
// price/type/status 保留网关发来的原始字符串：签名要对原文计算。
type CallbackRequest struct {
	PayID         string     `json:"pay_id"`
	Price         FlexString `json:"price"`
	Type          FlexString `json:"type"`
	Status        FlexString `json:"status"`
	Sign          string     `json:"sign"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
}

// CallbackResult 是回调处理的业务结果。
// Completed 为 false 表示签名有效但支付尚未完成：传输层仍需返回 200，
// 否则网关会不断重试一条永远不会成功的通知。
type CallbackResult struct {
	Completed      bool
	OrderID        string
	ActivationCode string
}
