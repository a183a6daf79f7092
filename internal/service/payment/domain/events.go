// payment-service/internal/domain/events.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSucceeded 在回调验证通过并完成订单落库后发布，
// 供 push-gateway 等下游把"有新订单"推送给运营端。
type PaymentSucceeded struct {
	EventID        string    `json:"event_id"`
	OrderID        string    `json:"order_id"`
	Price          string    `json:"price"`
	TypeLabel      string    `json:"type"`
	ActivationCode string    `json:"activation_code"`
	PaidAt         time.Time `json:"paid_at"`
}

// NewPaymentSucceeded 由订单记录构造事件。
func NewPaymentSucceeded(record *OrderRecord) *PaymentSucceeded {
	return &PaymentSucceeded{
		EventID:        uuid.New().String(),
		OrderID:        record.OrderID,
		Price:          record.Price,
		TypeLabel:      record.TypeLabel,
		ActivationCode: record.ActivationCode,
		PaidAt:         record.PaidAt,
	}
}
