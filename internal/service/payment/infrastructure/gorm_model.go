// payment-service/internal/infrastructure/gorm_model.go
package infrastructure

import "time"

// OrderModel 是订单历史在 MySQL 中的行结构。
// order_id 上的唯一索引是回调重试去重的最后一道防线。
type OrderModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	OrderID        string    `gorm:"column:order_id;size:64;uniqueIndex"`
	Price          string    `gorm:"column:price;size:32"`
	TypeLabel      string    `gorm:"column:type_label;size:16"`
	ActivationCode string    `gorm:"column:activation_code;size:32"`
	CustomerName   string    `gorm:"column:customer_name;size:64"`
	CustomerPhone  string    `gorm:"column:customer_phone;size:32"`
	PaidAt         time.Time `gorm:"column:paid_at"`
	Status         string    `gorm:"column:status;size:16"`
	CreatedAt      time.Time
}

// TableName 指定表名。
func (OrderModel) TableName() string {
	return "payment_orders"
}
