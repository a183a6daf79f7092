// payment-service/internal/infrastructure/mapper.go
package infrastructure

import "codepay/internal/service/payment/domain"

// ToOrderModel 将领域记录转换为数据库模型。
func ToOrderModel(record *domain.OrderRecord) *OrderModel {
	return &OrderModel{
		OrderID:        record.OrderID,
		Price:          record.Price,
		TypeLabel:      record.TypeLabel,
		ActivationCode: record.ActivationCode,
		CustomerName:   record.CustomerName,
		CustomerPhone:  record.CustomerPhone,
		PaidAt:         record.PaidAt,
		Status:         record.Status,
	}
}

// ToDomainOrderRecord 将数据库模型转换回领域记录。
func ToDomainOrderRecord(model *OrderModel) *domain.OrderRecord {
	return &domain.OrderRecord{
		OrderID:        model.OrderID,
		Price:          model.Price,
		TypeLabel:      model.TypeLabel,
		ActivationCode: model.ActivationCode,
		CustomerName:   model.CustomerName,
		CustomerPhone:  model.CustomerPhone,
		PaidAt:         model.PaidAt,
		Status:         model.Status,
	}
}
