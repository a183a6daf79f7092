// payment-service/internal/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codepay/internal/service/payment/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// AppendIfAbsent 追加订单记录，按 order_id 去重。
// 依赖唯一索引 + ON CONFLICT DO NOTHING，对并发重试也是安全的。
func (r *GormOrderRepository) AppendIfAbsent(ctx context.Context, record *domain.OrderRecord) error {
	model := ToOrderModel(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// FindByOrderID 按订单号查找订单记录。
func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.OrderRecord, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ToDomainOrderRecord(&model), nil
}
