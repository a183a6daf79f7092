// payment-service/internal/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sync"

	"codepay/internal/service/payment/domain"
)

// MemoryOrderRepository 是 OrderRepository 的进程内实现。
// 只用于本地开发和测试，重启后数据丢失。
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.OrderRecord
}

// NewMemoryOrderRepository 创建一个空的内存仓储。
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.OrderRecord)}
}

func (r *MemoryOrderRepository) AppendIfAbsent(_ context.Context, record *domain.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[record.OrderID]; exists {
		return nil
	}
	copied := *record
	r.orders[record.OrderID] = &copied
	return nil
}

func (r *MemoryOrderRepository) FindByOrderID(_ context.Context, orderID string) (*domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}
