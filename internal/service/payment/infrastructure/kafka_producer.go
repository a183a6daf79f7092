// payment-service/internal/infrastructure/kafka_producer.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"codepay/internal/pkg/logger"
	"codepay/internal/pkg/mq"
	"codepay/internal/service/payment/domain"
)

// PaymentEventProducerAdapter 是 domain.EventPublisher 的 Kafka 实现。
type PaymentEventProducerAdapter struct {
	writer *kafka.Writer
}

func NewPaymentEventProducerAdapter(writer *kafka.Writer) *PaymentEventProducerAdapter {
	return &PaymentEventProducerAdapter{writer: writer}
}

// PublishPaymentSucceeded 把支付成功事件写入通知 Topic，以订单号为 Key。
func (p *PaymentEventProducerAdapter) PublishPaymentSucceeded(ctx context.Context, event *domain.PaymentSucceeded) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to marshal payment event")
		return err
	}

	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), eventBytes); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to produce payment event to kafka")
		return err
	}
	return nil
}
