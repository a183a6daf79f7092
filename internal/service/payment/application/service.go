// payment-service/internal/application/service.go
package application

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"codepay/internal/pkg/logger"
	"codepay/internal/service/payment/domain"
)

// MerchantConfig 是商户侧配置。ID 和 Secret 缺一不可。
type MerchantConfig struct {
	ID        string
	Secret    string
	NotifyURL string
	ReturnURL string
}

// PaymentService 实现下单与回调两个业务用例。
type PaymentService struct {
	merchant  MerchantConfig
	signer    *domain.Signer
	gateway   domain.PaymentGateway
	orders    domain.OrderRepository
	issuer    domain.CodeIssuer
	publisher domain.EventPublisher
	rules     domain.RuleEngine
	riskRules []string
	tracer    trace.Tracer
	now       func() time.Time
}

// NewPaymentService 创建支付服务实例。publisher、rules 允许为 nil（相应能力关闭）。
func NewPaymentService(
	merchant MerchantConfig,
	gateway domain.PaymentGateway,
	orders domain.OrderRepository,
	issuer domain.CodeIssuer,
	publisher domain.EventPublisher,
	rules domain.RuleEngine,
	riskRules []string,
	tracer trace.Tracer,
) *PaymentService {
	return &PaymentService{
		merchant:  merchant,
		signer:    domain.NewSigner(merchant.Secret),
		gateway:   gateway,
		orders:    orders,
		issuer:    issuer,
		publisher: publisher,
		rules:     rules,
		riskRules: riskRules,
		tracer:    tracer,
		now:       time.Now,
	}
}

// CreateOrder 构建签名后的下单请求并提交给码支付网关。
// 除了出站网络调用外没有任何副作用，订单在此阶段不落库。
func (s *PaymentService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateOrder")
	defer span.End()

	// 配置检查先于参数校验和一切网络调用
	if s.merchant.ID == "" || s.merchant.Secret == "" {
		return nil, domain.ErrMissingMerchantConfig
	}

	order, err := domain.NewPaymentOrder(req.OrderID, req.Price.String(), req.Type)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.String("order.price", order.Price),
		attribute.Int("order.type", int(order.Type)),
	)

	sign := s.signer.SignOrder(s.merchant.ID, order.OrderID, order.Price, s.merchant.NotifyURL)

	gwReq := &domain.GatewayRequest{
		MerchantID: s.merchant.ID,
		PayID:      order.OrderID,
		Price:      order.Price,
		NotifyURL:  s.merchant.NotifyURL,
		ReturnURL:  s.merchant.ReturnURL,
		Sign:       sign,
		Param:      "",
		Type:       strconv.Itoa(int(order.Type)),
	}

	resp, err := s.gateway.SubmitOrder(ctx, gwReq)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "submit order to payment gateway")
	}

	if resp.Code != 1 {
		gwErr := &domain.GatewayError{Code: resp.Code, Msg: resp.Msg}
		span.RecordError(gwErr)
		return nil, gwErr
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.OrderID).
		Str("price", order.Price).
		Msg("payment order created")

	return &CreateOrderResponse{
		OrderID:    order.OrderID,
		PaymentURL: resp.URL,
		QrcodeURL:  resp.Qrcode,
	}, nil
}

// HandleCallback 处理码支付的异步通知。
// 验签 → 支付状态 → 风控 → 幂等落库并签发激活码。
// 落库失败时整个回调报告失败，让网关重试；按订单号去重保证重试安全。
func (s *PaymentService) HandleCallback(ctx context.Context, req *CallbackRequest) (*CallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.HandleCallback")
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", req.PayID),
		attribute.String("callback.status", req.Status.String()),
	)

	log := logger.Ctx(ctx)

	// 1. 验签。失败时绝不能继续签发激活码或写入任何数据。
	if !s.signer.VerifyCallback(req.Sign, req.PayID, req.Price.String(), req.Type.String()) {
		span.RecordError(domain.ErrSignatureMismatch)
		log.Warn().Str("order_id", req.PayID).Msg("callback signature mismatch")
		return nil, domain.ErrSignatureMismatch
	}

	// 2. 支付状态。"1" 表示已支付；其他状态是一次无操作的正常结果。
	if req.Status != "1" {
		log.Info().Str("order_id", req.PayID).Str("status", req.Status.String()).
			Msg("payment not completed yet, nothing to do")
		return &CallbackResult{Completed: false, OrderID: req.PayID}, nil
	}

	// 3. 风控规则。任一规则不通过即拒绝，不签发激活码。
	if err := s.evaluateRiskRules(req); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 4. 幂等：同一订单号的重试直接返回当初签发的激活码。
	if existing, err := s.orders.FindByOrderID(ctx, req.PayID); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "lookup order history")
	} else if existing != nil {
		log.Info().Str("order_id", req.PayID).Msg("duplicate callback, returning existing activation code")
		return &CallbackResult{Completed: true, OrderID: existing.OrderID, ActivationCode: existing.ActivationCode}, nil
	}

	// 5. 铸造激活码并落库。落库成功之前回调不算完成。
	code, err := s.issuer.IssueCode(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "issue activation code")
	}

	payType, _ := strconv.Atoi(req.Type.String())
	record := &domain.OrderRecord{
		OrderID:        req.PayID,
		Price:          req.Price.String(),
		TypeLabel:      domain.PaymentType(payType).Label(),
		ActivationCode: code,
		CustomerName:   defaultString(req.CustomerName, "未知"),
		CustomerPhone:  defaultString(req.CustomerPhone, "未知"),
		PaidAt:         s.now(),
		Status:         "paid",
	}
	if err := s.orders.AppendIfAbsent(ctx, record); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "persist order record")
	}

	// 6. 发布事件。推送通知失败不影响回调成功。
	if s.publisher != nil {
		if err := s.publisher.PublishPaymentSucceeded(ctx, domain.NewPaymentSucceeded(record)); err != nil {
			log.Warn().Err(err).Str("order_id", req.PayID).Msg("failed to publish payment event")
		}
	}

	log.Info().Str("order_id", req.PayID).Str("activation_code", code).Msg("payment confirmed, activation code issued")

	return &CallbackResult{Completed: true, OrderID: req.PayID, ActivationCode: code}, nil
}

func (s *PaymentService) evaluateRiskRules(req *CallbackRequest) error {
	if s.rules == nil || len(s.riskRules) == 0 {
		return nil
	}

	price, err := strconv.ParseFloat(req.Price.String(), 64)
	if err != nil {
		return errors.Wrap(domain.ErrRiskRejected, "callback price is not a number")
	}
	payType, _ := strconv.Atoi(req.Type.String())

	fact := domain.CallbackFact{OrderID: req.PayID, Price: price, Type: payType}
	for _, rule := range s.riskRules {
		ok, err := s.rules.Evaluate(rule, fact)
		if err != nil {
			return errors.Wrapf(err, "evaluate risk rule %q", rule)
		}
		if !ok {
			return errors.Wrapf(domain.ErrRiskRejected, "rule %q", rule)
		}
	}
	return nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
