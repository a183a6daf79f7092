// payment-service/internal/domain/repository.go
package domain

import "context"

// OrderRepository 是订单历史的持久化端口。
type OrderRepository interface {
	// AppendIfAbsent 追加一条订单记录；同订单号的记录已存在时不做任何修改。
	AppendIfAbsent(ctx context.Context, record *OrderRecord) error
	// FindByOrderID 按订单号查找，不存在时返回 (nil, nil)。
	FindByOrderID(ctx context.Context, orderID string) (*OrderRecord, error)
}

// GatewayRequest 是发往码支付网关的下单报文（form 字段一一对应）。
type GatewayRequest struct {
	MerchantID string // id
	PayID      string // pay_id
	Price      string // price
	NotifyURL  string // notify_url
	ReturnURL  string // return_url
	Sign       string // sign
	Param      string // param，自定义参数，当前恒为空
	Type       string // type
}

// GatewayResponse 是网关下单接口的应答。
type GatewayResponse struct {
	Code   int    `json:"code"` // 1 表示成功
	URL    string `json:"url"`
	Qrcode string `json:"qrcode"`
	Msg    string `json:"msg"`
}

// PaymentGateway 是码支付网关的出站端口。
type PaymentGateway interface {
	SubmitOrder(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
}

// CodeIssuer 负责在支付成功后铸造一个新的激活码。
// 由 activation 服务实现，保证与存量激活码不冲突。
type CodeIssuer interface {
	IssueCode(ctx context.Context) (string, error)
}

// EventPublisher 发布支付成功事件（尽力而为，不阻塞回调成功路径）。
type EventPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, event *PaymentSucceeded) error
}

// CallbackFact 是风控规则评估的事实对象。
type CallbackFact struct {
	OrderID string  `json:"order_id"`
	Price   float64 `json:"price"`
	Type    int     `json:"type"`
}

// RuleEngine 是风控规则引擎端口。规则为真表示放行。
type RuleEngine interface {
	Evaluate(ruleDefinition string, fact CallbackFact) (bool, error)
}
