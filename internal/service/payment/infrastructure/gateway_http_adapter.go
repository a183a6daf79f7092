// payment-service/internal/infrastructure/gateway_http_adapter.go
package infrastructure

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"codepay/internal/pkg/httpclient"
	"codepay/internal/service/payment/domain"
)

// GatewayHTTPAdapter 是 domain.PaymentGateway 的 HTTP 实现，
// 对接码支付的 form-encoded 下单接口。
type GatewayHTTPAdapter struct {
	client   *httpclient.Client
	endpoint string
	timeout  time.Duration
}

// NewGatewayHTTPAdapter 创建网关适配器。timeout 限定单次下单调用的上限。
func NewGatewayHTTPAdapter(client *httpclient.Client, endpoint string, timeout time.Duration) *GatewayHTTPAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayHTTPAdapter{
		client:   client,
		endpoint: endpoint,
		timeout:  timeout,
	}
}

// SubmitOrder 提交下单请求并解析网关的 JSON 应答。
// 网关不可达或应答不是合法 JSON 都视为上游错误，由调用方决定是否重试。
func (a *GatewayHTTPAdapter) SubmitOrder(ctx context.Context, req *domain.GatewayRequest) (*domain.GatewayResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("id", req.MerchantID)
	params.Set("pay_id", req.PayID)
	params.Set("price", req.Price)
	params.Set("notify_url", req.NotifyURL)
	params.Set("return_url", req.ReturnURL)
	params.Set("sign", req.Sign)
	params.Set("param", req.Param)
	params.Set("type", req.Type)

	body, err := a.client.PostForm(ctx, a.endpoint, params)
	if err != nil {
		return nil, errors.Wrap(err, "call payment gateway")
	}

	var resp domain.GatewayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "payment gateway returned non-JSON response")
	}
	return &resp, nil
}
