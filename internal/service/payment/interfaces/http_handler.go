// payment-service/internal/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"codepay/internal/pkg/logger"
	"codepay/internal/service/payment/application"
	"codepay/internal/service/payment/domain"
)

var (
	paymentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codepay_payments_created_total",
		Help: "Payment order creation attempts by result.",
	}, []string{"result"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codepay_callbacks_total",
		Help: "Payment gateway callbacks by result.",
	}, []string{"result"})
)

// PaymentHandler 封装了 payment 服务的 HTTP 处理器
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler 创建一个新的 HTTP 处理器实例
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/create_payment", h.withRequestContext(h.handleCreatePayment))
	mux.HandleFunc("/payment_callback", h.withRequestContext(h.handlePaymentCallback))
}

// withRequestContext 提取追踪上下文并注入带 trace_id 的请求级 Logger。
// 同时处理 CORS：前端页面直接调用这两个接口。
func (h *PaymentHandler) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCorsHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
				"success": false,
				"error":   "只接受 POST 请求",
			})
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = logger.WithTraceID(ctx)
		next(w, r.WithContext(ctx))
	}
}

func (h *PaymentHandler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "请求体不是合法的 JSON",
		})
		return
	}

	resp, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		paymentsCreatedTotal.WithLabelValues("error").Inc()
		h.writeCreateError(w, r, err)
		return
	}

	paymentsCreatedTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"order_id":    resp.OrderID,
		"payment_url": resp.PaymentURL,
		"qrcode_url":  resp.QrcodeURL,
		"message":     "支付请求成功",
	})
}

// writeCreateError 根据错误类型返回不同的 HTTP 状态码
func (h *PaymentHandler) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrMissingMerchantConfig):
		// 配置错误是服务端问题，不泄露细节
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "服务器配置错误：缺少商户信息",
		})
	case errors.Is(err, domain.ErrMissingOrderID):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "缺少必要参数：order_id",
		})
	case errors.Is(err, domain.ErrInvalidPrice):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "缺少必要参数或价格无效：price",
		})
	case errors.As(err, &gwErr):
		// 网关拒绝下单，把原始 code 一并透出，便于排查
		msg := gwErr.Msg
		if msg == "" {
			msg = "码支付 API 返回错误"
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":  false,
			"error":    msg,
			"mzf_code": gwErr.Code,
		})
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("create payment failed")
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   "支付网关暂时不可用，请稍后重试",
		})
	}
}

func (h *PaymentHandler) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	req, err := parseCallbackRequest(r)
	if err != nil {
		callbacksTotal.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "无法解析回调数据",
		})
		return
	}

	result, err := h.service.HandleCallback(r.Context(), req)
	if err != nil {
		h.writeCallbackError(w, r, err)
		return
	}

	if !result.Completed {
		// 支付未完成不是错误：必须返回 200，否则网关会一直重试这条通知
		callbacksTotal.WithLabelValues("not_completed").Inc()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "支付未完成",
		})
		return
	}

	// 网关依赖这个响应形状来判定回调投递成功
	callbacksTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"order_id":        result.OrderID,
		"activation_code": result.ActivationCode,
		"message":         "支付验证成功，激活码已生成",
	})
}

func (h *PaymentHandler) writeCallbackError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSignatureMismatch):
		// 与"支付未完成"必须可区分：验签失败返回 403，不返回任何激活码
		callbacksTotal.WithLabelValues("bad_signature").Inc()
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"error":   "签名验证失败",
		})
	case errors.Is(err, domain.ErrRiskRejected):
		callbacksTotal.WithLabelValues("risk_rejected").Inc()
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"error":   "回调被风控规则拒绝",
		})
	default:
		// 落库或签发失败：返回非 200，让网关的重试机制重新投递
		callbacksTotal.WithLabelValues("error").Inc()
		logger.Ctx(r.Context()).Error().Err(err).Msg("payment callback failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "服务器错误",
		})
	}
}

// parseCallbackRequest 同时接受 form 和 JSON 两种回调编码。
// 码支付以 form 投递；本地联调脚本习惯发 JSON。
func parseCallbackRequest(r *http.Request) (*application.CallbackRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req application.CallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &application.CallbackRequest{
		PayID:         r.PostFormValue("pay_id"),
		Price:         application.FlexString(r.PostFormValue("price")),
		Type:          application.FlexString(r.PostFormValue("type")),
		Status:        application.FlexString(r.PostFormValue("status")),
		Sign:          r.PostFormValue("sign"),
		CustomerName:  r.PostFormValue("customer_name"),
		CustomerPhone: r.PostFormValue("customer_phone"),
	}, nil
}

func setCorsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
