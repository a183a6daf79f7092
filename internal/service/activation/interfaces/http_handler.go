// activation-service/internal/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"codepay/internal/pkg/logger"
	"codepay/internal/service/activation/application"
	"codepay/internal/service/activation/domain"
)

var activationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "codepay_activations_total",
	Help: "Activation verify/activate requests by action and result code.",
}, []string{"action", "code"})

// ActivationHandler 封装了 activation 服务的 HTTP 处理器
type ActivationHandler struct {
	service *application.ActivationService
}

// NewActivationHandler 创建一个新的 HTTP 处理器实例
func NewActivationHandler(service *application.ActivationService) *ActivationHandler {
	return &ActivationHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ActivationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/verify", h.handleVerify)
}

type verifyRequest struct {
	Code     string `json:"code"`
	Action   string `json:"action"` // verify | activate
	DeviceID string `json:"deviceId"`
}

func (h *ActivationHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	setCorsHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"success": false,
			"message": "请使用 POST 请求",
		})
		return
	}

	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx = logger.WithTraceID(ctx)

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "请提供激活码",
		})
		return
	}

	action := req.Action
	if action != "activate" {
		action = "verify"
	}

	var result *application.VerifyResult
	var err error
	if action == "activate" {
		result, err = h.service.Activate(ctx, req.Code, req.DeviceID, clientIP(r))
	} else {
		result, err = h.service.VerifyOnly(ctx, req.Code, req.DeviceID)
	}

	if err != nil {
		h.writeVerifyError(w, ctx, action, err)
		return
	}

	activationsTotal.WithLabelValues(action, string(result.Status)).Inc()
	switch result.Status {
	case domain.StatusAlreadyActivated:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"message":     "激活码有效（已激活）",
			"code":        result.Status,
			"activatedAt": result.ActivatedAt.Format(time.RFC3339),
		})
	case domain.StatusActivated:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "激活成功！",
			"code":    result.Status,
		})
	default: // VALID
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "激活码有效",
			"code":    result.Status,
		})
	}
}

func (h *ActivationHandler) writeVerifyError(w http.ResponseWriter, ctx context.Context, action string, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		activationsTotal.WithLabelValues(action, string(domain.StatusInvalidCode)).Inc()
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "激活码无效",
			"code":    domain.StatusInvalidCode,
		})
	case errors.As(err, &conflict):
		activationsTotal.WithLabelValues(action, string(domain.StatusAlreadyUsed)).Inc()
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "激活码已被使用",
			"code":    domain.StatusAlreadyUsed,
			"usedAt":  conflict.ActivatedAt.Format(time.RFC3339),
		})
	case errors.Is(err, domain.ErrSaveFailed):
		activationsTotal.WithLabelValues(action, string(domain.StatusSaveError)).Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "激活失败，请重试",
			"code":    domain.StatusSaveError,
		})
	default:
		activationsTotal.WithLabelValues(action, string(domain.StatusServerError)).Inc()
		logger.Ctx(ctx).Error().Err(err).Msg("activation request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "服务器错误",
			"code":    domain.StatusServerError,
		})
	}
}

// clientIP 取客户端来源地址，优先使用反向代理透传的 Header。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
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
