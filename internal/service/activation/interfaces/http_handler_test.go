package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"codepay/internal/service/activation/application"
	"codepay/internal/service/activation/domain"
	"codepay/internal/service/activation/infrastructure"
)

const seededCode = "HORSE-2026-TEST-CODE"

func newTestHandler(t *testing.T) *ActivationHandler {
	t.Helper()
	svc := application.NewActivationService(infrastructure.NewMemorySnapshotStore(),
		infrastructure.NewKeyedMutexLocker(), domain.NewGenerator("HORSE", "2026"), otel.Tracer("test"))
	require.NoError(t, svc.SeedCodes(context.Background(), []string{seededCode}))
	return NewActivationHandler(svc)
}

func postVerify(handler *ActivationHandler, payload string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestVerify_ValidCode(t *testing.T) {
	handler := newTestHandler(t)

	rec := postVerify(handler, `{"code":"`+seededCode+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "VALID", body["code"])
	assert.Equal(t, "激活码有效", body["message"])
}

func TestVerify_LowercaseInput(t *testing.T) {
	handler := newTestHandler(t)

	rec := postVerify(handler, `{"code":"`+strings.ToLower(seededCode)+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VALID", decodeBody(t, rec)["code"])
}

func TestVerify_InvalidCode(t *testing.T) {
	handler := newTestHandler(t)

	rec := postVerify(handler, `{"code":"HORSE-2026-XXXX-XXXX"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_CODE", body["code"])
	assert.Equal(t, "激活码无效", body["message"])
}

func TestVerify_MissingCode(t *testing.T) {
	handler := newTestHandler(t)

	rec := postVerify(handler, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "请提供激活码", decodeBody(t, rec)["message"])
}

func TestActivate_FullLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	// 首次激活
	rec := postVerify(handler, `{"code":"`+seededCode+`","action":"activate","deviceId":"DEVICE-001"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ACTIVATED", body["code"])
	assert.Equal(t, "激活成功！", body["message"])

	// 同一设备重复激活：幂等成功并带上首次激活时间
	rec = postVerify(handler, `{"code":"`+seededCode+`","action":"activate","deviceId":"DEVICE-001"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "ALREADY_ACTIVATED", body["code"])
	assert.NotEmpty(t, body["activatedAt"])

	// 其他设备被拒绝
	rec = postVerify(handler, `{"code":"`+seededCode+`","action":"activate","deviceId":"DEVICE-002"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "ALREADY_USED", body["code"])
	assert.Equal(t, "激活码已被使用", body["message"])
	assert.NotEmpty(t, body["usedAt"])
}

func TestVerify_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVerify_CorsPreflight(t *testing.T) {
	handler := newTestHandler(t)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodOptions, "/verify", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
