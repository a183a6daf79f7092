package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"codepay/internal/service/payment/domain"
)

// ---- 测试替身 ----

type fakeGateway struct {
	resp    *domain.GatewayResponse
	err     error
	lastReq *domain.GatewayRequest
	called  int
}

func (f *fakeGateway) SubmitOrder(_ context.Context, req *domain.GatewayRequest) (*domain.GatewayResponse, error) {
	f.called++
	f.lastReq = req
	return f.resp, f.err
}

type fakeRepo struct {
	records   map[string]*domain.OrderRecord
	appendErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*domain.OrderRecord)}
}

func (f *fakeRepo) AppendIfAbsent(_ context.Context, record *domain.OrderRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if _, ok := f.records[record.OrderID]; !ok {
		f.records[record.OrderID] = record
	}
	return nil
}

func (f *fakeRepo) FindByOrderID(_ context.Context, orderID string) (*domain.OrderRecord, error) {
	return f.records[orderID], nil
}

type fakeIssuer struct {
	code   string
	err    error
	issued int
}

func (f *fakeIssuer) IssueCode(context.Context) (string, error) {
	f.issued++
	return f.code, f.err
}

type fakePublisher struct {
	events []*domain.PaymentSucceeded
	err    error
}

func (f *fakePublisher) PublishPaymentSucceeded(_ context.Context, event *domain.PaymentSucceeded) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeRules struct {
	allow bool
}

func (f *fakeRules) Evaluate(string, domain.CallbackFact) (bool, error) {
	return f.allow, nil
}

func testMerchant() MerchantConfig {
	return MerchantConfig{
		ID:        "10001",
		Secret:    "test-secret",
		NotifyURL: "https://pay.example.com/payment_callback",
		ReturnURL: "https://pay.example.com/done",
	}
}

func newTestService(merchant MerchantConfig, gw *fakeGateway, repo *fakeRepo, issuer *fakeIssuer, pub *fakePublisher, rules domain.RuleEngine, riskRules []string) *PaymentService {
	var publisher domain.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewPaymentService(merchant, gw, repo, issuer, publisher, rules, riskRules, otel.Tracer("test"))
}

func signedCallback(merchant MerchantConfig, payID, price, payType, status string) *CallbackRequest {
	sign := domain.NewSigner(merchant.Secret).SignCallback(payID, price, payType)
	return &CallbackRequest{
		PayID:  payID,
		Price:  FlexString(price),
		Type:   FlexString(payType),
		Status: FlexString(status),
		Sign:   sign,
	}
}

// ---- CreateOrder ----

func TestCreateOrder_MissingMerchantConfig(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(MerchantConfig{}, gw, newFakeRepo(), &fakeIssuer{}, nil, nil, nil)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "ORD-1", Price: "1.00", Type: 1})

	assert.ErrorIs(t, err, domain.ErrMissingMerchantConfig)
	assert.Zero(t, gw.called, "misconfigured service must not reach the gateway")
}

func TestCreateOrder_ValidationBeforeGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(testMerchant(), gw, newFakeRepo(), &fakeIssuer{}, nil, nil, nil)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "", Price: "1.00"})
	assert.ErrorIs(t, err, domain.ErrMissingOrderID)

	_, err = svc.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "ORD-1", Price: "-5"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	assert.Zero(t, gw.called)
}

func TestCreateOrder_Success(t *testing.T) {
	gw := &fakeGateway{resp: &domain.GatewayResponse{Code: 1, URL: "https://mzf.example.com/pay/123", Qrcode: "https://mzf.example.com/qr/123"}}
	merchant := testMerchant()
	svc := newTestService(merchant, gw, newFakeRepo(), &fakeIssuer{}, nil, nil, nil)

	resp, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "ORD-1", Price: "9.90", Type: 2})

	require.NoError(t, err)
	assert.Equal(t, "ORD-1", resp.OrderID)
	assert.Equal(t, "https://mzf.example.com/pay/123", resp.PaymentURL)
	assert.Equal(t, "https://mzf.example.com/qr/123", resp.QrcodeURL)

	require.NotNil(t, gw.lastReq)
	assert.Equal(t, "10001", gw.lastReq.MerchantID)
	assert.Equal(t, "9.90", gw.lastReq.Price)
	assert.Equal(t, "2", gw.lastReq.Type)
	expected := domain.NewSigner(merchant.Secret).SignOrder("10001", "ORD-1", "9.90", merchant.NotifyURL)
	assert.Equal(t, expected, gw.lastReq.Sign)
}

func TestCreateOrder_GatewayError(t *testing.T) {
	gw := &fakeGateway{resp: &domain.GatewayResponse{Code: -1, Msg: "商户不存在"}}
	svc := newTestService(testMerchant(), gw, newFakeRepo(), &fakeIssuer{}, nil, nil, nil)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "ORD-1", Price: "1.00", Type: 1})

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, -1, gwErr.Code)
	assert.Equal(t, "商户不存在", gwErr.Msg)
}

// ---- HandleCallback ----

func TestHandleCallback_SignatureMismatch(t *testing.T) {
	issuer := &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}
	repo := newFakeRepo()
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, issuer, nil, nil, nil)

	req := signedCallback(testMerchant(), "ORD-1", "9.90", "1", "1")
	req.Sign = "0123456789abcdef0123456789abcdef"

	_, err := svc.HandleCallback(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	assert.Zero(t, issuer.issued, "forged callback must not issue a code")
	assert.Empty(t, repo.records)
}

func TestHandleCallback_NotCompleted(t *testing.T) {
	issuer := &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}
	repo := newFakeRepo()
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, issuer, nil, nil, nil)

	result, err := svc.HandleCallback(context.Background(), signedCallback(testMerchant(), "ORD-1", "9.90", "1", "0"))

	require.NoError(t, err)
	assert.False(t, result.Completed)
	assert.Zero(t, issuer.issued)
	assert.Empty(t, repo.records)
}

func TestHandleCallback_Success(t *testing.T) {
	issuer := &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, issuer, pub, nil, nil)

	result, err := svc.HandleCallback(context.Background(), signedCallback(testMerchant(), "ORD-1", "9.90", "2", "1"))

	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "HORSE-2026-AAAA-AAAA", result.ActivationCode)

	record := repo.records["ORD-1"]
	require.NotNil(t, record)
	assert.Equal(t, "9.90", record.Price)
	assert.Equal(t, "微信", record.TypeLabel)
	assert.Equal(t, "未知", record.CustomerName)
	assert.Equal(t, "paid", record.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "ORD-1", pub.events[0].OrderID)
	assert.Equal(t, "HORSE-2026-AAAA-AAAA", pub.events[0].ActivationCode)
}

func TestHandleCallback_DuplicateReturnsOriginalCode(t *testing.T) {
	issuer := &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}
	repo := newFakeRepo()
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, issuer, nil, nil, nil)

	req := signedCallback(testMerchant(), "ORD-1", "9.90", "1", "1")
	first, err := svc.HandleCallback(context.Background(), req)
	require.NoError(t, err)

	issuer.code = "HORSE-2026-BBBB-BBBB"
	second, err := svc.HandleCallback(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ActivationCode, second.ActivationCode)
	assert.Equal(t, 1, issuer.issued, "retry must not mint a second code")
	assert.Len(t, repo.records, 1)
}

func TestHandleCallback_PersistFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.appendErr = errors.New("db down")
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}, nil, nil, nil)

	_, err := svc.HandleCallback(context.Background(), signedCallback(testMerchant(), "ORD-1", "9.90", "1", "1"))

	assert.Error(t, err)
}

func TestHandleCallback_RiskRejected(t *testing.T) {
	issuer := &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}
	repo := newFakeRepo()
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, issuer, nil, &fakeRules{allow: false}, []string{"price >= 0.01"})

	_, err := svc.HandleCallback(context.Background(), signedCallback(testMerchant(), "ORD-1", "9.90", "1", "1"))

	assert.ErrorIs(t, err, domain.ErrRiskRejected)
	assert.Zero(t, issuer.issued)
	assert.Empty(t, repo.records)
}

func TestHandleCallback_PublishFailureDoesNotFailCallback(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	svc := newTestService(testMerchant(), &fakeGateway{}, repo, &fakeIssuer{code: "HORSE-2026-AAAA-AAAA"}, pub, nil, nil)

	result, err := svc.HandleCallback(context.Background(), signedCallback(testMerchant(), "ORD-1", "9.90", "1", "1"))

	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Len(t, repo.records, 1)
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var req CallbackRequest
	raw := `{"pay_id":"ORD-1","price":9.9,"type":"1","status":1,"sign":"abc"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, "9.9", req.Price.String())
	assert.Equal(t, "1", req.Type.String())
	assert.Equal(t, "1", req.Status.String())
}
