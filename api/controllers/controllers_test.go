package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/parcelhub-backend/api/middleware"
	"github.com/angelmondragon/parcelhub-backend/internal/notifications"
	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/internal/payments"
	"github.com/angelmondragon/parcelhub-backend/internal/pricing"
	"github.com/angelmondragon/parcelhub-backend/internal/stats"
	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withCaller(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

type stubOrders struct {
	orders.Service
	created   orders.CreateOrderInput
	createdBy uuid.UUID
	listed    orders.ListParams
	getErr    error
}

func (s *stubOrders) Create(ctx context.Context, customerID uuid.UUID, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.created = input
	s.createdBy = customerID
	return &orders.OrderDTO{ID: uuid.New(), CustomerID: customerID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) List(ctx context.Context, actor orders.Actor, params orders.ListParams) (*orders.ListResult, error) {
	s.listed = params
	return &orders.ListResult{}, nil
}

func (s *stubOrders) Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &orders.OrderDTO{ID: id}, nil
}

func TestCreateOrderMapsBodyAndCaller(t *testing.T) {
	svc := &stubOrders{}
	customer := uuid.New()
	body := `{
		"service_type": "express",
		"payment_method": "cod",
		"sender_name": "  An  ",
		"sender_phone": "0901",
		"sender_address": "1 Le Loi",
		"receiver_name": "Binh",
		"receiver_phone": "0902",
		"receiver_address": "2 Tran Hung Dao",
		"weight": 1.5,
		"cod_amount": 200000,
		"items": [{"description": "book", "quantity": 2, "weight": 0.5}]
	}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), customer, enums.RoleCustomer)
	rec := httptest.NewRecorder()

	CreateOrder(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, customer, svc.createdBy)
	assert.Equal(t, "An", svc.created.SenderName)
	assert.Equal(t, enums.PaymentMethodCOD, svc.created.PaymentMethod)
	assert.Equal(t, int64(200000), svc.created.CODAmount)
	require.Len(t, svc.created.Items, 1)
	assert.Equal(t, 2, svc.created.Items[0].Quantity)
}

func TestCreateOrderRejectsMissingFields(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"service_type":"standard"}`)), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()

	CreateOrder(&stubOrders{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if env := decode(t, rec); env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %s", env.Error.Code)
	}
}

func TestCreateOrderRequiresCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	CreateOrder(&stubOrders{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestListOrdersParsesFilters(t *testing.T) {
	svc := &stubOrders{}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/orders?status=pending,processing&limit=10", nil), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()

	ListOrders(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}, svc.listed.Statuses)
	assert.Equal(t, 10, svc.listed.Pagination.Limit)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/orders?status=teleported", nil), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()

	ListOrders(&stubOrders{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	svc := &stubOrders{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), enums.RoleCustomer)
	req = withParams(req, "orderId", uuid.NewString())
	rec := httptest.NewRecorder()

	GetOrder(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestGetOrderRejectsBadID(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), enums.RoleCustomer)
	req = withParams(req, "orderId", "nope")
	rec := httptest.NewRecorder()

	GetOrder(&stubOrders{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type stubPayments struct {
	payments.Service
	webhook  payments.WebhookInput
	applyErr error
	checkout *payments.TransactionDTO
}

func (s *stubPayments) ApplyWebhook(ctx context.Context, input payments.WebhookInput) (*payments.WebhookResult, error) {
	s.webhook = input
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	return &payments.WebhookResult{Reference: input.Reference, TransactionStatus: enums.TransactionStatusSucceeded}, nil
}

func (s *stubPayments) Checkout(ctx context.Context, orderID uuid.UUID, reference string) (*payments.TransactionDTO, error) {
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment transaction not found")
	}
	return s.checkout, nil
}

func TestPaymentWebhookPassesPaidAmount(t *testing.T) {
	svc := &stubPayments{}
	orderID := uuid.NewString()
	body := `{"order_id":"` + orderID + `","reference":"PAY-1-ABCDEF","status":"success","paid_amount":35000,"signature":"abc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	PaymentWebhook(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.webhook.PaidAmount)
	assert.Equal(t, int64(35000), *svc.webhook.PaidAmount)
	assert.Equal(t, orderID, svc.webhook.OrderID)
}

func TestPaymentWebhookRequiresSignature(t *testing.T) {
	svc := &stubPayments{}
	body := `{"order_id":"x","reference":"PAY-1-ABCDEF","status":"success"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	PaymentWebhook(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.webhook.Reference != "" {
		t.Fatal("service must not be called without a signature")
	}
}

func TestPaymentWebhookBadSignatureIs401(t *testing.T) {
	svc := &stubPayments{applyErr: pkgerrors.New(pkgerrors.CodeSignature, "Chữ ký không hợp lệ")}
	body := `{"order_id":"x","reference":"PAY-1-ABCDEF","status":"success","signature":"bad"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	PaymentWebhook(svc, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if env := decode(t, rec); env.Error.Message != "Chữ ký không hợp lệ" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestMockCheckoutRendersPendingTransaction(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPayments{checkout: &payments.TransactionDTO{
		OrderID:   orderID,
		Reference: "PAY-1700000000000-ABC123",
		Amount:    35000,
		Currency:  "VND",
		Status:    enums.TransactionStatusPending,
		ExpiresAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/payment/mock/checkout?orderId="+orderID.String()+"&ref=PAY-1700000000000-ABC123", nil)
	rec := httptest.NewRecorder()

	MockCheckout(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	page := rec.Body.String()
	assert.Contains(t, page, "35000 VND")
	assert.Contains(t, page, "/api/payment/mock/PAY-1700000000000-ABC123/complete")
	assert.Contains(t, page, `data-status="success"`)
}

func TestMockCheckoutRequiresOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/payment/mock/checkout?ref=PAY-1", nil)
	rec := httptest.NewRecorder()

	MockCheckout(&stubPayments{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type stubNotifications struct {
	notifications.Service
	markedUser uuid.UUID
	markedID   uuid.UUID
	listed     notifications.ListParams
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	s.markedUser = userID
	s.markedID = id
	return nil
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.listed = params
	return &notifications.ListResult{}, nil
}

func TestMarkNotificationReadScopesToCaller(t *testing.T) {
	svc := &stubNotifications{}
	userID := uuid.New()
	id := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodPost, "/", nil), userID, enums.RoleCustomer)
	req = withParams(req, "notificationId", id.String())
	rec := httptest.NewRecorder()

	MarkNotificationRead(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.markedUser)
	assert.Equal(t, id, svc.markedID)
}

func TestListNotificationsUnreadOnly(t *testing.T) {
	svc := &stubNotifications{}
	userID := uuid.New()
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/notifications?unreadOnly=true&limit=5", nil), userID, enums.RoleShipper)
	rec := httptest.NewRecorder()

	ListNotifications(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.listed.UnreadOnly)
	assert.Equal(t, 5, svc.listed.Limit)
	assert.Equal(t, userID, svc.listed.UserID)
}

type stubPricing struct {
	pricing.Service
	upserted pricing.UpsertRuleInput
}

func (s *stubPricing) UpsertRule(ctx context.Context, actorID uuid.UUID, input pricing.UpsertRuleInput) (*pricing.RuleDTO, error) {
	s.upserted = input
	return &pricing.RuleDTO{ServiceType: input.ServiceType, Active: input.Active}, nil
}

func TestUpsertPricingRuleDefaultsActive(t *testing.T) {
	svc := &stubPricing{}
	body := `{"base_fee":20000,"step_fee":5000,"insurance_rate":"0.005","insurance_threshold":1000000,"delivery_offset_hours":24}`
	req := withCaller(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body)), uuid.New(), enums.RoleAdmin)
	req = withParams(req, "serviceType", "standard")
	rec := httptest.NewRecorder()

	UpsertPricingRule(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.ServiceTypeStandard, svc.upserted.ServiceType)
	assert.True(t, svc.upserted.Active)
	assert.Equal(t, int64(20000), svc.upserted.BaseFee)
}

func TestUpsertPricingRuleRejectsUnknownServiceType(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), uuid.New(), enums.RoleAdmin)
	req = withParams(req, "serviceType", "teleport")
	rec := httptest.NewRecorder()

	UpsertPricingRule(&stubPricing{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type stubStats struct {
	stats.Service
	window stats.Window
}

func (s *stubStats) Overview(ctx context.Context, actor orders.Actor, window stats.Window) (*stats.Overview, error) {
	s.window = window
	return &stats.Overview{}, nil
}

func TestStatsOverviewParsesWindow(t *testing.T) {
	svc := &stubStats{}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/stats?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00%2B07:00", nil), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()

	StatsOverview(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), svc.window.From)
	assert.Equal(t, time.Date(2026, 1, 31, 17, 0, 0, 0, time.UTC), svc.window.To)
}

func TestStatsOverviewRejectsBadTime(t *testing.T) {
	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/stats?from=yesterday", nil), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()

	StatsOverview(&stubStats{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": up, "redis": up}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": up, "redis": down}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
