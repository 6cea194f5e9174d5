package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/service"
)

type mockService struct{ mock.Mock }

func (m *mockService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (dao.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(dao.Order), args.Error(1)
}

func (m *mockService) GetOrder(ctx context.Context, id int64) (dao.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(dao.Order), args.Error(1)
}

func (m *mockService) ListOrders(ctx context.Context, limit, offset int) ([]dao.Order, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]dao.Order), args.Error(1)
}

func (m *mockService) GetTimeline(ctx context.Context, id int64, limit, offset int) ([]dao.StatusChange, error) {
	args := m.Called(ctx, id, limit, offset)
	return args.Get(0).([]dao.StatusChange), args.Error(1)
}

func (m *mockService) HandleEvent(ctx context.Context, ev events.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func newMux(svc *mockService) *http.ServeMux {
	h := New(&service.Service{OrderService: svc}, zap.NewNop())
	return h.Routes(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestAddOrder(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r dto.CreateOrderRequest) bool {
		return r.CustomerID == "cust-1" && len(r.Items) == 1 && r.Items[0].Price.Equal(decimal.RequireFromString("12.99"))
	})).Return(dao.Order{ID: 1, CustomerID: "cust-1", Status: dao.StatusPending}, nil)

	rec := serve(newMux(svc), http.MethodPost, "/orders",
		`{"customerId":"cust-1","deliveryAddress":"1 Main St","items":[{"itemId":"1","name":"Margherita Pizza","quantity":1,"price":12.99}]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var o dao.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, dao.StatusPending, o.Status)
}

func TestAddOrder_BadRequests(t *testing.T) {
	svc := &mockService{}
	verr := &httpx.ValidationError{}
	verr.Add("items", "at least one item is required")
	svc.On("CreateOrder", mock.Anything, mock.Anything).Return(dao.Order{}, verr)
	mux := newMux(svc)

	rec := serve(mux, http.MethodPost, "/orders", `{"customerId":"cust-1","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"items"`)

	rec = serve(mux, http.MethodPost, "/orders", `{"customerId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestAddOrder_PublishFailureIs500(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateOrder", mock.Anything, mock.Anything).Return(dao.Order{}, errors.New("failed to publish order 1: channel closed"))

	rec := serve(newMux(svc), http.MethodPost, "/orders", `{"customerId":"c","items":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "channel closed")
}

func TestGetOrder(t *testing.T) {
	svc := &mockService{}
	svc.On("GetOrder", mock.Anything, int64(1)).Return(dao.Order{ID: 1, Status: dao.StatusReady}, nil)
	svc.On("GetOrder", mock.Anything, int64(2)).Return(dao.Order{}, dao.ErrOrderNotFound)
	mux := newMux(svc)

	rec := serve(mux, http.MethodGet, "/orders/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/orders/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodGet, "/orders/x", "").Code)
}

func TestListOrders_Pagination(t *testing.T) {
	svc := &mockService{}
	svc.On("ListOrders", mock.Anything, 10, 20).Return([]dao.Order(nil), nil)

	rec := serve(newMux(svc), http.MethodGet, "/orders?limit=10&offset=20", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[],"limit":10,"offset":20}`, rec.Body.String())
}

func TestGetTimeline(t *testing.T) {
	at := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	svc := &mockService{}
	svc.On("GetTimeline", mock.Anything, int64(1), 50, 0).Return([]dao.StatusChange{
		{ID: 1, OrderID: 1, Status: dao.StatusPending, ChangedBy: "order-service", ChangedAt: at},
	}, nil)
	svc.On("GetTimeline", mock.Anything, int64(2), 50, 0).Return([]dao.StatusChange(nil), dao.ErrOrderNotFound)
	mux := newMux(svc)

	rec := serve(mux, http.MethodGet, "/orders/1/timeline", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orderId":1,"events":[{"id":1,"orderId":1,"status":"pending","changedBy":"order-service","changedAt":"2026-01-02T12:00:00Z"}]}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/orders/2/timeline", "").Code)
}
