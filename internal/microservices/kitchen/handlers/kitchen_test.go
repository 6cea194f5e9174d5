package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/service"
)

type mockService struct{ mock.Mock }

func (m *mockService) ListOrders(ctx context.Context, limit, offset int) ([]dao.KitchenOrder, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]dao.KitchenOrder), args.Error(1)
}

func (m *mockService) GetOrder(ctx context.Context, id int64) (dao.KitchenOrder, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(dao.KitchenOrder), args.Error(1)
}

func (m *mockService) UpdateItemStatus(ctx context.Context, id int64, itemID string, req dto.UpdateItemStatusRequest) (dao.KitchenOrder, error) {
	args := m.Called(ctx, id, itemID, req)
	return args.Get(0).(dao.KitchenOrder), args.Error(1)
}

func (m *mockService) HandleEvent(ctx context.Context, ev events.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockService) PrepareOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newMux(svc *mockService) *http.ServeMux {
	return New(&service.Service{KitchenService: svc}, zap.NewNop()).Routes(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestUpdateItemStatus(t *testing.T) {
	svc := &mockService{}
	completed := dto.UpdateItemStatusRequest{Status: dao.StatusCompleted}
	svc.On("UpdateItemStatus", mock.Anything, int64(1), "3", completed).
		Return(dao.KitchenOrder{ID: 1, OrderID: 42, Status: dao.StatusCompleted}, nil)
	svc.On("UpdateItemStatus", mock.Anything, int64(2), "3", completed).
		Return(dao.KitchenOrder{}, dao.ErrKitchenOrderClosed)
	svc.On("UpdateItemStatus", mock.Anything, int64(3), "9", completed).
		Return(dao.KitchenOrder{}, dao.ErrItemNotFound)
	mux := newMux(svc)

	rec := serve(mux, http.MethodPut, "/kitchen/orders/1/items/3/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	assert.Equal(t, http.StatusConflict, serve(mux, http.MethodPut, "/kitchen/orders/2/items/3/status", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodPut, "/kitchen/orders/3/items/9/status", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodPut, "/kitchen/orders/1/items/3/status", `{"state":"done"}`).Code)
}

func TestGetAndListOrders(t *testing.T) {
	svc := &mockService{}
	svc.On("GetOrder", mock.Anything, int64(5)).Return(dao.KitchenOrder{}, dao.ErrKitchenOrderNotFound)
	svc.On("ListOrders", mock.Anything, 50, 0).Return([]dao.KitchenOrder(nil), nil)
	mux := newMux(svc)

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/kitchen/orders/5", "").Code)

	rec := serve(mux, http.MethodGet, "/kitchen/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[],"limit":50,"offset":0}`, rec.Body.String())
}
