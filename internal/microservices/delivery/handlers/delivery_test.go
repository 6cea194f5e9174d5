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
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/service"
)

type mockService struct{ mock.Mock }

func (m *mockService) ListDeliveries(ctx context.Context, limit, offset int) ([]dao.Delivery, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]dao.Delivery), args.Error(1)
}

func (m *mockService) GetDelivery(ctx context.Context, id int64) (dao.Delivery, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(dao.Delivery), args.Error(1)
}

func (m *mockService) ListDrivers() []dao.Driver {
	return m.Called().Get(0).([]dao.Driver)
}

func (m *mockService) SetDriverAvailability(id string, req dto.SetAvailabilityRequest) error {
	return m.Called(id, req).Error(0)
}

func (m *mockService) HandleEvent(ctx context.Context, ev events.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockService) CompleteDelivery(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newMux(svc *mockService) *http.ServeMux {
	return New(&service.Service{DeliveryService: svc}, zap.NewNop()).Routes(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestGetDelivery(t *testing.T) {
	svc := &mockService{}
	svc.On("GetDelivery", mock.Anything, int64(1)).Return(dao.Delivery{ID: 1, OrderID: 42, Status: dao.StatusPending, DriverID: "DRIVER-1"}, nil)
	svc.On("GetDelivery", mock.Anything, int64(2)).Return(dao.Delivery{}, dao.ErrDeliveryNotFound)
	mux := newMux(svc)

	rec := serve(mux, http.MethodGet, "/deliveries/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"driverId":"DRIVER-1"`)
	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/deliveries/2", "").Code)
}

func TestListDeliveries(t *testing.T) {
	svc := &mockService{}
	svc.On("ListDeliveries", mock.Anything, 5, 0).Return([]dao.Delivery(nil), nil)

	rec := serve(newMux(svc), http.MethodGet, "/deliveries?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deliveries":[],"limit":5,"offset":0}`, rec.Body.String())
}

func TestDrivers(t *testing.T) {
	svc := &mockService{}
	svc.On("ListDrivers").Return([]dao.Driver{{ID: "DRIVER-1", Name: "John Doe", Available: true}})
	off := false
	svc.On("SetDriverAvailability", "DRIVER-1", dto.SetAvailabilityRequest{Available: &off}).Return(nil)
	svc.On("SetDriverAvailability", "DRIVER-9", mock.Anything).Return(dao.ErrDriverNotFound)
	mux := newMux(svc)

	rec := serve(mux, http.MethodGet, "/drivers", "")
	assert.JSONEq(t, `{"drivers":[{"id":"DRIVER-1","name":"John Doe","available":true}]}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, serve(mux, http.MethodPut, "/drivers/DRIVER-1/availability", `{"available":false}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodPut, "/drivers/DRIVER-9/availability", `{"available":true}`).Code)
}
