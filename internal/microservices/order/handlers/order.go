package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
	lg      *zap.Logger
}

func NewOrderHandler(s service.OrderServiceInterface, lg *zap.Logger) *OrderHandler {
	return &OrderHandler{service: s, lg: lg}
}

func (oh *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	o, err := oh.service.CreateOrder(r.Context(), req)
	if err != nil {
		oh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (oh *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r)
	orders, err := oh.service.ListOrders(r.Context(), limit, offset)
	if err != nil {
		oh.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []dao.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.ListOrdersResponse{Orders: orders, Limit: limit, Offset: offset})
}

func (oh *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	o, err := oh.service.GetOrder(r.Context(), id)
	if err != nil {
		oh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// GetTimeline returns the order's status log, oldest first.
func (oh *OrderHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	limit, offset := httpx.Pagination(r)
	changes, err := oh.service.GetTimeline(r.Context(), id, limit, offset)
	if err != nil {
		oh.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []dao.StatusChange{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.TimelineResponse{OrderID: id, Events: changes})
}

func (oh *OrderHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteValidation(w, verr)
	case errors.Is(err, dao.ErrOrderNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	default:
		oh.lg.Error("request_failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
