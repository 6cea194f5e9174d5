package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/service"
)

type KitchenHandler struct {
	service service.KitchenServiceInterface
	lg      *zap.Logger
}

func NewKitchenHandler(s service.KitchenServiceInterface, lg *zap.Logger) *KitchenHandler {
	return &KitchenHandler{service: s, lg: lg}
}

func (kh *KitchenHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r)
	orders, err := kh.service.ListOrders(r.Context(), limit, offset)
	if err != nil {
		kh.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []dao.KitchenOrder{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.ListKitchenOrdersResponse{Orders: orders, Limit: limit, Offset: offset})
}

func (kh *KitchenHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	ko, err := kh.service.GetOrder(r.Context(), id)
	if err != nil {
		kh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ko)
}

func (kh *KitchenHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	var req dto.UpdateItemStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	ko, err := kh.service.UpdateItemStatus(r.Context(), id, r.PathValue("itemId"), req)
	if err != nil {
		kh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ko)
}

func (kh *KitchenHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteValidation(w, verr)
	case errors.Is(err, dao.ErrKitchenOrderNotFound), errors.Is(err, dao.ErrItemNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, dao.ErrKitchenOrderClosed):
		httpx.WriteProblem(w, http.StatusConflict, "conflict", err.Error())
	default:
		kh.lg.Error("request_failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
