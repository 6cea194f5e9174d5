package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/service"
)

type DeliveryHandler struct {
	service service.DeliveryServiceInterface
	lg      *zap.Logger
}

func NewDeliveryHandler(s service.DeliveryServiceInterface, lg *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{service: s, lg: lg}
}

func (dh *DeliveryHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r)
	list, err := dh.service.ListDeliveries(r.Context(), limit, offset)
	if err != nil {
		dh.fail(w, r, err)
		return
	}
	if list == nil {
		list = []dao.Delivery{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.ListDeliveriesResponse{Deliveries: list, Limit: limit, Offset: offset})
}

func (dh *DeliveryHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	d, err := dh.service.GetDelivery(r.Context(), id)
	if err != nil {
		dh.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (dh *DeliveryHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, dto.ListDriversResponse{Drivers: dh.service.ListDrivers()})
}

func (dh *DeliveryHandler) SetDriverAvailability(w http.ResponseWriter, r *http.Request) {
	var req dto.SetAvailabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := dh.service.SetDriverAvailability(r.PathValue("id"), req); err != nil {
		dh.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (dh *DeliveryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteValidation(w, verr)
	case errors.Is(err, dao.ErrDeliveryNotFound), errors.Is(err, dao.ErrDriverNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	default:
		dh.lg.Error("request_failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
