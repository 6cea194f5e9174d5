package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/service"
)

type InventoryHandler struct {
	service service.InventoryServiceInterface
	lg      *zap.Logger
}

func NewInventoryHandler(s service.InventoryServiceInterface, lg *zap.Logger) *InventoryHandler {
	return &InventoryHandler{service: s, lg: lg}
}

func (ih *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r)
	items, err := ih.service.ListItems(r.Context(), limit, offset)
	if err != nil {
		ih.fail(w, r, err)
		return
	}
	if items == nil {
		items = []dao.Item{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.ListItemsResponse{Items: items, Limit: limit, Offset: offset})
}

func (ih *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	it, err := ih.service.GetItem(r.Context(), id)
	if err != nil {
		ih.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, it)
}

func (ih *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	it, err := ih.service.CreateItem(r.Context(), req)
	if err != nil {
		ih.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, it)
}

func (ih *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	var req dto.UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	it, err := ih.service.UpdateItem(r.Context(), id, req)
	if err != nil {
		ih.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, it)
}

func (ih *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	if err := ih.service.DeleteItem(r.Context(), id); err != nil {
		ih.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ih *InventoryHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	var req dto.UpdateQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	it, err := ih.service.UpdateQuantity(r.Context(), id, req)
	if err != nil {
		ih.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, it)
}

func (ih *InventoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteValidation(w, verr)
	case errors.Is(err, dao.ErrItemNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, dao.ErrItemReserved):
		httpx.WriteProblem(w, http.StatusConflict, "conflict", err.Error())
	default:
		ih.lg.Error("request_failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
