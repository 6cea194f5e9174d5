package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/service"
)

type Handler struct {
	KitchenHandler *KitchenHandler
}

func New(s *service.Service, lg *zap.Logger) *Handler {
	return &Handler{
		KitchenHandler: NewKitchenHandler(s.KitchenService, lg),
	}
}

func (h *Handler) Routes(health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /kitchen/orders", h.KitchenHandler.ListOrders)
	mux.HandleFunc("GET /kitchen/orders/{id}", h.KitchenHandler.GetOrder)
	mux.HandleFunc("PUT /kitchen/orders/{id}/items/{itemId}/status", h.KitchenHandler.UpdateItemStatus)
	return mux
}
