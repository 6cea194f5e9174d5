package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/service"
)

type Handler struct {
	OrderHandler *OrderHandler
}

func New(s *service.Service, lg *zap.Logger) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService, lg),
	}
}

// Routes mounts the order API and the health check.
func (h *Handler) Routes(health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("POST /orders", h.OrderHandler.AddOrder)
	mux.HandleFunc("GET /orders", h.OrderHandler.ListOrders)
	mux.HandleFunc("GET /orders/{id}", h.OrderHandler.GetOrder)
	mux.HandleFunc("GET /orders/{id}/timeline", h.OrderHandler.GetTimeline)
	return mux
}
