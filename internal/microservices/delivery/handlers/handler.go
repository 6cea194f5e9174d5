package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/service"
)

type Handler struct {
	DeliveryHandler *DeliveryHandler
}

func New(s *service.Service, lg *zap.Logger) *Handler {
	return &Handler{
		DeliveryHandler: NewDeliveryHandler(s.DeliveryService, lg),
	}
}

func (h *Handler) Routes(health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /deliveries", h.DeliveryHandler.ListDeliveries)
	mux.HandleFunc("GET /deliveries/{id}", h.DeliveryHandler.GetDelivery)
	mux.HandleFunc("GET /drivers", h.DeliveryHandler.ListDrivers)
	mux.HandleFunc("PUT /drivers/{id}/availability", h.DeliveryHandler.SetDriverAvailability)
	return mux
}
