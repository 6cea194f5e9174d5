package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/service"
)

type Handler struct {
	InventoryHandler *InventoryHandler
}

func New(s *service.Service, lg *zap.Logger) *Handler {
	return &Handler{
		InventoryHandler: NewInventoryHandler(s.InventoryService, lg),
	}
}

// Routes mounts the inventory API and the health check.
func (h *Handler) Routes(health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /items", h.InventoryHandler.ListItems)
	mux.HandleFunc("POST /items", h.InventoryHandler.CreateItem)
	mux.HandleFunc("GET /items/{id}", h.InventoryHandler.GetItem)
	mux.HandleFunc("PUT /items/{id}", h.InventoryHandler.UpdateItem)
	mux.HandleFunc("DELETE /items/{id}", h.InventoryHandler.DeleteItem)
	mux.HandleFunc("PUT /items/{id}/quantity", h.InventoryHandler.UpdateQuantity)
	return mux
}
