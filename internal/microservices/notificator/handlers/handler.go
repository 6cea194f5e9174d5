package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/service"
)

type Handler struct {
	NotificatorHandler *NotificatorHandler
}

func New(s *service.Service, lg *zap.Logger) *Handler {
	return &Handler{
		NotificatorHandler: NewNotificatorHandler(s.NotificatorService, lg),
	}
}

func (h *Handler) Routes(health http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /notifications", h.NotificatorHandler.ListNotifications)
	return mux
}
