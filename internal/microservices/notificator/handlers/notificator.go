package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/service"
)

type NotificatorHandler struct {
	service service.NotificatorServiceInterface
	lg      *zap.Logger
}

func NewNotificatorHandler(s service.NotificatorServiceInterface, lg *zap.Logger) *NotificatorHandler {
	return &NotificatorHandler{service: s, lg: lg}
}

// ListNotifications serves GET /notifications?customerId=.
func (nh *NotificatorHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r)
	list, err := nh.service.ListNotifications(r.Context(), r.URL.Query().Get("customerId"), limit, offset)
	if err != nil {
		nh.lg.Error("list_notifications_failed", zap.Error(err))
		httpx.WriteProblem(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if list == nil {
		list = []dao.Notification{}
	}
	httpx.WriteJSON(w, http.StatusOK, dto.ListNotificationsResponse{Notifications: list, Limit: limit, Offset: offset})
}
