package dto

import "github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"

type ListNotificationsResponse struct {
	Notifications []dao.Notification `json:"notifications"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}
