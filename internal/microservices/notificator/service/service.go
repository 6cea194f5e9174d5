package service

import (
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/repository"
)

type Service struct {
	NotificatorService NotificatorServiceInterface
}

func New(repo repository.Repository, lg *zap.Logger) *Service {
	return &Service{
		NotificatorService: NewNotificatorService(repo.NotificationRepo, lg),
	}
}
