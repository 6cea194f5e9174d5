package service

import (
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/repository"
)

type Service struct {
	InventoryService InventoryServiceInterface
}

func New(repo repository.Repository, pub broker.EventPublisher, lg *zap.Logger) *Service {
	return &Service{
		InventoryService: NewInventoryService(repo.InventoryRepo, pub, lg),
	}
}
