package service

import (
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/repository"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

type Service struct {
	DeliveryService DeliveryServiceInterface
}

func New(repo repository.Repository, pub broker.EventPublisher, sched scheduler.Scheduler, cfg config.DeliveryConfig, lg *zap.Logger) *Service {
	return &Service{
		DeliveryService: NewDeliveryService(repo.DeliveryRepo, pub, sched, NewDriverPool(cfg.Drivers), cfg, lg),
	}
}
