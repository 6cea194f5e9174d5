package service

import (
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/repository"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

type Service struct {
	KitchenService KitchenServiceInterface
}

func New(repo repository.Repository, pub broker.EventPublisher, sched scheduler.Scheduler, cfg config.KitchenConfig, lg *zap.Logger) *Service {
	return &Service{
		KitchenService: NewKitchenService(repo.KitchenRepo, pub, sched, cfg.PrepDelay, lg),
	}
}
