package service

import (
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(repo repository.Repository, pub broker.EventPublisher, lg *zap.Logger) *Service {
	return &Service{
		OrderService: NewOrderService(repo.OrderRepo, pub, lg),
	}
}
