package repository

import "github.com/nikolovlazar/tracing-demos/internal/common/db"

type Repository struct {
	DeliveryRepo DeliveryRepositoryInterface
}

func New(pool db.Pool) *Repository {
	return &Repository{
		DeliveryRepo: NewDeliveryRepository(pool),
	}
}
