package repository

import "github.com/nikolovlazar/tracing-demos/internal/common/db"

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(pool db.Pool) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(pool),
	}
}
