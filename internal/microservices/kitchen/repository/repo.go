package repository

import "github.com/nikolovlazar/tracing-demos/internal/common/db"

type Repository struct {
	KitchenRepo KitchenRepositoryInterface
}

func New(pool db.Pool) *Repository {
	return &Repository{
		KitchenRepo: NewKitchenRepository(pool),
	}
}
