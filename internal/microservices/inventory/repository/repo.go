package repository

import "github.com/nikolovlazar/tracing-demos/internal/common/db"

type Repository struct {
	InventoryRepo InventoryRepositoryInterface
}

func New(pool db.Pool) *Repository {
	return &Repository{
		InventoryRepo: NewInventoryRepository(pool),
	}
}
