package repository

import "github.com/nikolovlazar/tracing-demos/internal/common/db"

type Repository struct {
	NotificationRepo NotificationRepositoryInterface
}

func New(pool db.Pool) *Repository {
	return &Repository{
		NotificationRepo: NewNotificationRepository(pool),
	}
}
