package dto

import (
	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
)

type UpdateItemStatusRequest struct {
	Status dao.Status `json:"status"`
}

func (r UpdateItemStatusRequest) Validate() error {
	var verr httpx.ValidationError
	if r.Status != dao.StatusPending && r.Status != dao.StatusCompleted {
		verr.Add("status", "must be pending or completed")
	}
	return verr.Err()
}

type ListKitchenOrdersResponse struct {
	Orders []dao.KitchenOrder `json:"orders"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
