package dto

import (
	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
)

type ListDeliveriesResponse struct {
	Deliveries []dao.Delivery `json:"deliveries"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

type ListDriversResponse struct {
	Drivers []dao.Driver `json:"drivers"`
}

type SetAvailabilityRequest struct {
	Available *bool `json:"available"`
}

func (r SetAvailabilityRequest) Validate() error {
	var verr httpx.ValidationError
	if r.Available == nil {
		verr.Add("available", "is required")
	}
	return verr.Err()
}
