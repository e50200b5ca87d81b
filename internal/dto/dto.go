package dto

import "booking-pricing/internal/model"

type CreateSnapshotRequest struct {
	Source string  `json:"source" validate:"omitempty,max=64"`
	Note   *string `json:"note" validate:"omitempty,max=1000"`
}

type ManualSnapshotRequest struct {
	CreateSnapshotRequest
	Overrides map[string]any `json:"overrides" validate:"required"`
}

type SnapshotListResponse struct {
	BookingID uint                          `json:"booking_id"`
	Snapshots []*model.BookingPriceSnapshot `json:"snapshots"`
}

type AuditListResponse struct {
	BookingID uint                       `json:"booking_id"`
	Audits    []*model.BookingPriceAudit `json:"audits"`
}
