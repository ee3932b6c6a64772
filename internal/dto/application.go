package dto

import "github.com/Otsikow/unidoxia-sub010/internal/models"

// UpdateStatusRequest moves an application to a new lifecycle status.
type UpdateStatusRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required"`
	Note   string                   `json:"note"`
}

// WithdrawRequest lets the applicant side pull an application.
type WithdrawRequest struct {
	Note string `json:"note"`
}

// StatusHistoryResponse wraps an application's transition log.
type StatusHistoryResponse struct {
	ApplicationID string                          `json:"applicationId"`
	Events        []models.ApplicationStatusEvent `json:"events"`
}
