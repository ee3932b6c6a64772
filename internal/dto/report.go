package dto

import "github.com/Otsikow/unidoxia-sub010/internal/models"

// ReportRequest captures the POST /reports/jobs payload.
type ReportRequest struct {
	Entity     models.ReportEntity `json:"entity"`
	Format     models.ReportFormat `json:"format"`
	Status     *string             `json:"status,omitempty"`
	IntakeYear *int                `json:"intakeYear,omitempty"`
}

// ReportJobResponse acknowledges an enqueued report job. Clients poll the
// status endpoint with the returned ID.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress. ResultURL appears once the job
// finishes and carries the signed download link.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
