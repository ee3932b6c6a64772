package models

import "time"

// ApplicationStatus tracks an application through the admissions lifecycle.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted         ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview       ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusDocumentsRequired ApplicationStatus = "DOCUMENTS_REQUIRED"
	ApplicationStatusOfferIssued       ApplicationStatus = "OFFER_ISSUED"
	ApplicationStatusAccepted          ApplicationStatus = "ACCEPTED"
	ApplicationStatusEnrolled          ApplicationStatus = "ENROLLED"
	ApplicationStatusRejected          ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn         ApplicationStatus = "WITHDRAWN"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusSubmitted:         {ApplicationStatusUnderReview},
	ApplicationStatusUnderReview:       {ApplicationStatusDocumentsRequired, ApplicationStatusOfferIssued, ApplicationStatusRejected},
	ApplicationStatusDocumentsRequired: {ApplicationStatusUnderReview},
	ApplicationStatusOfferIssued:       {ApplicationStatusAccepted, ApplicationStatusRejected},
	ApplicationStatusAccepted:          {ApplicationStatusEnrolled},
}

// CanTransition reports whether moving from one status to another is allowed.
// WITHDRAWN is reachable from any non-terminal status.
func CanTransition(from, to ApplicationStatus) bool {
	if to == ApplicationStatusWithdrawn {
		return !IsTerminalStatus(from)
	}
	for _, allowed := range applicationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions exist.
func IsTerminalStatus(status ApplicationStatus) bool {
	switch status {
	case ApplicationStatusEnrolled, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// ValidApplicationStatus reports whether the string names a known status.
func ValidApplicationStatus(status ApplicationStatus) bool {
	switch status {
	case ApplicationStatusSubmitted, ApplicationStatusUnderReview, ApplicationStatusDocumentsRequired,
		ApplicationStatusOfferIssued, ApplicationStatusAccepted, ApplicationStatusEnrolled,
		ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// Application is a submitted admission request. Personal info and education
// are snapshots of the draft at submit time; later profile edits do not bleed
// into applications already under review. UniversityID is denormalized from
// the program for tenant scoping.
type Application struct {
	ID           string            `db:"id" json:"id"`
	StudentID    string            `db:"student_id" json:"student_id"`
	AgentID      *string           `db:"agent_id" json:"agent_id,omitempty"`
	ProgramID    string            `db:"program_id" json:"program_id"`
	UniversityID string            `db:"university_id" json:"university_id"`
	IntakeID     *string           `db:"intake_id" json:"intake_id,omitempty"`
	IntakeYear   int               `db:"intake_year" json:"intake_year"`
	IntakeMonth  int               `db:"intake_month" json:"intake_month"`
	PersonalInfo PersonalInfo      `db:"personal_info" json:"personal_info"`
	Education    EducationHistory  `db:"education" json:"education"`
	Notes        string            `db:"notes" json:"notes"`
	Status       ApplicationStatus `db:"status" json:"status"`
	DecisionNote string            `db:"decision_note" json:"decision_note,omitempty"`
	SubmittedAt  time.Time         `db:"submitted_at" json:"submitted_at"`
	DecidedAt    *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail joins display fields for list and detail endpoints.
type ApplicationDetail struct {
	Application
	StudentName    string  `db:"student_name" json:"student_name"`
	StudentEmail   string  `db:"student_email" json:"student_email"`
	AgentName      *string `db:"agent_name" json:"agent_name,omitempty"`
	ProgramName    string  `db:"program_name" json:"program_name"`
	ProgramLevel   string  `db:"program_level" json:"program_level"`
	UniversityName string  `db:"university_name" json:"university_name"`
}

// ApplicationStatusEvent is one entry in an application's status history.
type ApplicationStatusEvent struct {
	ID            string            `db:"id" json:"id"`
	ApplicationID string            `db:"application_id" json:"application_id"`
	FromStatus    ApplicationStatus `db:"from_status" json:"from_status"`
	ToStatus      ApplicationStatus `db:"to_status" json:"to_status"`
	Note          string            `db:"note" json:"note"`
	ActorID       string            `db:"actor_id" json:"actor_id"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// ApplicationFilter captures list criteria. Role scoping is applied by the
// service before the filter reaches the repository.
type ApplicationFilter struct {
	StudentID    string
	AgentID      string
	UniversityID string
	ProgramID    string
	Status       *ApplicationStatus
	IntakeYear   *int
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
