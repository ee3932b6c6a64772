package models

import "time"

// PaymentStatus tracks a tuition payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is a tuition payment recorded against an application by university
// staff or an admin. Reference carries the external transaction identifier.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	ApplicationID string        `db:"application_id" json:"application_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Currency      string        `db:"currency" json:"currency"`
	Reference     string        `db:"reference" json:"reference"`
	Status        PaymentStatus `db:"status" json:"status"`
	RecordedBy    string        `db:"recorded_by" json:"recorded_by"`
	ConfirmedAt   *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentDetail joins display fields for payment listings.
type PaymentDetail struct {
	Payment
	StudentName    string `db:"student_name" json:"student_name"`
	ProgramName    string `db:"program_name" json:"program_name"`
	UniversityName string `db:"university_name" json:"university_name"`
}

// PaymentFilter captures list criteria for payments.
type PaymentFilter struct {
	ApplicationID string
	StudentID     string
	UniversityID  string
	Status        *PaymentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
