package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionSignup            = "SIGNUP"
	AuditActionPasswordChange    = "PASSWORD_CHANGE"
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionUserUpdate        = "USER_UPDATE"
	AuditActionUserDelete        = "USER_DELETE"
	AuditActionApplicationSubmit = "APPLICATION_SUBMIT"
	AuditActionStatusChange      = "STATUS_CHANGE"
	AuditActionUnknownReferral   = "UNKNOWN_REFERRAL"

	AuditActionUniversityCreate     = "UNIVERSITY_CREATE"
	AuditActionUniversityUpdate     = "UNIVERSITY_UPDATE"
	AuditActionUniversityDeactivate = "UNIVERSITY_DEACTIVATE"
	AuditActionProgramCreate        = "PROGRAM_CREATE"
	AuditActionProgramUpdate        = "PROGRAM_UPDATE"
	AuditActionIntakeCreate         = "INTAKE_CREATE"
	AuditActionDocumentUpload       = "DOCUMENT_UPLOAD"
	AuditActionDocumentDelete       = "DOCUMENT_DELETE"
	AuditActionCommissionApprove    = "COMMISSION_APPROVE"
	AuditActionCommissionPay        = "COMMISSION_PAY"
	AuditActionPaymentRecord        = "PAYMENT_RECORD"
	AuditActionPaymentStatus        = "PAYMENT_STATUS"
	AuditActionReportRequest        = "REPORT_REQUEST"
	AuditActionReportDownload       = "REPORT_DOWNLOAD"
	AuditActionDocumentDownload     = "DOCUMENT_DOWNLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
