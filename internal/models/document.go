package models

import "time"

// DocumentType defines one slot in the documents step, e.g. passport or
// transcript. Required types gate wizard completion; Multiple allows more
// than one file per slot.
type DocumentType struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Label       string    `db:"label" json:"label"`
	Description string    `db:"description" json:"description"`
	Required    bool      `db:"required" json:"required"`
	Multiple    bool      `db:"multiple" json:"multiple"`
	Active      bool      `db:"active" json:"active"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Document is an uploaded file attached to a draft. On submission the files
// are re-keyed to the created application: ApplicationID is stamped while
// DraftID stays set, so reviewers reach the files through the application and
// the student still sees them on the frozen draft.
type Document struct {
	ID            string    `db:"id" json:"id"`
	DraftID       string    `db:"draft_id" json:"draft_id"`
	ApplicationID *string   `db:"application_id" json:"application_id,omitempty"`
	StudentID     string    `db:"student_id" json:"student_id"`
	TypeCode      string    `db:"type_code" json:"type_code"`
	FileName      string    `db:"file_name" json:"file_name"`
	StoragePath   string    `db:"storage_path" json:"-"`
	ContentType   string    `db:"content_type" json:"content_type"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	UploadedByID  string    `db:"uploaded_by_id" json:"uploaded_by_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DocumentWithURL decorates a document with a signed download link.
type DocumentWithURL struct {
	Document
	DownloadURL string    `json:"download_url"`
	URLExpires  time.Time `json:"url_expires"`
}
