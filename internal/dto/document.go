package dto

import "github.com/Otsikow/unidoxia-sub010/internal/models"

// DraftDocumentsResponse lists a draft's uploads next to the slot catalog so
// the documents step can render filled and empty slots alike.
type DraftDocumentsResponse struct {
	Documents []models.Document     `json:"documents"`
	Types     []models.DocumentType `json:"types"`
	Missing   []models.DocumentType `json:"missingDocuments"`
}
