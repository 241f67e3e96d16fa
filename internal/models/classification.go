package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassificationResult is the decoded inference outcome.
// Confidence is the raw maximum graph output and is not guaranteed to be a probability.
type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Treatment is the advice shown for a severity label
type Treatment struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Treatment   []string `json:"treatment"`
}

// ScanRecord is one entry of the classification history
type ScanRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ImageRef   string    `json:"image_ref" db:"image_ref"`
	Label      string    `json:"label" db:"label"`
	Confidence float32   `json:"confidence" db:"confidence"`
}
