package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status is the lifecycle state of a document in the analysis pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusAnalyzing  Status = "analyzing"
	StatusAnalyzed   Status = "analyzed"
	StatusFailed     Status = "failed"
	StatusArchived   Status = "archived"
)

// Document is the root entity: an uploaded pitch deck plus everything the
// pipeline has learned about it. ResearchBundle, Analysis and Chunks are
// owned by exactly one Document and deleted with it.
type Document struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Filename    string     `json:"filename"`
	Name        string     `json:"startup_name"`
	RawText     string     `json:"raw_text,omitempty"`
	Status      Status     `json:"status"`
	Fingerprint string     `json:"fingerprint"`
	MatchScore  float64    `json:"match_score"`
	Enrichment  Enrichment `json:"enrichment"`
	Notes       string     `json:"notes,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Fingerprint computes the deterministic content hash used for idempotent
// re-ingestion: two uploads with the same bytes collapse to one document.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Terminal reports whether no further pipeline stages run for this status.
func (s Status) Terminal() bool {
	return s == StatusAnalyzed || s == StatusFailed || s == StatusArchived
}
