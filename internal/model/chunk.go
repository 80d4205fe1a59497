package model

// Chunk is the unit of retrieval: a bounded slice of document text plus
// its embedding vector. Chunks are created at ingestion, read-only after,
// and deleted with their document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	Source     string    `json:"source,omitempty"`

	// Similarity is filled in by search results; it is not persisted.
	Similarity float64 `json:"similarity,omitempty"`
}
