package store

import (
	"context"

	"github.com/venturesight/dealdesk/internal/model"
)

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	UserID          string       `json:"user_id,omitempty"`
	Status          model.Status `json:"status,omitempty"`
	IncludeArchived bool         `json:"include_archived,omitempty"`
	Limit           int          `json:"limit,omitempty"`
	Offset          int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the deal pipeline.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Document, error)
	GetDocumentByName(ctx context.Context, userID, name, excludeID string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)
	SetDocumentStatus(ctx context.Context, id string, status model.Status) error
	UpdateDocumentExtraction(ctx context.Context, doc *model.Document) error
	UpdateDocumentEnrichment(ctx context.Context, id string, enrichment model.Enrichment, matchScore float64) error
	UpdateDocumentNotes(ctx context.Context, id, notes string) error
	DeleteDocument(ctx context.Context, id string) error

	// Analyses
	UpsertAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error)

	// Chunks
	InsertChunks(ctx context.Context, chunks []model.Chunk) error
	ListChunks(ctx context.Context, documentID string) ([]model.Chunk, error)
	SearchChunkText(ctx context.Context, documentID, term string, limit int) ([]model.Chunk, error)
	DeleteChunks(ctx context.Context, documentID string) error

	// Thesis
	GetThesis(ctx context.Context, userID string) (*model.Thesis, error)
	UpsertThesis(ctx context.Context, t *model.Thesis) error

	// Conversations
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	AppendMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
