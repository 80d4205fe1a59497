package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/venturesight/dealdesk/internal/extract"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/internal/textex"
)

// --- Text Extractor Mock ---

type mockTextExtractor struct {
	mock.Mock
}

func (m *mockTextExtractor) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}

// --- Metadata Extractor Mock ---

type mockMetadataExtractor struct {
	mock.Mock
}

func (m *mockMetadataExtractor) Metadata(ctx context.Context, deckText string, allowedIndustries []string) (*extract.Metadata, error) {
	args := m.Called(ctx, deckText, allowedIndustries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Metadata), args.Error(1)
}

// --- Ingester Mock ---

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Ingest(ctx context.Context, documentID, text string) error {
	return m.Called(ctx, documentID, text).Error(0)
}

// --- Analyzer Mock ---

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(ctx context.Context, doc *model.Document, thesis model.Thesis) error {
	return m.Called(ctx, doc, thesis).Error(0)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockStore) GetDocumentByFingerprint(ctx context.Context, userID, fingerprint string) (*model.Document, error) {
	args := m.Called(ctx, userID, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockStore) GetDocumentByName(ctx context.Context, userID, name, excludeID string) (*model.Document, error) {
	args := m.Called(ctx, userID, name, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockStore) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *mockStore) SetDocumentStatus(ctx context.Context, id string, status model.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) UpdateDocumentExtraction(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) UpdateDocumentEnrichment(ctx context.Context, id string, enrichment model.Enrichment, matchScore float64) error {
	return m.Called(ctx, id, enrichment, matchScore).Error(0)
}

func (m *mockStore) UpdateDocumentNotes(ctx context.Context, id, notes string) error {
	return m.Called(ctx, id, notes).Error(0)
}

func (m *mockStore) DeleteDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) UpsertAnalysis(ctx context.Context, a *model.Analysis) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Analysis), args.Error(1)
}

func (m *mockStore) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *mockStore) ListChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Chunk), args.Error(1)
}

func (m *mockStore) SearchChunkText(ctx context.Context, documentID, term string, limit int) ([]model.Chunk, error) {
	args := m.Called(ctx, documentID, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Chunk), args.Error(1)
}

func (m *mockStore) DeleteChunks(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *mockStore) GetThesis(ctx context.Context, userID string) (*model.Thesis, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thesis), args.Error(1)
}

func (m *mockStore) UpsertThesis(ctx context.Context, t *model.Thesis) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockStore) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *mockStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Ensure interface compliance ---
var (
	_ textex.Extractor  = (*mockTextExtractor)(nil)
	_ MetadataExtractor = (*mockMetadataExtractor)(nil)
	_ Ingester          = (*mockIngester)(nil)
	_ Analyzer          = (*mockAnalyzer)(nil)
	_ store.Store       = (*mockStore)(nil)
)
