package council

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/venturesight/dealdesk/internal/extract"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Researcher Mock ---

type mockResearcher struct {
	mock.Mock
}

func (m *mockResearcher) AnalyzeTAM(ctx context.Context, deckText, industry, country string) (*model.MarketResearch, error) {
	args := m.Called(ctx, deckText, industry, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MarketResearch), args.Error(1)
}

func (m *mockResearcher) AnalyzeCompetitors(ctx context.Context, name, tagline, industry, description string) ([]model.Competitor, error) {
	args := m.Called(ctx, name, tagline, industry, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Competitor), args.Error(1)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Metadata(ctx context.Context, deckText string, allowedIndustries []string) (*extract.Metadata, error) {
	args := m.Called(ctx, deckText, allowedIndustries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Metadata), args.Error(1)
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
	_ anthropic.Client  = (*mockAnthropicClient)(nil)
	_ Researcher        = (*mockResearcher)(nil)
	_ MetadataExtractor = (*mockExtractor)(nil)
	_ store.Store       = (*mockStore)(nil)
)
