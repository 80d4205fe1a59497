package server

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/venturesight/dealdesk/internal/assistant"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
)

// --- Pipeline Mock ---

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Upload(ctx context.Context, userID, filename string, content []byte) (*model.Document, error) {
	args := m.Called(ctx, userID, filename, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockPipeline) Get(ctx context.Context, documentID string) (*model.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockPipeline) List(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *mockPipeline) UpdateNotes(ctx context.Context, documentID, notes string) error {
	return m.Called(ctx, documentID, notes).Error(0)
}

func (m *mockPipeline) Archive(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *mockPipeline) Delete(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *mockPipeline) TriggerAnalysis(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *mockPipeline) GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Analysis), args.Error(1)
}

// --- Assistant Mock ---

type mockAssistant struct {
	mock.Mock
}

func (m *mockAssistant) Respond(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.ChatReply), args.Error(1)
}

func (m *mockAssistant) Conversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *mockAssistant) History(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// --- Thesis Mock ---

type mockThesisManager struct {
	mock.Mock
}

func (m *mockThesisManager) Get(ctx context.Context, userID string) (*model.Thesis, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thesis), args.Error(1)
}

func (m *mockThesisManager) Update(ctx context.Context, userID string, t *model.Thesis) (*model.Thesis, error) {
	args := m.Called(ctx, userID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thesis), args.Error(1)
}

// --- Retriever Mock ---

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Search(ctx context.Context, query string, documentIDs []string, limit int, threshold float64) ([]model.Chunk, error) {
	args := m.Called(ctx, query, documentIDs, limit, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Chunk), args.Error(1)
}

// --- Ensure interface compliance ---
var (
	_ Pipeline      = (*mockPipeline)(nil)
	_ Assistant     = (*mockAssistant)(nil)
	_ ThesisManager = (*mockThesisManager)(nil)
	_ Retriever     = (*mockRetriever)(nil)
)
