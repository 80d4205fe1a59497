package assistant

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/pkg/brave"
)

func TestExecuteTool_WebSearchFormatsResults(t *testing.T) {
	f := newFixture(t)
	f.search.On("Search", mock.Anything, "vertical SaaS trends", brave.ModeGeneral, 5).Return([]brave.Result{
		{Title: "SaaS Report 2026", URL: "https://example.com/report", Description: "Market overview"},
	}, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "search_web",
		json.RawMessage(`{"query": "vertical SaaS trends"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "SaaS Report 2026")
	assert.Contains(t, out, "https://example.com/report")
}

func TestExecuteTool_MarketResearchDefaultsRegion(t *testing.T) {
	f := newFixture(t)
	f.research.On("AnalyzeTAM", mock.Anything, "", "Fintech", "Global").Return(&model.MarketResearch{
		TAM: 5_000_000_000, Analysis: "Large and growing.",
	}, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "market_research",
		json.RawMessage(`{"industry": "Fintech"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "5000000000")
	f.research.AssertCalled(t, "AnalyzeTAM", mock.Anything, "", "Fintech", "Global")
}

func TestExecuteTool_UpdateThesisMergesOnlyProvidedFields(t *testing.T) {
	f := newFixture(t)
	f.thesis.On("Get", mock.Anything, "user-1").Return(&model.Thesis{
		UserID:    "user-1",
		Text:      "B2B SaaS",
		Geography: "Europe",
	}, nil)

	var saved *model.Thesis
	f.thesis.On("Update", mock.Anything, "user-1", mock.MatchedBy(func(th *model.Thesis) bool {
		saved = th
		return true
	})).Return(&model.Thesis{UserID: "user-1", Text: "B2B SaaS", Geography: "DACH"}, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "update_thesis",
		json.RawMessage(`{"geography": "DACH"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "Thesis updated")

	// The unset field keeps its stored value; only geography changed.
	require.NotNil(t, saved)
	assert.Equal(t, "B2B SaaS", saved.Text)
	assert.Equal(t, "DACH", saved.Geography)
}

func TestExecuteTool_DeleteDealResolvesByName(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetDocumentByName", mock.Anything, "user-1", "Validly", "").Return(&model.Document{
		ID: "doc-1", UserID: "user-1", Name: "Validly",
	}, nil)
	f.deals.On("Delete", mock.Anything, "doc-1").Return(nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "delete_deal",
		json.RawMessage(`{"startup_name": "Validly"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "Deleted Validly")
}

func TestExecuteTool_DeleteDealUnknownName(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetDocumentByName", mock.Anything, "user-1", "Ghost Inc", "").Return(nil, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "delete_deal",
		json.RawMessage(`{"startup_name": "Ghost Inc"}`))
	assert.True(t, isErr)
	assert.Contains(t, out, "Tool execution failed")
	f.deals.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestExecuteTool_TriggerAnalysis(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetDocumentByName", mock.Anything, "user-1", "Validly", "").Return(&model.Document{
		ID: "doc-1", UserID: "user-1", Name: "Validly",
	}, nil)
	f.deals.On("TriggerAnalysis", mock.Anything, "doc-1").Return(nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "trigger_analysis",
		json.RawMessage(`{"startup_name": "Validly"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "Analysis started")
}

func TestExecuteTool_PipelineSummaryCountsByStatus(t *testing.T) {
	f := newFixture(t)
	f.deals.On("List", mock.Anything, mock.Anything).Return([]model.Document{
		{ID: "a", Name: "A", Status: model.StatusAnalyzed, MatchScore: 40},
		{ID: "b", Name: "B", Status: model.StatusAnalyzed, MatchScore: 90},
		{ID: "c", Name: "C", Status: model.StatusFailed},
	}, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "get_pipeline_summary",
		json.RawMessage(`{}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "3 deals total")
	assert.Contains(t, out, "analyzed: 2")
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, "Top deal: B (score 90)")
}

func TestExecuteTool_DealDetailsWithoutAnalysis(t *testing.T) {
	f := newFixture(t)
	f.store.On("GetDocumentByName", mock.Anything, "user-1", "Validly", "").Return(&model.Document{
		ID: "doc-1", UserID: "user-1", Name: "Validly", Status: model.StatusProcessing,
		Enrichment: model.Enrichment{Industry: "LegalTech"},
	}, nil)
	f.deals.On("GetAnalysis", mock.Anything, "doc-1").Return(nil, assert.AnError)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "get_deal_details",
		json.RawMessage(`{"startup_name": "Validly"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "LegalTech")
	assert.Contains(t, out, "No council analysis available yet")
}

func TestExecuteTool_SearchDecksAcrossPortfolio(t *testing.T) {
	f := newFixture(t)
	f.deals.On("List", mock.Anything, mock.Anything).Return([]model.Document{
		{ID: "doc-1"}, {ID: "doc-2"},
	}, nil)
	f.retrieval.On("Search", mock.Anything, "churn rate", []string{"doc-1", "doc-2"}, 5, 0.0).
		Return([]model.Chunk{{DocumentID: "doc-2", Content: "Churn is 2% monthly"}}, nil)

	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "search_decks",
		json.RawMessage(`{"query": "churn rate"}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "Churn is 2% monthly")
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	f := newFixture(t)
	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "make_coffee", json.RawMessage(`{}`))
	assert.False(t, isErr)
	assert.Contains(t, out, "Unknown tool")
}

func TestExecuteTool_MalformedArguments(t *testing.T) {
	f := newFixture(t)
	out, isErr := f.svc.executeTool(context.Background(), "user-1", nil, "search_web",
		json.RawMessage(`{"query": 42}`))
	assert.True(t, isErr)
	assert.Contains(t, out, "Tool execution failed")
}
