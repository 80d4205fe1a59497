package research

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/resilience"
	"github.com/venturesight/dealdesk/pkg/anthropic"
	"github.com/venturesight/dealdesk/pkg/brave"
)

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

type mockBraveClient struct {
	mock.Mock
}

func (m *mockBraveClient) Search(ctx context.Context, query, mode string, count int) ([]brave.Result, error) {
	args := m.Called(ctx, query, mode, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]brave.Result), args.Error(1)
}

var (
	_ anthropic.Client = (*mockAnthropicClient)(nil)
	_ brave.Client     = (*mockBraveClient)(nil)
)

func testConfig() config.ResearchConfig {
	return config.ResearchConfig{
		TAMQueries:        3,
		CompetitorQueries: 4,
		SearchRetries:     1,
		ResultsPerQuery:   5,
	}
}

func newCoordinator(ai anthropic.Client, search brave.Client) *Coordinator {
	return New(ai, search,
		config.AnthropicConfig{
			HaikuModel:  "claude-haiku-4-5-20251001",
			SonnetModel: "claude-sonnet-4-5-20250929",
		},
		testConfig(),
	)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func toolResponse(t *testing.T, name string, input any) *anthropic.MessageResponse {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "tool_use", ID: "tu_1", Name: name, Input: raw}},
		StopReason: "tool_use",
	}
}

func isQueryGen(req anthropic.MessageRequest) bool  { return req.ForcedTool == "" }
func isSynthesis(req anthropic.MessageRequest) bool { return req.ForcedTool != "" }

func tamArgs() map[string]any {
	return map[string]any{
		"tam_value": 5000000000,
		"sam_value": 800000000,
		"som_value": 40000000,
		"market_metrics": map[string]any{
			"market_cagr":       "15.2%",
			"entry_barrier":     "Medium",
			"competition_level": "High",
			"growth_stage":      "Growth",
		},
		"market_analysis": "The market is expanding rapidly.",
		"deck_comparison": "Deck claims $8B; search suggests $5B.",
	}
}

func TestAnalyzeTAM_Success(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("- fintech market size germany\n- fintech CAGR report\n- fintech trends europe"), nil)
	search.On("Search", mock.Anything, mock.Anything, brave.ModeGeneral, 3).
		Return([]brave.Result{{Title: "Report", Description: "Market is $5B"}}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.ForcedTool == "report_tam" &&
			strings.Contains(req.Messages[0].Content, "Market is $5B")
	})).Return(toolResponse(t, "report_tam", tamArgs()), nil)

	market, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000000), market.TAM)
	assert.Equal(t, int64(800000000), market.SAM)
	assert.Equal(t, "15.2%", market.Metrics.CAGR)
	assert.Equal(t, "Growth", market.Metrics.GrowthStage)
	search.AssertNumberOfCalls(t, "Search", 3)
}

func TestAnalyzeTAM_QueryGenerationFallsBackToTemplates(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(nil, eris.New("model overloaded"))
	search.On("Search", mock.Anything, "Fintech market size Germany 2025 2026", brave.ModeGeneral, 3).
		Return([]brave.Result{{Title: "Report", Description: "snippet"}}, nil)
	search.On("Search", mock.Anything, mock.Anything, brave.ModeGeneral, 3).
		Return([]brave.Result{}, nil)
	search.On("Search", mock.Anything, mock.Anything, brave.ModeNews, 3).
		Return([]brave.Result{}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isSynthesis)).
		Return(toolResponse(t, "report_tam", tamArgs()), nil)

	_, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.NoError(t, err)
	search.AssertCalled(t, "Search", mock.Anything, "Fintech market size Germany 2025 2026", brave.ModeGeneral, 3)
}

func TestAnalyzeTAM_NewsFallbackOnEmptyResults(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("fintech market size"), nil)
	search.On("Search", mock.Anything, "fintech market size", brave.ModeGeneral, 3).
		Return([]brave.Result{}, nil)
	search.On("Search", mock.Anything, "fintech market size", brave.ModeNews, 3).
		Return([]brave.Result{{Title: "News", Description: "fresh market data"}}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return isSynthesis(req) && strings.Contains(req.Messages[0].Content, "fresh market data")
	})).Return(toolResponse(t, "report_tam", tamArgs()), nil)

	_, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.NoError(t, err)
	search.AssertExpectations(t)
}

func TestAnalyzeTAM_SearchFailureDegradesToEmptySnippets(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("fintech market size"), nil)
	search.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &brave.APIError{StatusCode: 422, Body: "bad query"})
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return isSynthesis(req) && strings.Contains(req.Messages[0].Content, "No search results available.")
	})).Return(toolResponse(t, "report_tam", tamArgs()), nil)

	market, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.NoError(t, err)
	assert.NotNil(t, market)
}

func TestAnalyzeTAM_SynthesisFailure(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("q1"), nil)
	search.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]brave.Result{{Title: "t", Description: "d"}}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isSynthesis)).
		Return(nil, eris.New("overloaded"))

	_, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAM synthesis call")
}

func TestAnalyzeTAM_NoToolUse(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("q1"), nil)
	search.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]brave.Result{}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isSynthesis)).
		Return(textResponse("not structured"), nil)

	_, err := newCoordinator(ai, search).AnalyzeTAM(context.Background(), "deck text", "Fintech", "Germany")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool_use block")
}

func TestAnalyzeCompetitors_Success(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(textResponse("1. pitch practice tools\n2. AI presentation coach\n3. alternatives to pitch coaching\n4. founder training software"), nil)
	search.On("Search", mock.Anything, mock.Anything, brave.ModeGeneral, 5).
		Return([]brave.Result{{Title: "Competitor", Description: "A rival tool", URL: "https://rival.io"}}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.ForcedTool == "report_competitors" &&
			strings.Contains(req.Messages[0].Content, "https://rival.io")
	})).Return(toolResponse(t, "report_competitors", map[string]any{
		"competitors": []map[string]any{
			{"name": "Rival", "website": "rival.io", "similarity": 85, "funding": "$10M", "team_size": "11-50", "description": "Rival is B2C; the startup targets enterprise."},
		},
		"market_summary": "Crowded but fragmented.",
	}), nil)

	competitors, err := newCoordinator(ai, search).AnalyzeCompetitors(context.Background(), "Validly", "AI pitch practice", "SaaS", "AI-powered pitch practice tool for founders")
	require.NoError(t, err)
	require.Len(t, competitors, 1)
	assert.Equal(t, "Rival", competitors[0].Name)
	assert.Equal(t, 85, competitors[0].Similarity)
	assert.Equal(t, "Rival is B2C; the startup targets enterprise.", competitors[0].Differentiation)
	search.AssertNumberOfCalls(t, "Search", 4)
}

func TestAnalyzeCompetitors_FallbackQueriesAvoidEmptyDescription(t *testing.T) {
	ai := &mockAnthropicClient{}
	search := &mockBraveClient{}

	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isQueryGen)).
		Return(nil, eris.New("unavailable"))
	search.On("Search", mock.Anything, "startups similar to Validly", brave.ModeGeneral, 5).
		Return([]brave.Result{{Title: "t", Description: "d", URL: "u"}}, nil)
	search.On("Search", mock.Anything, mock.Anything, brave.ModeGeneral, 5).
		Return([]brave.Result{{Title: "t", Description: "d", URL: "u"}}, nil)
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(isSynthesis)).
		Return(toolResponse(t, "report_competitors", map[string]any{"competitors": []map[string]any{}}), nil)

	_, err := newCoordinator(ai, search).AnalyzeCompetitors(context.Background(), "Validly", "AI pitch practice", "SaaS", "")
	require.NoError(t, err)
	search.AssertCalled(t, "Search", mock.Anything, "startups similar to Validly", brave.ModeGeneral, 5)
}

func TestSearchShouldRetry(t *testing.T) {
	assert.True(t, searchShouldRetry(&brave.APIError{StatusCode: 503}))
	assert.True(t, searchShouldRetry(&brave.APIError{StatusCode: 429}))
	assert.False(t, searchShouldRetry(&brave.APIError{StatusCode: 400}))
	assert.False(t, searchShouldRetry(&brave.APIError{StatusCode: 422}))
	assert.False(t, searchShouldRetry(resilience.ErrCircuitOpen))
	assert.True(t, searchShouldRetry(eris.New("connection reset by peer")))
}

func TestGenerateQueries_ParsesAndCaps(t *testing.T) {
	ai := &mockAnthropicClient{}
	// Query generation runs on the cheap model tier; synthesis does not.
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001"
	})).Return(textResponse("- query one\n\n2. query two\n• query three\nquery four"), nil)

	c := newCoordinator(ai, &mockBraveClient{})
	queries := c.generateQueries(context.Background(), tamQuerySystem, 3, "prompt")
	assert.Equal(t, []string{"query one", "query two", "query three"}, queries)
	ai.AssertExpectations(t)
}

func TestGenerateQueries_FallsBackToSonnetWithoutHaiku(t *testing.T) {
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929"
	})).Return(textResponse("query one"), nil)

	c := New(ai, &mockBraveClient{},
		config.AnthropicConfig{SonnetModel: "claude-sonnet-4-5-20250929"},
		testConfig(),
	)
	assert.Equal(t, []string{"query one"}, c.generateQueries(context.Background(), tamQuerySystem, 3, "prompt"))
	ai.AssertExpectations(t)
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))

	// A cut landing inside a multi-byte rune backs off to the boundary.
	got := truncate("aéb", 2)
	assert.Equal(t, "a", got)
	assert.True(t, utf8.ValidString(truncate("日本語", 4)))
}
