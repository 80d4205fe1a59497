// Package research verifies deck claims against the open web. It generates
// targeted search queries with the LLM, runs them through Brave Search, and
// synthesizes market-size and competitor facts from the aggregated snippets.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/resilience"
	"github.com/venturesight/dealdesk/pkg/anthropic"
	"github.com/venturesight/dealdesk/pkg/brave"
)

const factualTemperature = 0.1

const tamQuerySystem = "You are a Search Query Expert. Generate specific web search queries to find the TAM (Total Addressable Market) for this startup."

const competitorQuerySystem = "You are a Search Query Expert. Generate specific web search queries to find direct and indirect competitors for a startup."

const tamAnalysisSystem = `You are a Market Research Analyst.
Your goal is to validate the Total Addressable Market (TAM) for a startup.

INPUT:
- Deck Information (Claims)
- Search Results (Reality)

TASK:
1. Estimate the REAL TAM, SAM, SOM based on search results.
2. Compare with the Deck's numbers. If Deck is silent, provide your own estimates.
3. Assess key metrics (CAGR, Barriers, etc).`

const competitorScoringSystem = `You are a Competitive Intelligence Scout.
Your goal is to identify REAL, LIVING competitors for a startup.

INPUT:
- Startup Concept
- Search Results (names, funding, descriptions)

TASK:
1. Filter for the top 5 most relevant LIVING competitors.
2. For each, identify a clear website URL and their most recent funding status.
3. DIFFERENTIATION (CRITICAL): Concisely explain in 1-2 sentences how the target startup is DIFFERENT or BETTER than this specific competitor.
4. Score similarity (1-100).`

// Coordinator runs the market and competitor research agents.
type Coordinator struct {
	ai         anthropic.Client
	search     brave.Client
	breaker    *resilience.CircuitBreaker
	model      string
	queryModel string
	cfg        config.ResearchConfig
}

// New creates a research Coordinator. A shared circuit breaker guards the
// search provider so a hard outage fails the remaining queries of a
// research run fast instead of burning their full retry budgets. Query
// generation runs on the cheap Haiku tier; synthesis stays on Sonnet.
func New(ai anthropic.Client, search brave.Client, aiCfg config.AnthropicConfig, cfg config.ResearchConfig) *Coordinator {
	queryModel := aiCfg.HaikuModel
	if queryModel == "" {
		queryModel = aiCfg.SonnetModel
	}
	return &Coordinator{
		ai:         ai,
		search:     search,
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		model:      aiCfg.SonnetModel,
		queryModel: queryModel,
		cfg:        cfg,
	}
}

// AnalyzeTAM produces a verified market-size estimate for the given deck.
// Query generation failure falls back to deterministic templates; search
// failure degrades to synthesis over the deck excerpt alone.
func (c *Coordinator) AnalyzeTAM(ctx context.Context, deckText, industry, country string) (*model.MarketResearch, error) {
	zap.L().Info("research: starting TAM analysis",
		zap.String("industry", industry),
		zap.String("country", country),
	)

	queries := c.generateQueries(ctx, tamQuerySystem, c.cfg.TAMQueries, fmt.Sprintf(
		"Startup in %s (%s).\nDeck Content:\n%s\n\nOutput only the %d queries, one per line.",
		industry, country, truncate(deckText, 2000), c.cfg.TAMQueries,
	))
	if len(queries) == 0 {
		queries = []string{
			fmt.Sprintf("%s market size %s 2025 2026", industry, country),
			fmt.Sprintf("%s market CAGR growth report", industry),
			fmt.Sprintf("major trends in %s %s", industry, country),
		}
	}

	snippets := c.collectSnippets(ctx, queries, 3, 10, false)

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   2048,
		System:      []anthropic.SystemBlock{{Text: tamAnalysisSystem}},
		Temperature: ptr(factualTemperature),
		Tools:       []anthropic.Tool{tamTool()},
		ForcedTool:  "report_tam",
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(
				"CONTEXT:\nIndustry: %s\nRegion: %s\n\nDECK SNIPPET:\n%s\n\nSEARCH FINDINGS:\n%s\n\nProvide a structured market analysis.",
				industry, country, truncate(deckText, 5000), snippets,
			)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: TAM synthesis call")
	}
	resp.Usage.LogCost(c.model, "research_tam")

	use := resp.ToolUse()
	if use == nil {
		return nil, eris.New("research: no tool_use block in TAM response")
	}

	var market model.MarketResearch
	if err := json.Unmarshal(use.Input, &market); err != nil {
		return nil, eris.Wrap(err, "research: decode report_tam arguments")
	}
	return &market, nil
}

// AnalyzeCompetitors returns the ranked competitive landscape for a startup.
func (c *Coordinator) AnalyzeCompetitors(ctx context.Context, name, tagline, industry, description string) ([]model.Competitor, error) {
	zap.L().Info("research: starting competitor search", zap.String("startup", name))

	contextText := description
	if contextText == "" {
		contextText = tagline
	}

	queries := c.generateQueries(ctx, competitorQuerySystem, c.cfg.CompetitorQueries, fmt.Sprintf(
		`STARTUP: %s
INDUSTRY: %s
DESCRIPTION: %s

Generate %d specific web search queries to find DIRECT and INDIRECT competitors.

CRITICAL INSTRUCTION:
- Do NOT search for the name of the startup itself.
- Think about the SPECIFIC problem they solve (e.g. instead of "Fintech", search for "AI-powered credit scoring for SMEs").
- Include a query for "Alternatives to [category]" or "[category] software comparison".
- Keywords should be high-intent and niche.

Output only the %d queries, one per line.`,
		name, industry, contextText, c.cfg.CompetitorQueries, c.cfg.CompetitorQueries,
	))
	if len(queries) == 0 {
		snippet := truncate(contextText, 60)
		queries = []string{
			fmt.Sprintf("competitors to %s %s", name, industry),
			fmt.Sprintf("startups similar to %s", name),
			fmt.Sprintf("best %s apps for %s", industry, snippet),
			fmt.Sprintf("companies building %s", snippet),
		}
	}

	snippets := c.collectSnippets(ctx, queries, c.cfg.ResultsPerQuery, 20, true)

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   2048,
		System:      []anthropic.SystemBlock{{Text: competitorScoringSystem}},
		Temperature: ptr(factualTemperature),
		Tools:       []anthropic.Tool{competitorTool()},
		ForcedTool:  "report_competitors",
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(
				"STARTUP: %s - %s\nINDUSTRY: %s\nDESCRIPTION: %s\n\nSEARCH FINDINGS:\n%s\n\nIdentify the top 5 most relevant LIVING competitors.\n- Avoid generic category giants.\n- Focus on tools that solve the SAME specific problem.\n- Return structured data.",
				name, tagline, industry, contextText, snippets,
			)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: competitor synthesis call")
	}
	resp.Usage.LogCost(c.model, "research_competitors")

	use := resp.ToolUse()
	if use == nil {
		return nil, eris.New("research: no tool_use block in competitor response")
	}

	var out struct {
		Competitors   []model.Competitor `json:"competitors"`
		MarketSummary string             `json:"market_summary"`
	}
	if err := json.Unmarshal(use.Input, &out); err != nil {
		return nil, eris.Wrap(err, "research: decode report_competitors arguments")
	}
	return out.Competitors, nil
}

// generateQueries asks the LLM for search queries, one per line. Returns
// nil on any failure so the caller falls back to its templates.
func (c *Coordinator) generateQueries(ctx context.Context, system string, max int, prompt string) []string {
	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.queryModel,
		MaxTokens:   512,
		System:      []anthropic.SystemBlock{{Text: system}},
		Temperature: ptr(factualTemperature),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		zap.L().Warn("research: query generation failed", zap.Error(err))
		return nil
	}

	var queries []string
	for _, line := range strings.Split(resp.Text(), "\n") {
		q := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•0123456789. "))
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) >= max {
			break
		}
	}
	zap.L().Info("research: generated queries", zap.Strings("queries", queries))
	return queries
}

// collectSnippets runs each query through Brave and formats the hits as
// context blocks. An empty general search falls through to news mode; a
// query whose retries are exhausted contributes nothing.
func (c *Coordinator) collectSnippets(ctx context.Context, queries []string, perQuery, maxSnippets int, withURL bool) string {
	var snippets []string
	for _, q := range queries {
		results := c.searchWithFallback(ctx, q, perQuery)
		for _, r := range results {
			if withURL {
				snippets = append(snippets, fmt.Sprintf("Source: %s\nSnippet: %s\nURL: %s", r.Title, r.Description, r.URL))
			} else {
				snippets = append(snippets, fmt.Sprintf("Source: %s\nSnippet: %s", r.Title, r.Description))
			}
		}
	}
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}
	if len(snippets) == 0 {
		return "No search results available."
	}
	return strings.Join(snippets, "\n\n")
}

func (c *Coordinator) searchWithFallback(ctx context.Context, query string, count int) []brave.Result {
	results, err := c.retrySearch(ctx, query, brave.ModeGeneral, count)
	if err != nil {
		zap.L().Warn("research: search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(results) > 0 {
		return results
	}

	zap.L().Info("research: empty general results, trying news fallback", zap.String("query", query))
	results, err = c.retrySearch(ctx, query, brave.ModeNews, count)
	if err != nil {
		zap.L().Warn("research: news fallback failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	return results
}

func (c *Coordinator) retrySearch(ctx context.Context, query, mode string, count int) ([]brave.Result, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts:    c.cfg.SearchRetries,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		ShouldRetry:    searchShouldRetry,
		OnRetry:        resilience.RetryLogger("brave", "search"),
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]brave.Result, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]brave.Result, error) {
			return c.search.Search(ctx, query, mode, count)
		})
	})
}

// searchShouldRetry retries transient HTTP statuses from Brave and any
// network-level failure; a 4xx other than 408/429 is final, and so is a
// rejected call while the breaker is open.
func searchShouldRetry(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var apiErr *brave.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return true
}

func tamTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        "report_tam",
		Description: "Report the validated market size analysis",
		Properties: map[string]any{
			"tam_value": map[string]any{"type": "integer", "description": "TAM in USD (number)"},
			"sam_value": map[string]any{"type": "integer", "description": "SAM in USD (number)"},
			"som_value": map[string]any{"type": "integer", "description": "SOM in USD (number)"},
			"market_metrics": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"market_cagr":       map[string]any{"type": "string", "description": "CAGR with % symbol, e.g. '15.2%'"},
					"entry_barrier":     map[string]any{"type": "string", "description": "Low/Medium/High"},
					"competition_level": map[string]any{"type": "string", "description": "Low/Medium/High"},
					"growth_stage":      map[string]any{"type": "string", "description": "Early/Growth/Mature"},
				},
				"required": []string{"market_cagr", "entry_barrier", "competition_level", "growth_stage"},
			},
			"market_analysis": map[string]any{"type": "string", "description": "2-3 paragraphs analyzing market dynamics."},
			"deck_comparison": map[string]any{"type": "string", "description": "Comparison of Deck claims vs. Reality found in search."},
		},
		Required: []string{"tam_value", "sam_value", "som_value", "market_metrics", "market_analysis", "deck_comparison"},
	}
}

func competitorTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        "report_competitors",
		Description: "Report the ranked competitor landscape",
		Properties: map[string]any{
			"competitors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"website":     map[string]any{"type": "string", "description": "Clean URL e.g. 'stripe.com'"},
						"similarity":  map[string]any{"type": "integer", "description": "0-100 score"},
						"funding":     map[string]any{"type": "string", "description": "Total funding e.g. '$50M' or 'Bootstrapped'"},
						"team_size":   map[string]any{"type": "string", "description": "e.g. '100-500'"},
						"description": map[string]any{"type": "string", "description": "How the target startup differs from this competitor"},
					},
					"required": []string{"name", "website", "similarity"},
				},
			},
			"market_summary": map[string]any{"type": "string", "description": "Summary of the competitive landscape"},
		},
		Required: []string{"competitors"},
	}
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func ptr(f float64) *float64 { return &f }
