package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/pkg/anthropic"
	"github.com/venturesight/dealdesk/pkg/brave"
)

// webSearchCount is how many results a search_web call fetches.
const webSearchCount = 5

// toolRegistry returns the tool schemas offered to the model on every
// assistant turn.
func toolRegistry() []anthropic.Tool {
	return []anthropic.Tool{
		{
			Name:        "search_web",
			Description: "Search the public web for current information. Use for market news, funding announcements, and facts not present in the CRM.",
			Properties: map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
			},
			Required: []string{"query"},
		},
		{
			Name:        "market_research",
			Description: "Run a verified TAM/SAM/SOM market sizing for an industry using live web research. Slow; use when the user asks about market size.",
			Properties: map[string]any{
				"industry":     map[string]any{"type": "string", "description": "Industry or market to size"},
				"region":       map[string]any{"type": "string", "description": "Geographic region, e.g. Global or Germany"},
				"deck_excerpt": map[string]any{"type": "string", "description": "Optional deck text with the startup's own market claims"},
			},
			Required: []string{"industry"},
		},
		{
			Name:        "analyze_competitors",
			Description: "Find and score real competitors of a startup using live web research.",
			Properties: map[string]any{
				"startup_name": map[string]any{"type": "string"},
				"tagline":      map[string]any{"type": "string"},
				"industry":     map[string]any{"type": "string"},
				"description":  map[string]any{"type": "string"},
			},
			Required: []string{"startup_name", "industry"},
		},
		{
			Name:        "search_decks",
			Description: "Semantic search across the user's analyzed pitch decks. Use to find claims, metrics or patterns inside deck content.",
			Properties: map[string]any{
				"query": map[string]any{"type": "string", "description": "What to look for"},
			},
			Required: []string{"query"},
		},
		{
			Name:        "list_decks",
			Description: "List the user's deals with status and score, newest first.",
			Properties: map[string]any{
				"limit": map[string]any{"type": "integer", "description": "Maximum deals to return, default 10"},
			},
		},
		{
			Name:        "get_deal_details",
			Description: "Fetch the full CRM record and council analysis for one deal by startup name. Always use this before answering questions about a specific deal.",
			Properties: map[string]any{
				"startup_name": map[string]any{"type": "string"},
			},
			Required: []string{"startup_name"},
		},
		{
			Name:        "get_pipeline_summary",
			Description: "Summarize the user's deal pipeline: counts by status and the top-scored deals.",
			Properties:  map[string]any{},
		},
		{
			Name:        "benchmark_funding",
			Description: "Compare a startup's funding ask against stage benchmarks. Deterministic; returns range assessment, implied valuation and a recommendation.",
			Properties: map[string]any{
				"funding_ask": map[string]any{"type": "number", "description": "Amount being raised in USD"},
				"stage":       map[string]any{"type": "string", "description": "Funding stage (Pre-Seed, Seed, Series A, Series B)"},
				"mrr":         map[string]any{"type": "number", "description": "Monthly recurring revenue in USD if known"},
				"team_size":   map[string]any{"type": "integer", "description": "Current team size"},
			},
			Required: []string{"funding_ask", "stage"},
		},
		{
			Name:        "grade_investment_readiness",
			Description: "Grade a deck against 11 weighted VC criteria. Score each criterion 1-10 from what you know about the deal; omit criteria the deck does not cover.",
			Properties: map[string]any{
				"criteria_scores": map[string]any{
					"type":        "object",
					"description": "Map of criterion ID to score (1-10). IDs: team, problem, solution, market, traction, business_model, competition, go_to_market, financials, ask, storytelling",
				},
				"stage": map[string]any{"type": "string", "description": "Expected funding stage for context"},
			},
			Required: []string{"criteria_scores"},
		},
		{
			Name:        "update_thesis",
			Description: "Update the user's investment thesis. Only fields provided are changed.",
			Properties: map[string]any{
				"thesis_text":     map[string]any{"type": "string"},
				"target_sectors":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"geography":       map[string]any{"type": "string"},
				"check_size_min":  map[string]any{"type": "integer"},
				"check_size_max":  map[string]any{"type": "integer"},
				"preferred_stage": map[string]any{"type": "string"},
				"anti_thesis":     map[string]any{"type": "string"},
			},
		},
		{
			Name:        "delete_deal",
			Description: "Permanently delete a deal and all its analysis data by startup name. Only use when the user explicitly asks.",
			Properties: map[string]any{
				"startup_name": map[string]any{"type": "string"},
			},
			Required: []string{"startup_name"},
		},
		{
			Name:        "trigger_analysis",
			Description: "Re-run the full investment council analysis for a deal by startup name.",
			Properties: map[string]any{
				"startup_name": map[string]any{"type": "string"},
			},
			Required: []string{"startup_name"},
		},
	}
}

// executeTool dispatches one tool call and renders its outcome as the text
// the model sees. Failures come back as error strings rather than aborting
// the turn, so the model can recover or rephrase.
func (s *Service) executeTool(ctx context.Context, userID string, targetDocs []string, name string, input json.RawMessage) (string, bool) {
	zap.L().Info("assistant: executing tool",
		zap.String("tool", name),
		zap.String("user_id", userID),
	)

	out, err := s.dispatchTool(ctx, userID, targetDocs, name, input)
	if err != nil {
		zap.L().Warn("assistant: tool failed", zap.String("tool", name), zap.Error(err))
		return fmt.Sprintf("Tool execution failed: %v", err), true
	}
	return out, false
}

func (s *Service) dispatchTool(ctx context.Context, userID string, targetDocs []string, name string, input json.RawMessage) (string, error) {
	switch name {
	case "search_web":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		return s.runWebSearch(ctx, args.Query)

	case "market_research":
		var args struct {
			Industry    string `json:"industry"`
			Region      string `json:"region"`
			DeckExcerpt string `json:"deck_excerpt"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		if args.Region == "" {
			args.Region = "Global"
		}
		market, err := s.research.AnalyzeTAM(ctx, args.DeckExcerpt, args.Industry, args.Region)
		if err != nil {
			return "", err
		}
		return marshalResult(market)

	case "analyze_competitors":
		var args struct {
			StartupName string `json:"startup_name"`
			Tagline     string `json:"tagline"`
			Industry    string `json:"industry"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		competitors, err := s.research.AnalyzeCompetitors(ctx, args.StartupName, args.Tagline, args.Industry, args.Description)
		if err != nil {
			return "", err
		}
		return marshalResult(competitors)

	case "search_decks":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		return s.runDeckSearch(ctx, userID, targetDocs, args.Query)

	case "list_decks":
		var args struct {
			Limit int `json:"limit"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		if args.Limit <= 0 {
			args.Limit = 10
		}
		return s.runListDecks(ctx, userID, args.Limit)

	case "get_deal_details":
		var args struct {
			StartupName string `json:"startup_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		return s.runDealDetails(ctx, userID, args.StartupName)

	case "get_pipeline_summary":
		return s.runPipelineSummary(ctx, userID)

	case "benchmark_funding":
		var args struct {
			FundingAsk float64 `json:"funding_ask"`
			Stage      string  `json:"stage"`
			MRR        float64 `json:"mrr"`
			TeamSize   int     `json:"team_size"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		if args.FundingAsk <= 0 {
			return "", fmt.Errorf("funding_ask must be positive, got %v", args.FundingAsk)
		}
		return marshalResult(benchmarkFunding(args.FundingAsk, args.Stage, args.MRR, args.TeamSize))

	case "grade_investment_readiness":
		var args struct {
			CriteriaScores map[string]int `json:"criteria_scores"`
			Stage          string         `json:"stage"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		if len(args.CriteriaScores) == 0 {
			return "", fmt.Errorf("criteria_scores is empty")
		}
		return marshalResult(gradeReadiness(args.CriteriaScores, args.Stage))

	case "update_thesis":
		return s.runThesisUpdate(ctx, userID, input)

	case "delete_deal":
		var args struct {
			StartupName string `json:"startup_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		doc, err := s.findDealByName(ctx, userID, args.StartupName)
		if err != nil {
			return "", err
		}
		if err := s.deals.Delete(ctx, doc.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %s and all its analysis data.", doc.Name), nil

	case "trigger_analysis":
		var args struct {
			StartupName string `json:"startup_name"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return "", err
		}
		doc, err := s.findDealByName(ctx, userID, args.StartupName)
		if err != nil {
			return "", err
		}
		if err := s.deals.TriggerAnalysis(ctx, doc.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Analysis started for %s. Results will be ready shortly.", doc.Name), nil

	default:
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}
}

func (s *Service) runWebSearch(ctx context.Context, query string) (string, error) {
	results, err := s.search.Search(ctx, query, brave.ModeGeneral, webSearchCount)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No search results found.", nil
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Description)
	}
	return b.String(), nil
}

func (s *Service) runDeckSearch(ctx context.Context, userID string, targetDocs []string, query string) (string, error) {
	docIDs := targetDocs
	if len(docIDs) == 0 {
		docs, err := s.deals.List(ctx, store.DocumentFilter{UserID: userID})
		if err != nil {
			return "", err
		}
		for _, d := range docs {
			docIDs = append(docIDs, d.ID)
		}
	}
	if len(docIDs) == 0 {
		return "No decks in the pipeline to search.", nil
	}

	chunks, err := s.retrieval.Search(ctx, query, docIDs, retrievalHits, 0)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "No matching deck content found.", nil
	}
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "-- Deck %s:\n%s\n\n", c.DocumentID, c.Content)
	}
	return b.String(), nil
}

func (s *Service) runListDecks(ctx context.Context, userID string, limit int) (string, error) {
	docs, err := s.deals.List(ctx, store.DocumentFilter{UserID: userID, Limit: limit})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "The pipeline is empty.", nil
	}
	var b strings.Builder
	b.WriteString("YOUR RECENT DEALS (CRM):\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s [%s] score=%.0f industry=%s\n",
			d.Name, d.Status, d.MatchScore, valueOr(d.Enrichment.Industry, "unknown"))
	}
	return b.String(), nil
}

func (s *Service) runDealDetails(ctx context.Context, userID, startupName string) (string, error) {
	doc, err := s.findDealByName(ctx, userID, startupName)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DEAL: %s\nStatus: %s\nScore: %.0f\n", doc.Name, doc.Status, doc.MatchScore)
	if enrichmentJSON, err := json.MarshalIndent(doc.Enrichment, "", "  "); err == nil {
		fmt.Fprintf(&b, "KEY METRICS:\n%s\n", enrichmentJSON)
	}
	if doc.Notes != "" {
		fmt.Fprintf(&b, "NOTES: %s\n", doc.Notes)
	}

	analysis, err := s.deals.GetAnalysis(ctx, doc.ID)
	if err != nil {
		b.WriteString("\nNo council analysis available yet.\n")
		return b.String(), nil
	}
	fmt.Fprintf(&b, "\nCOUNCIL CONSENSUS (score %.0f, %s):\n%s\n",
		analysis.Consensus.FinalScore, analysis.Consensus.Recommendation, analysis.Consensus.Summary)
	for _, cs := range analysis.Consensus.CategoryScores {
		fmt.Fprintf(&b, "- %s: %.1f/10 (%s)\n", cs.Category, cs.Score, cs.Reason)
	}
	return b.String(), nil
}

func (s *Service) runPipelineSummary(ctx context.Context, userID string) (string, error) {
	docs, err := s.deals.List(ctx, store.DocumentFilter{UserID: userID, IncludeArchived: true})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "The pipeline is empty.", nil
	}

	byStatus := map[model.Status]int{}
	var best *model.Document
	for i := range docs {
		byStatus[docs[i].Status]++
		if docs[i].Status == model.StatusAnalyzed && (best == nil || docs[i].MatchScore > best.MatchScore) {
			best = &docs[i]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PIPELINE SUMMARY: %d deals total\n", len(docs))
	for _, status := range []model.Status{
		model.StatusPending, model.StatusProcessing, model.StatusAnalyzing,
		model.StatusAnalyzed, model.StatusFailed, model.StatusArchived,
	} {
		if n := byStatus[status]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", status, n)
		}
	}
	if best != nil {
		fmt.Fprintf(&b, "Top deal: %s (score %.0f)\n", best.Name, best.MatchScore)
	}
	return b.String(), nil
}

func (s *Service) runThesisUpdate(ctx context.Context, userID string, input json.RawMessage) (string, error) {
	var args struct {
		Text           *string  `json:"thesis_text"`
		TargetSectors  []string `json:"target_sectors"`
		Geography      *string  `json:"geography"`
		CheckSizeMin   *int64   `json:"check_size_min"`
		CheckSizeMax   *int64   `json:"check_size_max"`
		PreferredStage *string  `json:"preferred_stage"`
		AntiThesis     *string  `json:"anti_thesis"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", err
	}

	current, err := s.thesis.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if args.Text != nil {
		current.Text = *args.Text
	}
	if args.TargetSectors != nil {
		current.TargetSectors = args.TargetSectors
	}
	if args.Geography != nil {
		current.Geography = *args.Geography
	}
	if args.CheckSizeMin != nil {
		current.CheckSizeMin = *args.CheckSizeMin
	}
	if args.CheckSizeMax != nil {
		current.CheckSizeMax = *args.CheckSizeMax
	}
	if args.PreferredStage != nil {
		current.PreferredStage = *args.PreferredStage
	}
	if args.AntiThesis != nil {
		current.AntiThesis = *args.AntiThesis
	}

	updated, err := s.thesis.Update(ctx, userID, current)
	if err != nil {
		return "", err
	}
	return "Thesis updated.\n" + updated.PromptContext(), nil
}

// findDealByName resolves a startup name to the user's non-archived
// document, case-insensitively.
func (s *Service) findDealByName(ctx context.Context, userID, name string) (*model.Document, error) {
	doc, err := s.store.GetDocumentByName(ctx, userID, name, "")
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("no deal named %q in the pipeline", name)
	}
	return doc, nil
}

func marshalResult(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
