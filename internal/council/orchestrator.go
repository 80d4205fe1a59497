// Package council runs the multi-agent investment analysis. Three analyst
// agents (Optimist, Skeptic, Quant) debate a deck in parallel, a consensus
// agent synthesizes their output into a scored record, and the result is
// persisted against the document.
package council

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/extract"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/pkg/anthropic"
)

// deckTextCap bounds the deck excerpt each agent sees.
const deckTextCap = 15000

const analysisTemperature = 0.7
const factualTemperature = 0.1

// researchUnavailable is rendered into agent prompts when external
// research failed entirely, so the agents know the deck claims were not
// cross-checked.
const researchUnavailable = "External research unavailable. Rely on deck claims."

// Researcher provides verified market and competitor facts.
type Researcher interface {
	AnalyzeTAM(ctx context.Context, deckText, industry, country string) (*model.MarketResearch, error)
	AnalyzeCompetitors(ctx context.Context, name, tagline, industry, description string) ([]model.Competitor, error)
}

// MetadataExtractor runs the pre-flight metadata extraction that gives the
// research phase its structured inputs.
type MetadataExtractor interface {
	Metadata(ctx context.Context, deckText string, allowedIndustries []string) (*extract.Metadata, error)
}

// Orchestrator coordinates the council run for one document.
type Orchestrator struct {
	ai        anthropic.Client
	store     store.Store
	extractor MetadataExtractor
	research  Researcher
	model     string
}

// New creates a council Orchestrator.
func New(ai anthropic.Client, st store.Store, extractor MetadataExtractor, research Researcher, aiCfg config.AnthropicConfig) *Orchestrator {
	return &Orchestrator{
		ai:        ai,
		store:     st,
		extractor: extractor,
		research:  research,
		model:     aiCfg.SonnetModel,
	}
}

// Analyze runs the full council pipeline for a document: metadata
// pre-flight, research fan-out, three analysts in parallel, consensus,
// then persistence. Only storage failures (or missing deck text) escalate
// to the document's failed state; everything else degrades in place.
func (o *Orchestrator) Analyze(ctx context.Context, doc *model.Document, thesis model.Thesis) error {
	if strings.TrimSpace(doc.RawText) == "" {
		o.markFailed(ctx, doc.ID)
		return eris.Errorf("council: document %s has no text", doc.ID)
	}

	zap.L().Info("council: starting analysis", zap.String("document_id", doc.ID))
	deckText := truncate(doc.RawText, deckTextCap)

	meta := o.preflight(ctx, deckText, thesis)
	bundle, researchEnrichment := o.runResearch(ctx, deckText, meta)
	researchContext := renderResearchContext(bundle)
	thesisContext := thesis.PromptContext()

	opinions := o.runAnalysts(ctx, deckText, thesisContext, researchContext)
	consensus := o.runConsensus(ctx, opinions, thesisContext, researchContext)

	consensus.FinalScore = NormalizeScore(consensus.FinalScore)
	consensus.Recommendation = RecommendationFor(consensus.FinalScore)
	consensus.Enrichment = model.MergeEnrichment(meta.Enrichment, researchEnrichment, consensus.Enrichment)

	analysis := &model.Analysis{
		DocumentID: doc.ID,
		Optimist:   opinions[model.RoleOptimist],
		Skeptic:    opinions[model.RoleSkeptic],
		Quant:      opinions[model.RoleQuant],
		Consensus:  consensus,
		Research:   bundle,
		CreatedAt:  time.Now().UTC(),
	}

	if err := o.store.UpsertAnalysis(ctx, analysis); err != nil {
		o.markFailed(ctx, doc.ID)
		return eris.Wrap(err, "council: save analysis")
	}
	if err := o.store.UpdateDocumentEnrichment(ctx, doc.ID, consensus.Enrichment, consensus.FinalScore); err != nil {
		o.markFailed(ctx, doc.ID)
		return eris.Wrap(err, "council: update document enrichment")
	}
	if err := o.store.SetDocumentStatus(ctx, doc.ID, model.StatusAnalyzed); err != nil {
		return eris.Wrap(err, "council: set analyzed status")
	}

	zap.L().Info("council: analysis complete",
		zap.String("document_id", doc.ID),
		zap.Float64("final_score", consensus.FinalScore),
		zap.String("recommendation", consensus.Recommendation),
	)
	return nil
}

// preflight extracts structured metadata so research has real inputs.
// Failure degrades to generic placeholders rather than blocking the run.
func (o *Orchestrator) preflight(ctx context.Context, deckText string, thesis model.Thesis) extract.Metadata {
	meta, err := o.extractor.Metadata(ctx, deckText, thesis.TargetSectors)
	if err != nil {
		zap.L().Warn("council: metadata pre-flight failed", zap.Error(err))
		return extract.Metadata{
			StartupName: "Startup",
			Enrichment:  model.Enrichment{Industry: "Technology", Country: "Global"},
		}
	}
	if meta.StartupName == "" {
		meta.StartupName = "Startup"
	}
	if meta.Enrichment.Industry == "" {
		meta.Enrichment.Industry = "Technology"
	}
	if meta.Enrichment.Country == "" {
		meta.Enrichment.Country = "Global"
	}
	return *meta
}

// runResearch fans out the TAM and competitor calls. Both failing marks
// the bundle unavailable; a partial result is kept as-is.
func (o *Orchestrator) runResearch(ctx context.Context, deckText string, meta extract.Metadata) (model.ResearchBundle, model.Enrichment) {
	var bundle model.ResearchBundle
	var tamErr, compErr error

	industry := meta.Enrichment.Industry
	country := meta.Enrichment.Country
	description := meta.Enrichment.Description
	if description == "" {
		description = meta.Enrichment.Tagline
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle.Market, tamErr = o.research.AnalyzeTAM(gCtx, deckText, industry, country)
		if tamErr != nil {
			zap.L().Warn("council: TAM research failed", zap.Error(tamErr))
		}
		return nil
	})
	g.Go(func() error {
		bundle.Competitors, compErr = o.research.AnalyzeCompetitors(gCtx, meta.StartupName, meta.Enrichment.Tagline, industry, description)
		if compErr != nil {
			zap.L().Warn("council: competitor research failed", zap.Error(compErr))
		}
		return nil
	})
	_ = g.Wait()

	bundle.Unavailable = tamErr != nil && compErr != nil

	enrichment := model.Enrichment{Industry: industry, Country: country}
	if bundle.Market != nil {
		enrichment.TAM = formatUSD(bundle.Market.TAM)
		enrichment.SAM = formatUSD(bundle.Market.SAM)
		enrichment.SOM = formatUSD(bundle.Market.SOM)
	}
	return bundle, enrichment
}

// runAnalysts fans out the three analyst agents. A failed agent yields a
// placeholder opinion so the consensus step still sees all three slots.
// The shared system prefix is cached and warmed with a primer so the
// fan-out reads from cache instead of re-ingesting the context three times.
func (o *Orchestrator) runAnalysts(ctx context.Context, deckText, thesisContext, researchContext string) map[string]string {
	shared := sharedContext(thesisContext, researchContext)
	sharedBlocks := anthropic.BuildCachedSystemBlocks(shared)

	go func() {
		_, err := anthropic.PrimerRequest(ctx, o.ai, anthropic.MessageRequest{
			Model:     o.model,
			MaxTokens: 1,
			System:    sharedBlocks,
			Messages:  []anthropic.Message{{Role: "user", Content: "ok"}},
		})
		if err != nil {
			zap.L().Debug("council: cache primer failed", zap.Error(err))
		}
	}()

	roles := map[string]string{
		model.RoleOptimist: optimistPrompt,
		model.RoleSkeptic:  skepticPrompt,
		model.RoleQuant:    quantPrompt,
	}

	var mu sync.Mutex
	opinions := make(map[string]string, len(roles))
	setOpinion := func(role, text string) {
		mu.Lock()
		opinions[role] = text
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	for role, prompt := range roles {
		g.Go(func() error {
			temp := analysisTemperature
			resp, err := o.ai.CreateMessage(gCtx, anthropic.MessageRequest{
				Model:       o.model,
				MaxTokens:   4096,
				System:      append(append([]anthropic.SystemBlock{}, sharedBlocks...), anthropic.SystemBlock{Text: prompt}),
				Temperature: &temp,
				Messages: []anthropic.Message{
					{Role: "user", Content: "Analyze this pitch deck:\n\n" + deckText},
				},
			})
			if err != nil {
				zap.L().Warn("council: analyst failed", zap.String("role", role), zap.Error(err))
				setOpinion(role, fmt.Sprintf("Error running %s.", role))
				return nil
			}
			resp.Usage.LogCost(o.model, "council_"+strings.ToLower(role))

			text := resp.Text()
			if text == "" {
				text = fmt.Sprintf("%s failed to generate analysis.", role)
			}
			setOpinion(role, text)
			return nil
		})
	}
	_ = g.Wait()
	return opinions
}

// runConsensus synthesizes the debate into a scored record. Any failure
// (call error, missing tool block, bad decode) yields an empty consensus
// and the pipeline keeps going.
func (o *Orchestrator) runConsensus(ctx context.Context, opinions map[string]string, thesisContext, researchContext string) model.Consensus {
	debate := fmt.Sprintf("# OPTIMIST ANALYSIS:\n%s\n\n# SKEPTIC ANALYSIS:\n%s\n\n# QUANT ANALYSIS:\n%s",
		opinions[model.RoleOptimist], opinions[model.RoleSkeptic], opinions[model.RoleQuant])

	temp := factualTemperature
	resp, err := o.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.model,
		MaxTokens: 8192,
		System: []anthropic.SystemBlock{
			{Text: consensusPrompt + "\n\n" + sharedContext(thesisContext, researchContext)},
		},
		Temperature: &temp,
		Tools:       []anthropic.Tool{consensusTool()},
		ForcedTool:  "report_consensus",
		Messages: []anthropic.Message{
			{Role: "user", Content: "Synthesize debate:\n\n" + debate},
		},
	})
	if err != nil {
		zap.L().Error("council: consensus call failed", zap.Error(err))
		return model.Consensus{}
	}
	resp.Usage.LogCost(o.model, "council_consensus")

	use := resp.ToolUse()
	if use == nil {
		zap.L().Error("council: no tool_use block in consensus response")
		return model.Consensus{}
	}

	var consensus model.Consensus
	if err := json.Unmarshal(use.Input, &consensus); err != nil {
		zap.L().Error("council: consensus decode failed", zap.Error(err))
		return model.Consensus{}
	}
	return consensus
}

func (o *Orchestrator) markFailed(ctx context.Context, documentID string) {
	if err := o.store.SetDocumentStatus(ctx, documentID, model.StatusFailed); err != nil {
		zap.L().Error("council: failed to set failed status",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}
}

// NormalizeScore corrects a consensus aggregate mistakenly returned on a
// 1-10 scale: anything in (0, 10] is multiplied by 10.
func NormalizeScore(s float64) float64 {
	if s > 0 && s <= 10 {
		return s * 10
	}
	return s
}

// RecommendationFor derives the recommendation from the normalized score.
// The model's own recommendation string is never trusted.
func RecommendationFor(score float64) string {
	switch {
	case score < 60:
		return "Pass"
	case score < 80:
		return "Consider"
	default:
		return "Invest"
	}
}

func sharedContext(thesisContext, researchContext string) string {
	parts := []string{}
	if thesisContext != "" {
		parts = append(parts, thesisContext)
	}
	parts = append(parts, researchContext)
	return strings.Join(parts, "\n\n")
}

// renderResearchContext formats the research bundle as a prompt block for
// the analysts and the consensus agent.
func renderResearchContext(bundle model.ResearchBundle) string {
	if bundle.Unavailable {
		return researchUnavailable
	}

	var b strings.Builder
	b.WriteString("VERIFIED RESEARCH DATA:\n")

	if m := bundle.Market; m != nil {
		b.WriteString("\n[TAM ANALYSIS]\n")
		fmt.Fprintf(&b, "- Estimated TAM: %s\n", valueOrNA(formatUSD(m.TAM)))
		fmt.Fprintf(&b, "- Estimated SAM: %s\n", valueOrNA(formatUSD(m.SAM)))
		fmt.Fprintf(&b, "- Estimated SOM: %s\n", valueOrNA(formatUSD(m.SOM)))
		fmt.Fprintf(&b, "- Market CAGR: %s\n", valueOrNA(m.Metrics.CAGR))
		fmt.Fprintf(&b, "- Market Stage: %s\n", valueOrNA(m.Metrics.GrowthStage))
		fmt.Fprintf(&b, "- Analyst Note: %s\n", valueOrNA(m.Analysis))
	}

	if len(bundle.Competitors) > 0 {
		b.WriteString("\n[COMPETITIVE LANDSCAPE]\n")
		for _, c := range bundle.Competitors {
			fmt.Fprintf(&b, "- %s (%s, similarity %d/100, funding %s): %s\n",
				c.Name, c.Website, c.Similarity, valueOrNA(c.Funding), c.Differentiation)
		}
	}

	return b.String()
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// formatUSD renders a dollar amount in compact human form. Non-positive
// amounts mean the researcher produced no figure and render as empty, so
// the enrichment merge treats them as absent.
func formatUSD(amount int64) string {
	switch {
	case amount <= 0:
		return ""
	case amount >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", float64(amount)/1_000_000_000)
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", float64(amount)/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.0fK", float64(amount)/1_000)
	default:
		return fmt.Sprintf("$%d", amount)
	}
}

func consensusTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        "report_consensus",
		Description: "Report the synthesized council verdict",
		Properties: map[string]any{
			"startup_name":      map[string]any{"type": "string"},
			"tagline":           map[string]any{"type": "string", "description": "One liner"},
			"industry":          map[string]any{"type": "string"},
			"stage":             map[string]any{"type": "string", "description": "Pre-Seed, Seed, Series A, ..."},
			"country":           map[string]any{"type": "string"},
			"consensus_summary": map[string]any{"type": "string", "description": "Short Executive Summary (2-3 sentences)"},
			"final_score":       map[string]any{"type": "number", "description": "Aggregate score on a 0-100 scale"},
			"recommendation":    map[string]any{"type": "string", "enum": []string{"Pass", "Consider", "Invest"}},
			"category_scores": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category": map[string]any{"type": "string", "enum": model.ConsensusCategories},
						"score":    map[string]any{"type": "number", "description": "1-10"},
						"reason":   map[string]any{"type": "string"},
					},
					"required": []string{"category", "score", "reason"},
				},
			},
			"key_strengths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"key_weaknesses":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"investment_memo": map[string]any{"type": "string", "description": "Full markdown memo"},
			"crm_data": map[string]any{
				"type":        "object",
				"description": "Corrected factual fields worth writing back to the deal record",
				"properties": map[string]any{
					"tagline":        map[string]any{"type": "string"},
					"description":    map[string]any{"type": "string"},
					"country":        map[string]any{"type": "string"},
					"industry":       map[string]any{"type": "string"},
					"business_model": map[string]any{"type": "string"},
					"stage":          map[string]any{"type": "string"},
					"funding_ask":    map[string]any{"type": "string"},
					"tam":            map[string]any{"type": "string"},
					"team_size":      map[string]any{"type": "integer"},
					"email":          map[string]any{"type": "string"},
					"website":        map[string]any{"type": "string"},
				},
			},
		},
		Required: []string{"startup_name", "consensus_summary", "final_score", "category_scores", "key_strengths", "key_weaknesses", "investment_memo"},
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
