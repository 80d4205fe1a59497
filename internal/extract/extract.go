// Package extract runs the metadata extraction agent over raw deck text.
// It is the "data clerk" stage of the pipeline: factual fields only, no
// subjective analysis.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/pkg/anthropic"
)

// factualTemperature keeps the extraction model close to the source text.
const factualTemperature = 0.1

const systemPrompt = `You are a rigorous Data Entry Clerk.
Your job is to extract factual metadata from a pitch deck.

RULES:
1. STARTUP NAME:
   - Identify the official brand name (e.g. from the logo or cover).
   - Do NOT include legal suffixes (Inc, Ltd, LLC).
   - Do NOT include .com/domains in the name (e.g. "Validly" NOT "Validly.com").
   - Do NOT use generic titles like "Pitch Deck" or "Intro".

2. WEBSITE:
   - Extract the explicit URL if found.
   - If NOT found, leave it empty. Do NOT guess "name.com".

3. DESCRIPTION (CRITICAL):
   - You MUST extract or synthesize a 2-3 sentence description of the product.
   - Describe WHAT it does and WHO it is for.
   - This will be used for search queries, so be specific (e.g., "AI-powered
     pitch practice tool for founders" instead of "AI platform").

4. FACTS:
   - TAM: Extract the number exactly as stated (e.g. "$5B").
   - Leave any field you cannot find empty rather than guessing.`

// Metadata is the structured result of the extraction agent.
type Metadata struct {
	StartupName string
	Enrichment  model.Enrichment
}

// Service runs metadata extraction through the LLM with a forced tool
// schema, so the response is structured fields rather than free text.
type Service struct {
	ai      anthropic.Client
	model   string
	textCap int
}

// New creates an extraction Service. The smart (Sonnet) model is used
// because name and TAM accuracy matter more here than latency.
func New(ai anthropic.Client, aiCfg config.AnthropicConfig, cfg config.ExtractConfig) *Service {
	return &Service{
		ai:      ai,
		model:   aiCfg.SonnetModel,
		textCap: cfg.MetadataCap,
	}
}

// extractArgs mirrors the extract_data tool schema.
type extractArgs struct {
	StartupName   string `json:"startup_name"`
	Tagline       string `json:"tagline"`
	Description   string `json:"description"`
	Country       string `json:"country"`
	Industry      string `json:"industry"`
	BusinessModel string `json:"business_model"`
	Stage         string `json:"stage"`
	FundingAsk    string `json:"funding_ask"`
	TAM           string `json:"tam"`
	TeamSize      int    `json:"team_size"`
	Email         string `json:"email"`
	Website       string `json:"website"`
}

func extractTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        "extract_data",
		Description: "Extract structured data from text",
		Properties: map[string]any{
			"startup_name":   map[string]any{"type": "string", "description": "The official name of the startup. Fix capitalization."},
			"tagline":        map[string]any{"type": "string", "description": "Short 3-5 word CATCHY description of what they do."},
			"description":    map[string]any{"type": "string", "description": "2-3 sentence summary of the product and value proposition."},
			"country":        map[string]any{"type": "string", "description": "Headquarters location."},
			"industry":       map[string]any{"type": "string", "description": "Primary industry sector (e.g. Fintech, Healthtech)."},
			"business_model": map[string]any{"type": "string", "description": "B2B, B2C, Marketplace, Enterprise, etc."},
			"stage":          map[string]any{"type": "string", "description": "Current investment stage (Pre-Seed, Seed, Series A)."},
			"funding_ask":    map[string]any{"type": "string", "description": "Amount they are raising (e.g. '$2M')."},
			"tam":            map[string]any{"type": "string", "description": "Total Addressable Market size (e.g. '$5B'). Extract raw string."},
			"team_size":      map[string]any{"type": "integer", "description": "Number of founders or employees if mentioned."},
			"email":          map[string]any{"type": "string", "description": "Contact email for the founder."},
			"website":        map[string]any{"type": "string", "description": "Startup website URL."},
		},
		Required: []string{"startup_name", "tagline", "description"},
	}
}

// Metadata extracts the structured field record from deck text. When
// allowedIndustries is non-empty, the industry field is constrained to
// that list so it lines up with the investor's thesis sectors.
func (s *Service) Metadata(ctx context.Context, deckText string, allowedIndustries []string) (*Metadata, error) {
	if strings.TrimSpace(deckText) == "" {
		return nil, eris.New("extract: deck text is empty")
	}

	input := deckText
	if s.textCap > 0 && len(input) > s.textCap {
		input = input[:s.textCap]
	}

	system := systemPrompt
	if len(allowedIndustries) > 0 {
		system += fmt.Sprintf("\nCRITICAL: The 'industry' MUST be chosen from this list: %s.",
			strings.Join(allowedIndustries, ", "))
	}

	temp := factualTemperature
	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   1024,
		System:      []anthropic.SystemBlock{{Text: system}},
		Temperature: &temp,
		Tools:       []anthropic.Tool{extractTool()},
		ForcedTool:  "extract_data",
		Messages: []anthropic.Message{
			{Role: "user", Content: "Extract metadata from this pitch deck content:\n\n" + input},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: metadata call")
	}
	resp.Usage.LogCost(s.model, "extract")

	use := resp.ToolUse()
	if use == nil {
		return nil, eris.New("extract: no tool_use block in response")
	}

	var args extractArgs
	if err := json.Unmarshal(use.Input, &args); err != nil {
		return nil, eris.Wrap(err, "extract: decode extract_data arguments")
	}

	zap.L().Info("extract: metadata extracted",
		zap.String("startup_name", args.StartupName),
		zap.String("industry", args.Industry),
		zap.String("stage", args.Stage),
	)

	return &Metadata{
		StartupName: args.StartupName,
		Enrichment: model.Enrichment{
			Tagline:       args.Tagline,
			Description:   args.Description,
			Country:       args.Country,
			Industry:      args.Industry,
			BusinessModel: args.BusinessModel,
			Stage:         args.Stage,
			FundingAsk:    args.FundingAsk,
			TAM:           args.TAM,
			TeamSize:      args.TeamSize,
			Email:         args.Email,
			Website:       args.Website,
		},
	}, nil
}

// genericTitles are first lines that never identify the startup.
var genericTitles = map[string]bool{
	"pitch deck":        true,
	"investor deck":     true,
	"executive summary": true,
}

// FallbackName derives a startup name when extraction fails or returns
// nothing. The first non-empty line of a deck is usually the company name;
// failing that, the filename stem is title-cased.
func FallbackName(rawText, filename string) string {
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) < 50 && !genericTitles[strings.ToLower(line)] {
			return line
		}
		break
	}

	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.English).String(name)
}
