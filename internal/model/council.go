package model

import "time"

// Analyst roles on the council. The three analysts produce free-form
// markdown; only the consensus step is schema-constrained.
const (
	RoleOptimist = "Optimist"
	RoleSkeptic  = "Skeptic"
	RoleQuant    = "Quant"
)

// Opinion is one analyst's narrative take on a deck. Opinions are only
// ever read alongside their siblings inside an Analysis.
type Opinion struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ConsensusCategories are the eight fixed scoring categories, in report
// order.
var ConsensusCategories = []string{
	"Team", "Market", "Product", "Traction",
	"Competition", "Moat", "Timing", "Exit Potential",
}

// CategoryScore is a single 1-10 category judgment with its rationale.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// Consensus is the synthesis of the three analyst opinions. FinalScore is
// normalized to 0-100 and Recommendation is derived from it in code; both
// may disagree with what the model originally returned.
type Consensus struct {
	StartupName    string          `json:"startup_name,omitempty"`
	Tagline        string          `json:"tagline,omitempty"`
	Industry       string          `json:"industry,omitempty"`
	Stage          string          `json:"stage,omitempty"`
	Country        string          `json:"country,omitempty"`
	Summary        string          `json:"consensus_summary,omitempty"`
	FinalScore     float64         `json:"final_score"`
	Recommendation string          `json:"recommendation,omitempty"`
	CategoryScores []CategoryScore `json:"category_scores,omitempty"`
	KeyStrengths   []string        `json:"key_strengths,omitempty"`
	KeyWeaknesses  []string        `json:"key_weaknesses,omitempty"`
	Memo           string          `json:"investment_memo,omitempty"`
	Enrichment     Enrichment      `json:"crm_data"`
}

// Empty reports whether the consensus step produced nothing usable.
func (c Consensus) Empty() bool {
	return c.FinalScore == 0 && c.Memo == "" && len(c.CategoryScores) == 0
}

// Analysis is the persisted result of one council run, upserted by
// document id: one live analysis per document, superseded by the next run.
type Analysis struct {
	DocumentID string         `json:"document_id"`
	Optimist   string         `json:"optimist_analysis"`
	Skeptic    string         `json:"skeptic_analysis"`
	Quant      string         `json:"quant_analysis"`
	Consensus  Consensus      `json:"consensus"`
	Research   ResearchBundle `json:"research"`
	CreatedAt  time.Time      `json:"created_at"`
}
