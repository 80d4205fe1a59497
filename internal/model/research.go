package model

// MarketMetrics captures the qualitative market indicators returned by the
// TAM synthesis step.
type MarketMetrics struct {
	CAGR             string `json:"market_cagr"`
	EntryBarrier     string `json:"entry_barrier"`     // Low/Medium/High
	CompetitionLevel string `json:"competition_level"` // Low/Medium/High
	GrowthStage      string `json:"growth_stage"`      // Early/Growth/Mature
}

// MarketResearch is the verified market-size estimate produced from search
// snippets plus the deck excerpt.
type MarketResearch struct {
	TAM            int64         `json:"tam_value"`
	SAM            int64         `json:"sam_value"`
	SOM            int64         `json:"som_value"`
	Metrics        MarketMetrics `json:"market_metrics"`
	Analysis       string        `json:"market_analysis"`
	DeckComparison string        `json:"deck_comparison"`
}

// Competitor is one entry of the ranked competitive landscape.
type Competitor struct {
	Name            string `json:"name"`
	Website         string `json:"website"`
	Similarity      int    `json:"similarity"` // 0-100
	Funding         string `json:"funding"`
	TeamSize        string `json:"team_size"`
	Differentiation string `json:"description"`
}

// ResearchBundle is the full output of one research run. It is immutable
// once the run completes; the next run replaces it wholesale.
type ResearchBundle struct {
	Market      *MarketResearch `json:"market,omitempty"`
	Competitors []Competitor    `json:"competitors,omitempty"`

	// Unavailable marks a run where external research failed entirely.
	// The council renders an explicit marker instead of research facts so
	// the agents know to rely on deck claims alone.
	Unavailable bool `json:"unavailable,omitempty"`
}
