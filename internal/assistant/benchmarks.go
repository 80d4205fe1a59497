package assistant

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// stageBenchmark describes typical round economics for one funding stage.
type stageBenchmark struct {
	Stage    string `json:"stage"`
	RangeMin int64  `json:"range_min"`
	RangeMax int64  `json:"range_max"`
	Median   int64  `json:"median"`
	Revenue  string `json:"expected_revenue"`
	Team     string `json:"expected_team"`
	Product  string `json:"expected_product"`
}

// stageBenchmarks is ordered most-specific first so "pre-seed" matches
// Pre-Seed before Seed.
var stageBenchmarks = []stageBenchmark{
	{
		Stage: "Pre-Seed", RangeMin: 100_000, RangeMax: 500_000, Median: 250_000,
		Revenue: "Pre-revenue or < $10K MRR",
		Team:    "1-3 founders",
		Product: "MVP or prototype",
	},
	{
		Stage: "Series A", RangeMin: 5_000_000, RangeMax: 15_000_000, Median: 10_000_000,
		Revenue: "$100K+ MRR or $1M+ ARR",
		Team:    "15-30 people",
		Product: "Product-market fit demonstrated",
	},
	{
		Stage: "Series B", RangeMin: 15_000_000, RangeMax: 50_000_000, Median: 30_000_000,
		Revenue: "$3M+ ARR with growth",
		Team:    "50+ people",
		Product: "Scalable go-to-market",
	},
	{
		Stage: "Seed", RangeMin: 500_000, RangeMax: 3_000_000, Median: 1_500_000,
		Revenue: "$10K-$50K MRR or strong engagement",
		Team:    "3-10 people",
		Product: "Launched product with early users",
	},
}

// fundingAssessment is the benchmark_funding tool result.
type fundingAssessment struct {
	FundingAsk       float64        `json:"funding_ask"`
	Stage            string         `json:"stage"`
	Benchmark        stageBenchmark `json:"benchmark"`
	Status           string         `json:"status"`
	Note             string         `json:"note"`
	ImpliedValuation [2]float64     `json:"implied_valuation_range"`
	RevenueAnalysis  string         `json:"revenue_analysis,omitempty"`
	TeamAnalysis     string         `json:"team_analysis,omitempty"`
	Recommendation   string         `json:"recommendation"`
}

// matchStageBenchmark resolves a free-form stage label to a benchmark row,
// defaulting to Seed for anything unrecognized.
func matchStageBenchmark(stage string) stageBenchmark {
	s := strings.ToLower(stage)
	for _, b := range stageBenchmarks {
		key := strings.ToLower(b.Stage)
		if strings.Contains(s, key) || strings.Contains(s, strings.ReplaceAll(key, "-", " ")) {
			return b
		}
	}
	return stageBenchmarks[len(stageBenchmarks)-1]
}

// benchmarkFunding compares a funding ask against the stage benchmark.
// Valuation bounds assume the usual 15-25 percent dilution band.
func benchmarkFunding(ask float64, stage string, mrr float64, teamSize int) fundingAssessment {
	b := matchStageBenchmark(stage)

	out := fundingAssessment{
		FundingAsk:       ask,
		Stage:            b.Stage,
		Benchmark:        b,
		ImpliedValuation: [2]float64{ask / 0.25, ask / 0.15},
	}

	switch {
	case ask < float64(b.RangeMin):
		out.Status = "BELOW_RANGE"
		out.Note = "Funding ask is below typical range. May indicate conservative approach or early stage."
	case ask > float64(b.RangeMax):
		out.Status = "ABOVE_RANGE"
		out.Note = "Funding ask exceeds typical range. Requires strong metrics justification."
	case ask > float64(b.Median)*1.3:
		out.Status = "HIGH_END"
		out.Note = "Ask is on the higher end of range. Verify metrics support valuation."
	default:
		out.Status = "WITHIN_RANGE"
		out.Note = "Funding ask aligns with stage benchmarks."
	}

	if mrr > 0 {
		arr := mrr * 12
		multiple := out.ImpliedValuation[0] / arr
		switch {
		case multiple < 10:
			out.RevenueAnalysis = fmt.Sprintf("Implied %.1fx ARR multiple - reasonable", multiple)
		case multiple < 30:
			out.RevenueAnalysis = fmt.Sprintf("Implied %.1fx ARR multiple - growth-stage pricing", multiple)
		default:
			out.RevenueAnalysis = fmt.Sprintf("Implied %.1fx ARR multiple - requires strong growth justification", multiple)
		}
	}
	if teamSize > 0 {
		out.TeamAnalysis = fmt.Sprintf("Team of %d vs expected %q for %s", teamSize, b.Team, b.Stage)
	}

	switch {
	case out.Status == "ABOVE_RANGE":
		out.Recommendation = fmt.Sprintf("Request detailed breakdown of use of funds and milestone plan for %s round.", b.Stage)
	case out.Status == "BELOW_RANGE":
		out.Recommendation = "Understand if conservative ask is strategic or indicates limited ambition."
	case mrr > 0:
		out.Recommendation = "Funding ask appears reasonable for stage. Validate unit economics and growth trajectory."
	default:
		out.Recommendation = "Evaluate pre-revenue metrics: engagement, waitlist, or pilot contracts."
	}
	return out
}

// readinessCriterion is one weighted axis of the deck grader.
type readinessCriterion struct {
	ID          string
	Name        string
	Weight      float64
	Description string
}

var readinessCriteria = []readinessCriterion{
	{"team", "Founding Team", 0.15, "Relevant experience, complementary skills, founder-market fit"},
	{"problem", "Problem Definition", 0.10, "Clear, significant pain point with evidence of market need"},
	{"solution", "Solution & Product", 0.10, "Innovative approach, clear value proposition, product demo/evidence"},
	{"market", "Market Opportunity", 0.12, "Large TAM, growing market, timing is right"},
	{"traction", "Traction & Metrics", 0.15, "Revenue, users, engagement, growth rate, key milestones"},
	{"business_model", "Business Model", 0.08, "Clear monetization, unit economics, path to profitability"},
	{"competition", "Competitive Landscape", 0.08, "Awareness of competition, differentiation, defensible moat"},
	{"go_to_market", "Go-to-Market Strategy", 0.07, "Customer acquisition strategy, channels, early wins"},
	{"financials", "Financial Projections", 0.05, "Realistic projections, key assumptions, use of funds"},
	{"ask", "The Ask", 0.05, "Clear funding request, reasonable valuation, milestone plan"},
	{"storytelling", "Pitch Quality", 0.05, "Compelling narrative, clear structure, professional design"},
}

type criterionScore struct {
	Criterion     string  `json:"criterion"`
	Score         int     `json:"score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
	Assessment    string  `json:"assessment"`
}

type weakArea struct {
	Area        string `json:"area"`
	Score       int    `json:"score"`
	Improvement string `json:"improvement"`
}

type strongArea struct {
	Area  string `json:"area"`
	Score int    `json:"score"`
}

// readinessReport is the grade_investment_readiness tool result.
type readinessReport struct {
	OverallScore      float64          `json:"overall_score"`
	Grade             string           `json:"grade"`
	Recommendation    string           `json:"recommendation"`
	Summary           string           `json:"summary"`
	Stage             string           `json:"stage"`
	CriteriaEvaluated int              `json:"criteria_evaluated"`
	MissingCriteria   []string         `json:"missing_criteria"`
	Breakdown         []criterionScore `json:"scores_breakdown"`
	StrongAreas       []strongArea     `json:"strong_areas"`
	WeakAreas         []weakArea       `json:"weak_areas"`
	TopPriorities     []string         `json:"top_priorities"`
}

// gradeReadiness scores a deck against the weighted criteria list. A zero or
// absent criterion score means the deck does not cover that axis; the weight
// is excluded rather than counted as a failure.
func gradeReadiness(scores map[string]int, stage string) readinessReport {
	if stage == "" {
		stage = "Seed"
	}
	report := readinessReport{Stage: stage}

	var weightedTotal, maxPossible float64
	for _, c := range readinessCriteria {
		score := scores[c.ID]
		if score == 0 {
			report.MissingCriteria = append(report.MissingCriteria, c.Name)
			continue
		}

		weighted := float64(score) * c.Weight
		weightedTotal += weighted
		maxPossible += 10 * c.Weight

		report.Breakdown = append(report.Breakdown, criterionScore{
			Criterion:     c.Name,
			Score:         score,
			Weight:        c.Weight,
			WeightedScore: math.Round(weighted*100) / 100,
			Assessment:    assessScore(score),
		})

		switch {
		case score <= 4:
			report.WeakAreas = append(report.WeakAreas, weakArea{Area: c.Name, Score: score, Improvement: c.Description})
		case score >= 8:
			report.StrongAreas = append(report.StrongAreas, strongArea{Area: c.Name, Score: score})
		}
	}

	if maxPossible > 0 {
		report.OverallScore = math.Round(weightedTotal/maxPossible*1000) / 10
	}
	report.CriteriaEvaluated = len(report.Breakdown)

	switch {
	case report.OverallScore >= 85:
		report.Grade, report.Recommendation = "A", "Strong Interest"
		report.Summary = "Exceptional deck. Meets or exceeds most VC criteria."
	case report.OverallScore >= 70:
		report.Grade, report.Recommendation = "B", "Promising"
		report.Summary = "Solid deck with some areas for improvement."
	case report.OverallScore >= 55:
		report.Grade, report.Recommendation = "C", "Consider"
		report.Summary = "Decent potential but significant gaps to address."
	case report.OverallScore >= 40:
		report.Grade, report.Recommendation = "D", "Pass"
		report.Summary = "Multiple weak areas. Not investment-ready."
	default:
		report.Grade, report.Recommendation = "F", "Strong Pass"
		report.Summary = "Fundamental issues across multiple criteria."
	}

	report.TopPriorities = readinessPriorities(report.WeakAreas, report.MissingCriteria)
	return report
}

func assessScore(score int) string {
	switch {
	case score >= 9:
		return "Exceptional"
	case score >= 7:
		return "Strong"
	case score >= 5:
		return "Adequate"
	case score >= 3:
		return "Weak"
	default:
		return "Critical Gap"
	}
}

// readinessPriorities picks at most three followups: missing sections first,
// then the weakest scored areas.
func readinessPriorities(weak []weakArea, missing []string) []string {
	var priorities []string
	for _, name := range missing {
		if len(priorities) == 2 {
			break
		}
		priorities = append(priorities, fmt.Sprintf("Add %s section to deck", name))
	}

	sorted := append([]weakArea(nil), weak...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	for _, area := range sorted {
		if len(priorities) == 3 {
			break
		}
		priorities = append(priorities, fmt.Sprintf("Strengthen %s: %s", area.Area, area.Improvement))
	}
	return priorities
}
