package model

// Enrichment is the factual field record attached to a document. It is
// populated by metadata extraction at upload time and refined by research
// and consensus results later. Fields are flat strings on purpose: values
// arrive from LLM output and search snippets, and the dashboard renders
// them verbatim.
type Enrichment struct {
	Tagline       string `json:"tagline,omitempty"`
	Description   string `json:"description,omitempty"`
	Country       string `json:"country,omitempty"`
	Industry      string `json:"industry,omitempty"`
	BusinessModel string `json:"business_model,omitempty"`
	Stage         string `json:"stage,omitempty"`
	FundingAsk    string `json:"funding_ask,omitempty"`
	TAM           string `json:"tam,omitempty"`
	SAM           string `json:"sam,omitempty"`
	SOM           string `json:"som,omitempty"`
	TeamSize      int    `json:"team_size,omitempty"`
	Email         string `json:"email,omitempty"`
	Website       string `json:"website,omitempty"`
}

// MergeEnrichment folds the given sources left to right: a later non-empty
// value wins per field, an empty value never clobbers an earlier one. The
// pipeline calls it with (extraction, research, consensus) in that order,
// which is what guarantees an extraction-time TAM survives a research or
// consensus pass that found nothing.
func MergeEnrichment(sources ...Enrichment) Enrichment {
	var out Enrichment
	for _, src := range sources {
		out.Tagline = override(out.Tagline, src.Tagline)
		out.Description = override(out.Description, src.Description)
		out.Country = override(out.Country, src.Country)
		out.Industry = override(out.Industry, src.Industry)
		out.BusinessModel = override(out.BusinessModel, src.BusinessModel)
		out.Stage = override(out.Stage, src.Stage)
		out.FundingAsk = override(out.FundingAsk, src.FundingAsk)
		out.TAM = override(out.TAM, src.TAM)
		out.SAM = override(out.SAM, src.SAM)
		out.SOM = override(out.SOM, src.SOM)
		out.Email = override(out.Email, src.Email)
		out.Website = override(out.Website, src.Website)
		if src.TeamSize > 0 {
			out.TeamSize = src.TeamSize
		}
	}
	return out
}

func override(current, next string) string {
	if next != "" {
		return next
	}
	return current
}

// Empty reports whether no field carries a value.
func (e Enrichment) Empty() bool {
	return e == Enrichment{}
}
