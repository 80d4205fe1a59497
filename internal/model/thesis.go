package model

import (
	"fmt"
	"strings"
	"time"
)

// Thesis is the investor's stated strategy, one row per user. The council
// and the assistant both fold it into their prompts so every judgment is
// made relative to what the fund actually invests in.
type Thesis struct {
	UserID         string    `json:"user_id"`
	Text           string    `json:"thesis_text"`
	TargetSectors  []string  `json:"target_sectors,omitempty"`
	Geography      string    `json:"geography,omitempty"`
	CheckSizeMin   int64     `json:"check_size_min,omitempty"`
	CheckSizeMax   int64     `json:"check_size_max,omitempty"`
	PreferredStage string    `json:"preferred_stage,omitempty"`
	AntiThesis     string    `json:"anti_thesis,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Empty reports whether the thesis carries no guidance at all.
func (t Thesis) Empty() bool {
	return t.Text == "" && len(t.TargetSectors) == 0 && t.AntiThesis == ""
}

// PromptContext renders the thesis as a prompt block. Empty fields are
// omitted so the model never sees blank labels.
func (t Thesis) PromptContext() string {
	if t.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("INVESTOR THESIS:\n")
	if t.Text != "" {
		fmt.Fprintf(&b, "- Strategy: %s\n", t.Text)
	}
	if len(t.TargetSectors) > 0 {
		fmt.Fprintf(&b, "- Target sectors: %s\n", strings.Join(t.TargetSectors, ", "))
	}
	if t.Geography != "" {
		fmt.Fprintf(&b, "- Geography: %s\n", t.Geography)
	}
	if t.CheckSizeMin > 0 || t.CheckSizeMax > 0 {
		fmt.Fprintf(&b, "- Check size: $%d - $%d\n", t.CheckSizeMin, t.CheckSizeMax)
	}
	if t.PreferredStage != "" {
		fmt.Fprintf(&b, "- Preferred stage: %s\n", t.PreferredStage)
	}
	if t.AntiThesis != "" {
		fmt.Fprintf(&b, "- Will not invest in: %s\n", t.AntiThesis)
	}
	return b.String()
}
