// Package validate scores extraction results for completeness. The
// score is advisory: a low score is logged, never fatal.
package validate

import (
	"github.com/plan2fund/fundextract/internal/model"
)

// ValidScore is the minimum quality score considered acceptable.
const ValidScore = 60

// Report summarizes the completeness of one extraction result.
type Report struct {
	Score   int      `json:"score"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

// Check scores a result from 100 downward, penalizing each missing
// high-value field. Missing lists the shortfalls in penalty order.
func Check(result *model.ExtractionResult) Report {
	score := 100
	var missing []string

	if result.Metadata.FundingAmountMin == nil && result.Metadata.FundingAmountMax == nil {
		score -= 20
		missing = append(missing, "funding_amount")
	}
	if result.Metadata.Deadline == "" {
		score -= 10
		missing = append(missing, "deadline")
	}
	if len(result.Metadata.FundingTypes) == 0 {
		score -= 15
		missing = append(missing, "funding_types")
	}

	total := result.TotalRequirements()
	switch {
	case total == 0:
		score -= 30
		missing = append(missing, "requirements")
	case total < 3:
		score -= 15
		missing = append(missing, "requirements")
	}

	if len(result.CategorizedRequirements["geographic"]) == 0 {
		score -= 10
		missing = append(missing, "geographic")
	}
	if len(result.CategorizedRequirements["eligibility"]) == 0 {
		score -= 10
		missing = append(missing, "eligibility")
	}

	if total > 0 {
		meaningful := 0
		for _, items := range result.CategorizedRequirements {
			for _, item := range items {
				if item.MeaningfulnessScore >= 20 {
					meaningful++
				}
			}
		}
		if meaningful*2 < total {
			score -= 10
			missing = append(missing, "meaningfulness")
		}
	}

	if score < 0 {
		score = 0
	}
	return Report{Score: score, Valid: score >= ValidScore, Missing: missing}
}
