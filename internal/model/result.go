package model

// ExtractionMetadata holds program-level facts extracted alongside the
// categorized requirements. Amount bounds are pointers so "not found" is
// distinguishable from zero.
type ExtractionMetadata struct {
	FundingAmountMin *float64 `json:"funding_amount_min"`
	FundingAmountMax *float64 `json:"funding_amount_max"`
	Currency         string   `json:"currency"`
	Deadline         string   `json:"deadline,omitempty"` // ISO date (YYYY-MM-DD)
	OpenDeadline     bool     `json:"open_deadline"`
	ContactEmail     string   `json:"contact_email,omitempty"`
	ContactPhone     string   `json:"contact_phone,omitempty"`
	FundingTypes     []string `json:"funding_types"`
	ProgramFocus     []string `json:"program_focus,omitempty"`
	Region           string   `json:"region,omitempty"`
}

// ExtractionResult is the unit returned to the caller for one extraction
// call. It is constructed fresh per call and never mutated after being
// returned; the requesting URL is a caller-side correlation key and is not
// stored on the value itself.
type ExtractionResult struct {
	CategorizedRequirements map[string][]RequirementItem `json:"categorized_requirements"`
	Metadata                ExtractionMetadata           `json:"metadata"`
}

// TotalRequirements counts retained items across all categories
func (r *ExtractionResult) TotalRequirements() int {
	total := 0
	for _, items := range r.CategorizedRequirements {
		total += len(items)
	}
	return total
}
