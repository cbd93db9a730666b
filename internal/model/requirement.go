package model

// Provenance values for extracted requirements
const (
	SourceLLMExtraction = "llm_extraction"
	SourceLLMInferred   = "llm_extraction_inferred"
)

// Categories is the fixed requirement taxonomy. Requirement categories and
// type labels produced by the transformer are always drawn from this set so
// downstream eligibility scoring can pattern-match reliably.
var Categories = []string{
	"eligibility",
	"documents",
	"financial",
	"technical",
	"legal",
	"timeline",
	"geographic",
	"team",
	"project",
	"compliance",
	"impact",
	"application",
	"funding_details",
	"restrictions",
	"terms",
}

// RequirementItem is one extracted fact about a funding program
type RequirementItem struct {
	// Type is a category-scoped label (e.g. "company_stage", "repayment_terms")
	Type string `json:"type"`

	// Value is the extracted text; never empty and never a bare generic token
	Value string `json:"value"`

	// Required reports whether the program treats this as mandatory
	Required bool `json:"required"`

	// Source is "llm_extraction" or "llm_extraction_inferred"
	Source string `json:"source,omitempty"`

	// MeaningfulnessScore rates how substantive the value is (0-100)
	MeaningfulnessScore int `json:"meaningfulness_score"`

	// Description and Format are optional free text echoed from the provider
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}
