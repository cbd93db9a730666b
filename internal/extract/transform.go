package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/plan2fund/fundextract/internal/model"
)

// meaningfulnessThreshold is the minimum score an item needs to be kept.
const meaningfulnessThreshold = 5

// rawResponse mirrors the JSON shape the provider is instructed to emit.
// Values are decoded loosely because providers routinely return numbers
// where strings are expected and vice versa.
type rawResponse struct {
	Metadata     rawMetadata          `json:"metadata"`
	Requirements map[string][]rawItem `json:"requirements"`
}

type rawMetadata struct {
	FundingAmountMin *float64 `json:"funding_amount_min"`
	FundingAmountMax *float64 `json:"funding_amount_max"`
	Currency         string   `json:"currency"`
	Deadline         string   `json:"deadline"`
	OpenDeadline     *bool    `json:"open_deadline"`
	ContactEmail     string   `json:"contact_email"`
	ContactPhone     string   `json:"contact_phone"`
	FundingTypes     []string `json:"funding_types"`
	ProgramFocus     []string `json:"program_focus"`
	Region           string   `json:"region"`
	Description      string   `json:"description"`
}

type rawItem struct {
	Type        string `json:"type"`
	Value       any    `json:"value"`
	Required    *bool  `json:"required"`
	Description string `json:"description"`
	Format      string `json:"format"`
}

// categoryRemap moves items into their canonical category based on the
// requirement type, regardless of where the provider filed them.
var categoryRemap = map[string]string{
	"application_process":       "application",
	"evaluation_criteria":       "application",
	"application_form":          "application",
	"application_requirement":   "application",
	"use_of_funds":              "funding_details",
	"capex_opex":                "funding_details",
	"revenue_model":             "funding_details",
	"market_size":               "funding_details",
	"co_financing":              "funding_details",
	"project_details":           "funding_details",
	"restrictions":              "restrictions",
	"intellectual_property":     "restrictions",
	"consortium":                "restrictions",
	"diversity":                 "restrictions",
	"success_metrics":           "terms",
	"repayment_terms":           "financial",
	"equity_terms":              "financial",
	"interest_rate":             "financial",
	"funding_rate":              "financial",
	"grant_ratio":               "financial",
	"minimum_investment_volume": "financial",
	"premium":                   "financial",
	"other_financial_benefits":  "financial",
	"guarantee_fee":             "financial",
	"guarantee_ratio":           "financial",
	"duration":                  "timeline",
	"application_window":        "timeline",
	"deadline_status":           "timeline",
}

// metadataOnlyTypes are facts that belong in metadata, never as
// requirement items. Providers emit them as requirements anyway.
var metadataOnlyTypes = map[string]bool{
	"currency":              true,
	"funding_amount_status": true,
	"funding_amount_min":    true,
	"funding_amount_max":    true,
	"deadline":              true,
	"open_deadline":         true,
}

var negativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^no\s+specific`),
	regexp.MustCompile(`(?i)^none\s+mentioned`),
	regexp.MustCompile(`(?i)^not\s+specified`),
	regexp.MustCompile(`(?i)^no\s+restrictions`),
	regexp.MustCompile(`(?i)^no\s+requirements`),
	regexp.MustCompile(`(?i)^none$`),
	regexp.MustCompile(`(?i)^n/a$`),
	regexp.MustCompile(`(?i)^na$`),
	regexp.MustCompile(`(?i)^not\s+applicable`),
	regexp.MustCompile(`(?i)^unknown$`),
}

// genericTokenPattern matches standalone booleans, size classes,
// currencies and funding-type keywords that carry no information as a
// requirement value on their own.
var genericTokenPattern = regexp.MustCompile(`(?i)^(yes|no|true|false|both|none|all|any|sme|startup|large|small|medium|eur|usd|gbp|chf|grant|loan|equity|guarantee|subsidy)$`)

var (
	technicalStandardPattern = regexp.MustCompile(`(?i)^(trl|iso|iec|en)\s*\d+`)
	pureNumberPattern        = regexp.MustCompile(`^\d+$`)
)

// Transform converts a decoded provider response into the canonical
// extraction result: junk filtering, category normalization, scoring,
// deduplication, company_type inference, and metadata defaults.
func Transform(raw *rawResponse, url string) *model.ExtractionResult {
	categorized := map[string][]model.RequirementItem{}
	seen := map[[3]string]bool{}

	for category, items := range raw.Requirements {
		for _, item := range items {
			value, ok := stringify(item.Value)
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if isNegativeInformation(value) {
				continue
			}
			if len(value) < 10 && !technicalStandardPattern.MatchString(value) && !pureNumberPattern.MatchString(value) {
				continue
			}

			typ := item.Type
			if typ == "" {
				typ = "general"
			}
			if metadataOnlyTypes[typ] {
				continue
			}
			if genericTokenPattern.MatchString(value) {
				continue
			}

			finalCategory := strings.ToLower(category)
			if remapped, ok := categoryRemap[typ]; ok {
				finalCategory = remapped
			}

			score := MeaningfulnessScore(value)
			if score < meaningfulnessThreshold {
				continue
			}

			key := [3]string{finalCategory, typ, value}
			if seen[key] {
				continue
			}
			seen[key] = true

			required := true
			if item.Required != nil {
				required = *item.Required
			}
			categorized[finalCategory] = append(categorized[finalCategory], model.RequirementItem{
				Type:                typ,
				Value:               value,
				Required:            required,
				Source:              model.SourceLLMExtraction,
				MeaningfulnessScore: score,
				Description:         item.Description,
				Format:              item.Format,
			})
		}
	}

	ensureCompanyType(categorized, raw, url)

	metadata := model.ExtractionMetadata{
		FundingAmountMin: raw.Metadata.FundingAmountMin,
		FundingAmountMax: raw.Metadata.FundingAmountMax,
		Currency:         raw.Metadata.Currency,
		Deadline:         raw.Metadata.Deadline,
		ContactEmail:     raw.Metadata.ContactEmail,
		ContactPhone:     raw.Metadata.ContactPhone,
		FundingTypes:     raw.Metadata.FundingTypes,
		ProgramFocus:     raw.Metadata.ProgramFocus,
		Region:           raw.Metadata.Region,
	}
	if metadata.Currency == "" {
		metadata.Currency = "EUR"
	}
	if metadata.FundingTypes == nil {
		metadata.FundingTypes = []string{}
	}
	if metadata.ProgramFocus == nil {
		metadata.ProgramFocus = []string{}
	}
	if raw.Metadata.OpenDeadline != nil {
		metadata.OpenDeadline = *raw.Metadata.OpenDeadline
	}
	// Rolling deadline by default: no date and no explicit statement
	// means the program is treated as open.
	if metadata.Deadline == "" && raw.Metadata.OpenDeadline == nil {
		metadata.OpenDeadline = true
	}

	return &model.ExtractionResult{
		CategorizedRequirements: categorized,
		Metadata:                metadata,
	}
}

// stringify renders a scalar JSON value as text. Objects and arrays in
// a value slot are provider noise and are dropped.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func isNegativeInformation(value string) bool {
	trimmed := strings.TrimSpace(value)
	for _, p := range negativePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// ensureCompanyType guarantees that eligibility always carries a
// company_type item, inferring one from the URL and metadata when the
// provider did not extract it.
func ensureCompanyType(categorized map[string][]model.RequirementItem, raw *rawResponse, url string) {
	for _, item := range categorized["eligibility"] {
		if item.Type == "company_type" {
			return
		}
	}

	allText := strings.ToLower(url + " " + raw.Metadata.Description + " " + strings.Join(raw.Metadata.ProgramFocus, " "))

	inferred := "Companies eligible for this program"
	switch {
	case strings.Contains(allText, "startup") || strings.Contains(allText, "start-up") || strings.Contains(allText, "accelerator"):
		inferred = "Startups and early-stage companies"
	case strings.Contains(allText, "sme") || strings.Contains(allText, "small and medium"):
		inferred = "Small and medium-sized enterprises (SMEs)"
	case strings.Contains(allText, "research") || strings.Contains(allText, "university"):
		inferred = "Research institutions and universities"
	case strings.Contains(allText, "large") || strings.Contains(allText, "enterprise"):
		inferred = "Large enterprises"
	}

	categorized["eligibility"] = append(categorized["eligibility"], model.RequirementItem{
		Type:                "company_type",
		Value:               inferred,
		Required:            true,
		Source:              model.SourceLLMInferred,
		MeaningfulnessScore: 50,
	})
}
