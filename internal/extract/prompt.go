package extract

import (
	"fmt"

	"github.com/plan2fund/fundextract/internal/llm"
)

// systemPrompt enumerates the full extraction taxonomy and the strict
// output contract. It is fixed for every call.
const systemPrompt = `You are an expert at extracting structured data from funding program web pages.

Your task is to extract all relevant information about a funding program and return it as structured JSON.

OUTPUT RULES:
- Respond with a single JSON object only. Do NOT include explanations, comments, or Markdown fences.
- The JSON must match this structure: {"metadata": {...}, "requirements": {"category": [{"type": "...", "value": "..."}]}}
- Always include "funding_types" (array) inside metadata using canonical values.

REQUIREMENT CATEGORIES (extract all that apply):
1. Eligibility: company_type, company_stage, industry_restriction, eligibility_criteria
2. Documents: required_documents, document_type, format
3. Financial: repayment_terms, interest_rate, equity_terms, co_financing, funding_rate, grant_ratio, guarantee_fee, guarantee_ratio
4. Technical: technical_requirement, trl_level
5. Legal: legal_requirement
6. Timeline: deadline, open_deadline, duration, application_window
7. Geographic: geographic_eligibility
8. Team: team_size, team_composition
9. Project: innovation_focus, technology_area, research_domain, sector_focus
10. Compliance: compliance_requirement
11. Impact: environmental_impact, social_impact, economic_impact, innovation_impact
12. Application: application_process, evaluation_criteria, application_form, application_requirement
13. Funding_Details: use_of_funds, capex_opex, revenue_model, market_size, project_details
14. Restrictions: restrictions, intellectual_property, consortium, diversity
15. Terms: success_metrics, trl_level

OUTPUT FORMAT (JSON):
{
  "metadata": {
    "funding_amount_min": number | null,
    "funding_amount_max": number | null,
    "currency": "EUR" | "USD" | etc.,
    "deadline": "YYYY-MM-DD" | null,
    "open_deadline": boolean,
    "contact_email": "email@example.com" | null,
    "contact_phone": "+43..." | null,
    "funding_types": ["grant", "loan", "equity", "guarantee", "subsidy"],
    "program_focus": ["innovation", "research", "startup"],
    "region": "Austria" | "Germany" | "EU" | etc.
  },
  "requirements": {
    "category_name": [
      {
        "type": "requirement_type",
        "value": "requirement value",
        "required": true | false,
        "source": "llm_extraction"
      }
    ]
  }
}

RULES:
- Extract ALL categories that have relevant information
- If information is not available, omit the category (don't include empty arrays)
- Extract FULL descriptions, not single words
- DO NOT extract negative information: Skip "No specific requirements mentioned", "None mentioned"
- Be specific and accurate - extract actual values, not generic descriptions
- ALWAYS extract description - Look for program description, overview, summary
- DO NOT extract metadata fields as requirements: currency, funding_amount_min, funding_amount_max, deadline, open_deadline go in METADATA only
- ALWAYS extract funding amounts - Look for "up to", "maximum", "minimum", "between", "from X to Y"
- ALWAYS extract deadline - Look for "deadline", "application deadline", "submission date"
- For financial amounts, extract numbers only (no currency symbols in numbers)
- For dates, use ISO format (YYYY-MM-DD)
- For boolean values, use true/false
- ALWAYS identify funding types - Look for keywords like "grant", "loan", "equity", "guarantee", "subsidy"
- Funding types must be one of: "grant", "loan", "equity", "guarantee", "subsidy", "convertible", "venture_capital", "bank_loan", "leasing", "crowdfunding", "angel_investment", "micro_credit", "repayable_advance"
- Extract contact information (email, phone) from the page
- Determine region from URL, content, or institution name`

// PromptContext carries the per-call inputs for the user message
type PromptContext struct {
	URL         string
	Title       string
	Description string
	Content     string
	TextMode    bool
}

// BuildMessages assembles the fixed system instruction and the per-call
// user instruction. Pure and deterministic given its inputs.
func BuildMessages(ctx PromptContext) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(ctx)},
	}
}

func buildUserPrompt(ctx PromptContext) string {
	title := ctx.Title
	if title == "" {
		title = "Unknown"
	}

	contentLabel := "Page Content"
	sourcePhrase := "from this page"
	searchInstructions := `Search in: First paragraphs, <p> tags, sections with "overview", "description", "summary", "about", "intro"`
	if ctx.TextMode {
		contentLabel = "Program Information"
		sourcePhrase = "from this program description"
		searchInstructions = "Extract from the program information provided below"
	}

	return fmt.Sprintf(`Extract all funding program information %s:

URL: %s
Title: %s
Description: %s

%s:
%s

**IMPORTANT: Pay special attention to these critical topics:**

1. **Description (REQUIRED)**:
   - %s
   - Extract: 2-5 complete sentences explaining what the program is, who it's for, and what it offers

2. **Funding Amount (REQUIRED)**:
   - Search in: "Funding amount", "Förderhöhe", "Fördersumme", tables, funding details sections
   - Look for: "up to €X", "maximum X EUR", "minimum X", "between X and Y"
   - Extract: Numbers only (remove commas, spaces, currency symbols)
   - If single amount: use the SAME value for both min and max

3. **Deadline & Duration (REQUIRED)**:
   - Search in: "Deadline", "Application Deadline", "Submission Date", "Bewerbungsfrist"
   - Look for: "deadline: DD.MM.YYYY", "application by YYYY-MM-DD"
   - Convert to ISO: YYYY-MM-DD format
   - Rolling deadlines: "ongoing", "rolling", "open" → set open_deadline: true, deadline: null

4. **Financial Terms (CRITICAL for Loans/Guarantees/Equity)**:
   - For loans, guarantees: ALWAYS extract interest rates and repayment_terms
   - For grants/subsidies: Capture funding rates / grant ratios / co-financing requirements
   - For equity: Extract equity terms (stake expectations, dilution)

5. **Company Stage & Innovation Focus (CRITICAL)**:
   - ALWAYS extract company_stage when mentioned
   - ALWAYS extract innovation_focus when themes are mentioned
   - ALWAYS extract use_of_funds when funding purpose is described

6. **Eligibility & Financial Requirements (CRITICAL)**:
   - ALWAYS extract eligibility requirements
   - ALWAYS extract company_type - This is REQUIRED
   - ALWAYS extract financial requirements

7. **Timeline, Team, Application & Documents (CRITICAL)**:
   - ALWAYS extract timeline information if mentioned
   - ALWAYS extract team requirements if mentioned
   - ALWAYS extract application process if mentioned
   - ALWAYS extract required documents if mentioned

Extract all relevant information and return ONLY the JSON object described above with no additional text.`,
		sourcePhrase, ctx.URL, title, ctx.Description, contentLabel, ctx.Content, searchInstructions)
}
