package extract

import (
	"regexp"
	"strings"
)

// Single words, acronyms, booleans and bare keywords carry no
// standalone meaning as a requirement value.
var singleWordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(yes|no|true|false|both|none|all|any)$`),
	regexp.MustCompile(`(?i)^(sme|startup|large|small|medium)$`),
	regexp.MustCompile(`(?i)^(eur|usd|gbp|chf)$`),
	regexp.MustCompile(`(?i)^(grant|loan|equity|guarantee|subsidy)$`),
	regexp.MustCompile(`^[A-Z]{2,10}$`),
}

var scoreNegativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^no\s+specific`),
	regexp.MustCompile(`(?i)^none\s+mentioned`),
	regexp.MustCompile(`(?i)^not\s+specified`),
}

var (
	hasNumbersPattern      = regexp.MustCompile(`\d`)
	specificTermsPattern   = regexp.MustCompile(`(?i)(must|required|minimum|maximum|at least|at most|between|from|to|within|deadline|duration|years?|months?|days?|percent|%)`)
	actionableTermsPattern = regexp.MustCompile(`(?i)(submit|provide|include|attach|complete|fill|upload|send|apply|register)`)
	quantifiersPattern     = regexp.MustCompile(`(?i)(\d+\s*(eur|usd|%|years?|months?|days?|employees?|members?|pages?|documents?))`)
	geographicPattern      = regexp.MustCompile(`(?i)(based in|located in|headquarters in|registered in|from|eligible in|must be in)`)
	genericPhrasePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(general|common|standard|typical|usual|basic)$`),
		regexp.MustCompile(`(?i)^(see|check|contact|refer|visit|click)$`),
	}
)

// MeaningfulnessScore rates how informative a requirement value is,
// from 0 (junk) to 100. Deterministic, no provider involved.
func MeaningfulnessScore(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	for _, p := range singleWordPatterns {
		if p.MatchString(trimmed) {
			return 0
		}
	}
	for _, p := range scoreNegativePatterns {
		if p.MatchString(trimmed) {
			return 0
		}
	}

	length := len(trimmed)
	isTechnicalStandard := technicalStandardPattern.MatchString(trimmed)
	isNumber := pureNumberPattern.MatchString(trimmed)

	if length < 10 && !isTechnicalStandard && !isNumber {
		return max(0, length*2)
	}

	score := min(50, length/2)

	if hasNumbersPattern.MatchString(trimmed) {
		score += 20
	}
	if specificTermsPattern.MatchString(trimmed) {
		score += 20
	}
	if actionableTermsPattern.MatchString(trimmed) {
		score += 10
	}
	if quantifiersPattern.MatchString(trimmed) {
		score += 15
	}
	if geographicPattern.MatchString(trimmed) {
		score += 15
	}

	for _, p := range genericPhrasePatterns {
		if p.MatchString(trimmed) {
			score = max(0, score-20)
			break
		}
	}

	return min(100, max(0, score))
}
