package retrieval

import "regexp"

// weights is one row of the §4.3.1 weighting table: how much each signal
// contributes to a candidate's merged score.
type weights struct {
	Personal  float64
	Authority float64
	Recency   float64
	ZPT       float64
}

// These are defaults derived from repo behaviour, not formally tuned
// contracts (spec.md §9 open question 3).
var (
	weightsFactual  = weights{Personal: 0.2, Authority: 0.5, Recency: 0.1, ZPT: 0.2}
	weightsPersonal = weights{Personal: 0.6, Authority: 0.1, Recency: 0.15, ZPT: 0.15}
	weightsTemporal = weights{Personal: 0.3, Authority: 0.35, Recency: 0.2, ZPT: 0.15}
	weightsDefault  = weights{Personal: 0.4, Authority: 0.25, Recency: 0.15, ZPT: 0.2}
)

var (
	factualLead  = regexp.MustCompile(`(?i)^\s*(who|when|where)\b`)
	firstPerson  = regexp.MustCompile(`(?i)\b(i|i'm|i've|i'll|my|mine|myself|me)\b`)
	properNoun   = regexp.MustCompile(`[A-Z][a-zA-Z]+`)
	temporalTerm = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last (year|month|week)|next (year|month|week)|recently|currently|now|in \d{4}|since \d{4})\b`)
)

// classify picks the §4.3.1 weighting row for question. Checks run in the
// table's listed order: a who/when/where lead with no first-person markers
// wins first, then first-person presence, then proper-noun+temporal, else
// the default row.
func classify(question string) weights {
	hasFirstPerson := firstPerson.MatchString(question)
	if factualLead.MatchString(question) && !hasFirstPerson {
		return weightsFactual
	}
	if hasFirstPerson {
		return weightsPersonal
	}
	// properNoun must match something past position 0 to avoid counting a
	// merely-capitalized sentence-initial word as a proper noun.
	hasProperNoun := false
	for _, loc := range properNoun.FindAllStringIndex(question, -1) {
		if loc[0] > 0 {
			hasProperNoun = true
			break
		}
	}
	if hasProperNoun && temporalTerm.MatchString(question) {
		return weightsTemporal
	}
	return weightsDefault
}
