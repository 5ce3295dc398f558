package classify

import "strings"

// Outcome is how a raw model response was read.
type Outcome int

const (
	// OutcomeNegative means the response carried the safe marker and not
	// the detection marker.
	OutcomeNegative Outcome = iota
	// OutcomePositive means the response contained the detection marker.
	OutcomePositive
	// OutcomeUnrecognized means the response matched neither marker. It is
	// treated as negative.
	OutcomeUnrecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomePositive:
		return "positive"
	case OutcomeNegative:
		return "negative"
	default:
		return "unrecognized"
	}
}

// ParseResponse reads a raw model response. Matching is case-insensitive
// and position-independent; the detection marker wins over the safe marker.
func ParseResponse(raw, marker, safeMarker string) Outcome {
	folded := strings.ToUpper(raw)
	if marker != "" && strings.Contains(folded, strings.ToUpper(marker)) {
		return OutcomePositive
	}
	if safeMarker != "" && strings.Contains(folded, strings.ToUpper(safeMarker)) {
		return OutcomeNegative
	}
	return OutcomeUnrecognized
}

// Result is the outcome of a single inference call at the provider
// boundary: either raw text or the error that prevented it.
type Result struct {
	Raw string
	Err error
}

// Recover is the fail-safe step. A failed inference becomes the negative
// verdict with recovered set; a successful one is handed to decide.
func Recover(res Result, decide func(raw string) Verdict) (v Verdict, recovered bool) {
	if res.Err != nil {
		return Negative(), true
	}
	return decide(res.Raw), false
}
