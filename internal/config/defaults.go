package config

// Classifier and complaint text defaults. Deployments for other
// jurisdictions override these through the config file or environment.
const (
	DefaultMarker     = "BRIBE"
	DefaultSafeMarker = "SAFE"
	DefaultSuggestion = "Ask: Sir, can you give me a receipt for this extra fee?"

	DefaultComplaintTitle = "FORMAL VIGILANCE COMPLAINT"
	DefaultLocation       = "Kurnool RTO (Detected via PramaanX)"
	DefaultRecipient      = "The Vigilance Officer / Anti-Corruption Bureau"
	DefaultCitation       = "This demand for 'extra money' violates Section 7 of the Prevention of Corruption Act, 1988 (Amended 2018)."
	DefaultAction         = "Immediate Investigation."
)

// DefaultTerms is the closed list of indicator terms embedded in the
// classification prompt.
var DefaultTerms = []string{"money", "cash", "500", "lunch", "chai", "extra", "agent", "pay"}
