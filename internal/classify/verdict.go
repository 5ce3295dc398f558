package classify

import (
	"encoding/json"
	"errors"
)

// Verdict is the outcome of a classification. It has exactly two shapes,
// built with Positive and Negative; the zero value is Negative.
type Verdict struct {
	suspected  bool
	suggestion string
}

// Positive returns a bribe-suspected verdict carrying advice for the user.
func Positive(suggestion string) Verdict {
	return Verdict{suspected: true, suggestion: suggestion}
}

// Negative returns the no-bribe verdict.
func Negative() Verdict {
	return Verdict{}
}

// Suspected reports whether bribery indicators were detected.
func (v Verdict) Suspected() bool { return v.suspected }

// Suggestion returns the advice text. It is empty for a negative verdict.
func (v Verdict) Suggestion() string { return v.suggestion }

type verdictJSON struct {
	IsBribe    bool   `json:"is_bribe"`
	Suggestion string `json:"suggestion,omitempty"`
}

// MarshalJSON renders {"is_bribe": true, "suggestion": "..."} or
// {"is_bribe": false}.
func (v Verdict) MarshalJSON() ([]byte, error) {
	out := verdictJSON{IsBribe: v.suspected}
	if v.suspected {
		out.Suggestion = v.suggestion
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the shape MarshalJSON produces. A positive verdict
// without a suggestion is rejected.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var in verdictJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if !in.IsBribe {
		*v = Negative()
		return nil
	}
	if in.Suggestion == "" {
		return errors.New("classify: positive verdict without suggestion")
	}
	*v = Positive(in.Suggestion)
	return nil
}
