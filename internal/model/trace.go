package model

// Method names the cascade stage that produced a reconciled label
type Method string

const (
	MethodEmpty           Method = "empty"
	MethodExact           Method = "exact"
	MethodSynonymExisting Method = "synonym_existing"
	MethodSynonymNew      Method = "synonym_new"
	MethodModel           Method = "model"
	MethodFuzzy           Method = "fuzzy"
	MethodKeepProposed    Method = "keep_proposed"
)

// Stage outcomes recorded in a trace
const (
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeSkipped = "skipped"
)

// Attempt records one stage of the cascade
type Attempt struct {
	Stage     string   `json:"stage"`
	Outcome   string   `json:"outcome"`
	Score     *float64 `json:"score,omitempty"`
	Candidate string   `json:"candidate,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Trace explains how a proposed label was reconciled
type Trace struct {
	Proposed   string     `json:"proposed"`
	Key        string     `json:"key"`
	Existing   []string   `json:"existing"` // Deduplicated candidates, first-seen order
	Method     Method     `json:"method"`
	Final      string     `json:"final"`
	Family     string     `json:"family,omitempty"` // Synonym family when one matched
	Semantic   *float64   `json:"semantic_best"`    // nil when the embedding backend was not consulted or unavailable
	Fuzzy      *float64   `json:"fuzzy_best"`       // nil when the fuzzy stage did not run
	Thresholds Thresholds `json:"thresholds"`
	ModelID    string     `json:"model,omitempty"`
	Attempts   []Attempt  `json:"attempts"`
}

// Record appends a stage attempt
func (t *Trace) Record(a Attempt) {
	t.Attempts = append(t.Attempts, a)
}

// Score returns a pointer to a copy of v, for optional score fields
func Score(v float64) *float64 {
	return &v
}
