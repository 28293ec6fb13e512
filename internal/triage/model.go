package triage

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/sift/internal/intake"
)

// Action records how the verifier treated the deterministic proposal.
type Action string

const (
	// ActionConfirmed means the proposal was kept as-is.
	ActionConfirmed Action = "confirmed"

	// ActionAdjusted means the verifier changed part of the proposal.
	ActionAdjusted Action = "adjusted"

	// ActionOverridden means the verifier replaced the proposal.
	ActionOverridden Action = "overridden"
)

// Valid reports whether a is a member of the closed action set.
func (a Action) Valid() bool {
	switch a {
	case ActionConfirmed, ActionAdjusted, ActionOverridden:
		return true
	}
	return false
}

// TriagedBy identifies which layer produced the current result.
type TriagedBy string

const (
	// TriagedByAI means the verifier's classification was emitted.
	TriagedByAI TriagedBy = "ai-verified"

	// TriagedByDeterministic means verification was skipped and the
	// deterministic proposal was emitted directly.
	TriagedByDeterministic TriagedBy = "deterministic"

	// TriagedByUser means a correction replaced the result.
	TriagedByUser TriagedBy = "user"
)

// EstimatedTime is the closed set of handling-time estimates.
type EstimatedTime string

const (
	EstimateFiveMin    EstimatedTime = "5min"
	EstimateFifteenMin EstimatedTime = "15min"
	EstimateThirtyMin  EstimatedTime = "30min"
	EstimateOneHour    EstimatedTime = "1hr"
	EstimateTwoPlus    EstimatedTime = "2hr+"
)

// Valid reports whether e is empty or a member of the closed set.
func (e EstimatedTime) Valid() bool {
	switch e {
	case "", EstimateFiveMin, EstimateFifteenMin, EstimateThirtyMin, EstimateOneHour, EstimateTwoPlus:
		return true
	}
	return false
}

// DeterministicContext is everything the non-AI layers concluded about
// an item: entities, neighbors, fired rules, and the resulting proposal.
// Empty ProposedCategory/ProposedPriority mean "no deterministic signal".
type DeterministicContext struct {
	Entities         intake.ExtractedEntities `json:"entities"`
	SimilarItems     []intake.SimilarItem     `json:"similar_items"`
	RuleMatches      []string                 `json:"rule_matches"`
	ProposedCategory intake.Category          `json:"proposed_category,omitempty"`
	ProposedPriority intake.Priority          `json:"proposed_priority,omitempty"`
	Confidence       float64                  `json:"confidence"`
}

// Classification is the verifier's structured output.
type Classification struct {
	Action         Action          `json:"action"`
	Category       intake.Category `json:"category"`
	Priority       intake.Priority `json:"priority"`
	QuickWin       bool            `json:"quick_win"`
	QuickWinReason string          `json:"quick_win_reason,omitempty"`
	EstimatedTime  EstimatedTime   `json:"estimated_time,omitempty"`
	Confidence     int             `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
}

// Validate checks all fields against their closed sets. The oracle
// contract guarantees a well-formed Classification or an explicit
// failure; this is where "well-formed" is enforced.
func (c *Classification) Validate() error {
	if !c.Action.Valid() {
		return fmt.Errorf("invalid action %q", c.Action)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("invalid category %q", c.Category)
	}
	if !c.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", c.Priority)
	}
	if !c.EstimatedTime.Valid() {
		return fmt.Errorf("invalid estimated_time %q", c.EstimatedTime)
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range 0..100", c.Confidence)
	}
	if c.Reasoning == "" {
		return fmt.Errorf("empty reasoning")
	}
	return nil
}

// Result is the persisted triage outcome for an item, including a
// snapshot of the signals that produced it. At most one current Result
// exists per item id; corrections mutate it in place.
type Result struct {
	ID             string          `json:"id"`
	Zone           string          `json:"zone,omitempty"`
	Category       intake.Category `json:"category"`
	Priority       intake.Priority `json:"priority"`
	QuickWin       bool            `json:"quick_win"`
	QuickWinReason string          `json:"quick_win_reason,omitempty"`
	EstimatedTime  EstimatedTime   `json:"estimated_time,omitempty"`
	Confidence     int             `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	Action         Action          `json:"action"`
	TriagedBy      TriagedBy       `json:"triaged_by"`

	// Signal snapshot for auditability.
	Entities     intake.ExtractedEntities `json:"entities"`
	SimilarItems []intake.SimilarItem     `json:"similar_items"`
	RuleMatches  []string                 `json:"rule_matches"`

	TriagedAt time.Time `json:"triaged_at"`
}

// CorrectionRecord is one user correction. Append-only: never mutated or
// deleted once written.
type CorrectionRecord struct {
	ID                string           `json:"id"`
	IntakeID          string           `json:"intake_id"`
	Zone              string           `json:"zone,omitempty"`
	OriginalCategory  *intake.Category `json:"original_category,omitempty"`
	OriginalPriority  *intake.Priority `json:"original_priority,omitempty"`
	CorrectedCategory intake.Category  `json:"corrected_category"`
	CorrectedPriority intake.Priority  `json:"corrected_priority"`
	Reason            string           `json:"reason,omitempty"`
	CorrectedAt       time.Time        `json:"corrected_at"`
}

// CorrectionRequest is a caller-supplied correction of a prior result.
type CorrectionRequest struct {
	IntakeID          string           `json:"intake_id"`
	OriginalCategory  *intake.Category `json:"original_category,omitempty"`
	OriginalPriority  *intake.Priority `json:"original_priority,omitempty"`
	CorrectedCategory intake.Category  `json:"corrected_category"`
	CorrectedPriority intake.Priority  `json:"corrected_priority"`
	Reason            string           `json:"reason,omitempty"`
}

// CorrectionOutcome reports what a correction changed.
type CorrectionOutcome struct {
	Status        string `json:"status"`
	CorrectionID  string `json:"correction_id"`
	IntakeID      string `json:"intake_id"`
	Original      string `json:"original"`
	CorrectedTo   string `json:"corrected_to"`
	TriageUpdated bool   `json:"triage_updated"`
}

// Health is the service health snapshot surfaced by the API.
type Health struct {
	Status     string `json:"status"`
	Model      string `json:"ner_model"`
	IndexItems int    `json:"index_items"`
	Version    string `json:"version"`
}
