package triage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/intake"
)

// Oracle is the external classification capability. It returns either a
// well-formed Classification or an explicit error; there is no
// almost-valid output to repair at this layer.
type Oracle interface {
	Classify(ctx context.Context, prompt string) (*Classification, error)
}

const (
	// maxSimilarInPrompt caps how many neighbors the prompt shows.
	maxSimilarInPrompt = 3

	// maxCorrectionsInPrompt caps how many recent corrections feed the
	// learning hint.
	maxCorrectionsInPrompt = 5

	// maxBodyPreview caps the body excerpt shown to the oracle.
	maxBodyPreview = 500

	// defaultOracleTimeout bounds a single verification call.
	defaultOracleTimeout = 60 * time.Second
)

// Verifier asks the oracle to confirm or adjust a deterministic
// proposal. It is the terminal error boundary of the pipeline: any
// oracle failure degrades to the deterministic fallback, never an error.
type Verifier struct {
	oracle  Oracle
	logger  log.Logger
	timeout time.Duration
}

// NewVerifier creates a Verifier. A zero timeout selects the default.
func NewVerifier(oracle Oracle, logger log.Logger, timeout time.Duration) *Verifier {
	if logger == nil {
		logger = log.Nop()
	}
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &Verifier{oracle: oracle, logger: logger, timeout: timeout}
}

// Verify builds the classification prompt from the item and its
// deterministic context and calls the oracle. On any failure it returns
// the deterministic fallback and reports that it fell back.
func (v *Verifier) Verify(ctx context.Context, item *intake.Item, dc *DeterministicContext) (*Classification, bool) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	prompt := buildPrompt(item, dc)

	cls, err := v.oracle.Classify(ctx, prompt)
	if err != nil {
		v.logger.Warn(ctx, "oracle classification failed, using deterministic fallback",
			"intake_id", item.ID,
			"error", err.Error(),
		)
		return Fallback(dc, err), true
	}
	return cls, false
}

// VerifyWithCorrections renders recent user corrections into the
// rule-match list as a learning hint, then delegates to Verify. Failure
// semantics are unchanged.
func (v *Verifier) VerifyWithCorrections(ctx context.Context, item *intake.Item, dc *DeterministicContext, recent []CorrectionRecord) (*Classification, bool) {
	if len(recent) == 0 {
		return v.Verify(ctx, item, dc)
	}
	if len(recent) > maxCorrectionsInPrompt {
		recent = recent[:maxCorrectionsInPrompt]
	}

	hinted := *dc
	hinted.RuleMatches = append(append([]string{}, dc.RuleMatches...), correctionHints(recent)...)
	return v.Verify(ctx, item, &hinted)
}

// Fallback converts the deterministic context into a Classification for
// when the oracle is unavailable. Missing proposals default to
// Action-Required/P2; confidence is rescaled to 0-100.
func Fallback(dc *DeterministicContext, cause error) *Classification {
	category := dc.ProposedCategory
	if category == "" {
		category = intake.CategoryActionRequired
	}
	priority := dc.ProposedPriority
	if priority == "" {
		priority = intake.PriorityP2
	}

	return &Classification{
		Action:     ActionConfirmed,
		Category:   category,
		Priority:   priority,
		QuickWin:   false,
		Confidence: int(math.Round(dc.Confidence * 100)),
		Reasoning:  fmt.Sprintf("AI classification failed, using deterministic: %v", cause),
	}
}

func correctionHints(recent []CorrectionRecord) []string {
	hints := make([]string, 0, len(recent))
	for _, c := range recent {
		hint := fmt.Sprintf("correction: %s/%s → %s/%s",
			orUnknown(c.OriginalCategory), orUnknown(c.OriginalPriority),
			c.CorrectedCategory, c.CorrectedPriority,
		)
		if c.Reason != "" {
			hint += " (reason: " + c.Reason + ")"
		}
		hints = append(hints, hint)
	}
	return hints
}

func orUnknown[T ~string](v *T) string {
	if v == nil || *v == "" {
		return "unknown"
	}
	return string(*v)
}

// buildPrompt renders the item and deterministic analysis for the
// oracle, mirroring what each pipeline layer concluded.
func buildPrompt(item *intake.Item, dc *DeterministicContext) string {
	var entityParts []string
	if len(dc.Entities.People) > 0 {
		entityParts = append(entityParts, "People: "+strings.Join(dc.Entities.People, ", "))
	}
	if len(dc.Entities.Organizations) > 0 {
		entityParts = append(entityParts, "Organizations: "+strings.Join(dc.Entities.Organizations, ", "))
	}
	if len(dc.Entities.Dates) > 0 {
		entityParts = append(entityParts, "Dates: "+strings.Join(dc.Entities.Dates, ", "))
	}
	if len(dc.Entities.Times) > 0 {
		entityParts = append(entityParts, "Times: "+strings.Join(dc.Entities.Times, ", "))
	}
	if len(dc.Entities.UrgencyCues) > 0 {
		entityParts = append(entityParts, "Urgency cues: "+strings.Join(dc.Entities.UrgencyCues, ", "))
	}
	entitiesText := "No entities extracted"
	if len(entityParts) > 0 {
		entitiesText = strings.Join(entityParts, "\n")
	}

	similarText := "No similar items found"
	if len(dc.SimilarItems) > 0 {
		var similarParts []string
		for i, sim := range dc.SimilarItems {
			if i >= maxSimilarInPrompt {
				break
			}
			subject := sim.Subject
			if subject == "" {
				subject = "No subject"
			}
			line := fmt.Sprintf("  - %q (%.0f%% similar)", subject, sim.Similarity*100)
			if sim.Category != "" {
				line += fmt.Sprintf(" → %s/%s", sim.Category, sim.Priority)
			}
			similarParts = append(similarParts, line)
		}
		similarText = strings.Join(similarParts, "\n")
	}

	rulesText := "No rules matched"
	if len(dc.RuleMatches) > 0 {
		rulesText = strings.Join(dc.RuleMatches, ", ")
	}

	proposedCategory := "Unknown"
	if dc.ProposedCategory != "" {
		proposedCategory = string(dc.ProposedCategory)
	}
	proposedPriority := string(intake.PriorityP2)
	if dc.ProposedPriority != "" {
		proposedPriority = string(dc.ProposedPriority)
	}

	fromName := item.FromName
	if fromName == "" {
		fromName = "unknown"
	}
	fromAddr := item.FromAddress
	if fromAddr == "" {
		fromAddr = "unknown"
	}
	subject := item.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	body := truncateRunes(item.Body, maxBodyPreview)
	ellipsis := ""
	if body != item.Body {
		ellipsis = "..."
	}

	return fmt.Sprintf(`You are verifying a triage classification for an intake item.

ITEM DETAILS:
- Source: %s (%s)
- Zone: %s
- From: %s <%s>
- Subject: %s
- Body preview: %s%s

DETERMINISTIC ANALYSIS:

1. Entity Extraction:
%s

2. Similarity Search:
%s

3. Rule Matches:
%s

PROPOSED CLASSIFICATION:
Category: %s
Priority: %s
Confidence: %.0f%%

CATEGORIES:
- Action-Required: Needs response/action from recipient
- FYI: Informational only, no action needed
- Awaiting-Reply: Waiting on someone else
- Delegated: Handed off to someone
- Scheduled: Has a specific time/date
- Reference: Keep for later reference

PRIORITIES:
- P0: Emergency/Critical (immediate action)
- P1: High (today/urgent)
- P2: Normal (this week)
- P3: Low (when convenient)

Verify or adjust the proposed classification. Respond with ONLY a JSON object:
{
    "action": "confirmed|adjusted|overridden",
    "category": "<category>",
    "priority": "<priority>",
    "quick_win": true/false,
    "quick_win_reason": "<reason if quick win, otherwise empty>",
    "estimated_time": "5min|15min|30min|1hr|2hr+",
    "confidence": <0-100>,
    "reasoning": "<one sentence explaining your decision>"
}`,
		item.Source, item.Type,
		item.Zone,
		fromName, fromAddr,
		subject,
		body, ellipsis,
		entitiesText,
		similarText,
		rulesText,
		proposedCategory,
		proposedPriority,
		dc.Confidence*100,
	)
}

// truncateRunes caps s at n runes so a multibyte character is never
// split at the cut.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for pos := range s {
		if count == n {
			return s[:pos]
		}
		count++
	}
	return s
}
