package triage

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/linnemanlabs/sift/internal/intake"
)

// urgentKeywords is the fixed substring list for the urgent-keyword rule.
var urgentKeywords = []string{
	"urgent", "asap", "immediately", "emergency",
	"critical", "deadline", "today", "eod",
}

// newsletterPatterns match bulk senders and bulk-mail body markers.
var newsletterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`noreply@`),
	regexp.MustCompile(`newsletter@`),
	regexp.MustCompile(`digest@`),
	regexp.MustCompile(`no-reply@`),
	regexp.MustCompile(`unsubscribe`),
}

// shortQuestionMaxLen bounds the short-question rule.
const shortQuestionMaxLen = 500

// RuleResult is the outcome of one rule-battery evaluation. Empty
// Category/Priority mean no rule proposed one.
type RuleResult struct {
	Matches    []string
	Category   intake.Category
	Priority   intake.Priority
	Confidence float64
}

// RuleEngine evaluates a fixed, ordered battery of heuristics over an
// item and its extracted entities. Evaluation is deterministic.
//
// The override policy is deliberately asymmetric: most rules only fill
// an empty category slot, but the newsletter rule overwrites earlier
// matches unconditionally. A newsletter full of "urgent deals" is still
// a newsletter.
type RuleEngine struct {
	vipPatterns []*regexp.Regexp
}

// NewRuleEngine compiles the configured VIP sender patterns. Patterns
// are matched case-insensitively against the sender address.
func NewRuleEngine(vipPatterns []string) (*RuleEngine, error) {
	compiled := make([]*regexp.Regexp, 0, len(vipPatterns))
	for _, p := range vipPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile vip pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &RuleEngine{vipPatterns: compiled}, nil
}

// Evaluate runs the battery over (item, entities). It never fails; no
// match at all yields an empty RuleResult with confidence 0.
func (e *RuleEngine) Evaluate(item *intake.Item, ents intake.ExtractedEntities) RuleResult {
	rr := RuleResult{Matches: []string{}}

	text := strings.ToLower(item.Text())
	fromAddr := strings.ToLower(item.FromAddress)

	// 1. VIP sender: strongest category signal, short-circuits after
	// the first matching pattern.
	for _, pat := range e.vipPatterns {
		if pat.MatchString(fromAddr) {
			rr.Matches = append(rr.Matches, "vip-sender")
			rr.Category = intake.CategoryActionRequired
			rr.Priority = intake.PriorityP1
			rr.Confidence = 0.9
			break
		}
	}

	// 2. Urgency cues from entity extraction.
	if len(ents.UrgencyCues) > 0 {
		cues := ents.UrgencyCues
		if len(cues) > 3 {
			cues = cues[:3]
		}
		rr.Matches = append(rr.Matches, "urgency-cues: "+strings.Join(cues, ", "))
		if rr.Category == "" {
			rr.Category = intake.CategoryActionRequired
			rr.Priority = intake.PriorityP1
			rr.Confidence = max(rr.Confidence, 0.7)
		}
	}

	// 3. Urgent keyword anywhere in subject+body.
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			rr.Matches = append(rr.Matches, "urgent-keywords")
			if rr.Category == "" {
				rr.Category = intake.CategoryActionRequired
				rr.Priority = intake.PriorityP1
				rr.Confidence = max(rr.Confidence, 0.6)
			}
			break
		}
	}

	// 4. Newsletter patterns override unconditionally.
	for _, pat := range newsletterPatterns {
		if pat.MatchString(fromAddr) || pat.MatchString(text) {
			rr.Matches = append(rr.Matches, "newsletter-pattern")
			rr.Category = intake.CategoryFYI
			rr.Priority = intake.PriorityP3
			rr.Confidence = max(rr.Confidence, 0.8)
			break
		}
	}

	// 5. Short question, likely quick to answer.
	if strings.Contains(text, "?") && utf8.RuneCountInString(text) < shortQuestionMaxLen {
		rr.Matches = append(rr.Matches, "short-question")
		if rr.Category == "" {
			rr.Category = intake.CategoryActionRequired
			rr.Priority = intake.PriorityP2
			rr.Confidence = max(rr.Confidence, 0.5)
		}
	}

	// 6. Calendar item or meeting language.
	if item.Type == "calendar" || strings.Contains(text, "meeting") || strings.Contains(text, "call") {
		rr.Matches = append(rr.Matches, "meeting-indicator")
		if rr.Category == "" {
			rr.Category = intake.CategoryScheduled
			rr.Priority = intake.PriorityP2
			rr.Confidence = max(rr.Confidence, 0.6)
		}
	}

	return rr
}
