// Package entities turns raw item text into structured entities plus
// urgency cues. Named-entity recognition is consumed as a capability from
// an external model server; urgency-cue extraction is pure pattern
// matching and works without it.
package entities

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/linnemanlabs/sift/internal/intake"
)

// ErrModelUnavailable indicates the entity recognizer could not be
// reached or has no model loaded. Extraction fails closed with this error
// rather than returning empty results, because downstream confidence
// calculations assume extraction either succeeded or the caller chose to
// degrade.
var ErrModelUnavailable = errors.New("entity recognizer unavailable")

// urgencyPatterns is the fixed, ordered battery of urgency cues. Order
// matters: matched substrings are recorded in battery order, then text
// order within a pattern.
var urgencyPatterns = []*regexp.Regexp{
	// explicit
	regexp.MustCompile(`\burgent\b`),
	regexp.MustCompile(`\basap\b`),
	regexp.MustCompile(`\bimmediately\b`),
	regexp.MustCompile(`\bemergency\b`),
	regexp.MustCompile(`\bcritical\b`),
	regexp.MustCompile(`\bhigh priority\b`),
	// implied
	regexp.MustCompile(`\btoday\b`),
	regexp.MustCompile(`\beod\b`),
	regexp.MustCompile(`\bend of day\b`),
	regexp.MustCompile(`\bthis morning\b`),
	regexp.MustCompile(`\bthis afternoon\b`),
	regexp.MustCompile(`\bright away\b`),
	regexp.MustCompile(`\btime.?sensitive\b`),
	// deadline
	regexp.MustCompile(`\bdeadline\b`),
	regexp.MustCompile(`\bdue\s+(?:by|date)\b`),
	regexp.MustCompile(`\bexpir(?:es?|ing)\b`),
}

// Recognizer is the named-entity recognition capability.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]intake.Entity, error)
	ModelName() string
}

// Extractor categorizes recognized entities and extracts urgency cues.
type Extractor struct {
	rec Recognizer
}

// NewExtractor creates an Extractor backed by the given recognizer.
func NewExtractor(rec Recognizer) *Extractor {
	return &Extractor{rec: rec}
}

// ModelName reports the recognizer's loaded model.
func (e *Extractor) ModelName() string {
	return e.rec.ModelName()
}

// Extract runs named-entity recognition over text and categorizes the
// spans, then adds urgency cues. Returns ErrModelUnavailable (wrapped) if
// the recognizer fails; it never silently degrades to empty entities.
func (e *Extractor) Extract(ctx context.Context, text string) (intake.ExtractedEntities, error) {
	ents := intake.ExtractedEntities{
		People:        []string{},
		Organizations: []string{},
		Dates:         []string{},
		Times:         []string{},
		Locations:     []string{},
		UrgencyCues:   []string{},
		All:           []intake.Entity{},
	}

	if strings.TrimSpace(text) == "" {
		return ents, nil
	}

	spans, err := e.rec.Recognize(ctx, text)
	if err != nil {
		return intake.ExtractedEntities{}, err
	}

	for _, sp := range spans {
		ents.All = append(ents.All, sp)

		switch sp.Label {
		case "PERSON":
			ents.People = appendUnique(ents.People, sp.Text)
		case "ORG":
			ents.Organizations = appendUnique(ents.Organizations, sp.Text)
		case "DATE":
			ents.Dates = appendUnique(ents.Dates, sp.Text)
		case "TIME":
			ents.Times = appendUnique(ents.Times, sp.Text)
		case "GPE", "LOC", "FAC":
			ents.Locations = appendUnique(ents.Locations, sp.Text)
		}
	}

	ents.UrgencyCues = UrgencyCues(text)
	return ents, nil
}

// UrgencyCues matches the fixed urgency battery against the lowercased
// text. Each unique matched substring is recorded once.
func UrgencyCues(text string) []string {
	cues := []string{}
	lower := strings.ToLower(text)

	for _, pat := range urgencyPatterns {
		for _, m := range pat.FindAllString(lower, -1) {
			cues = appendUnique(cues, m)
		}
	}
	return cues
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
