package triage

import (
	"github.com/linnemanlabs/sift/internal/intake"
)

// Confidence thresholds and adjustments for merging neighbor signal into
// the rule proposal.
const (
	agreementSimilarity = 0.7  // top neighbor must be at least this close to boost
	agreementBoost      = 0.2  // confidence added on agreement
	confidenceCap       = 0.95 // boosted confidence never exceeds this
	adoptionSimilarity  = 0.6  // neighbor adoption requires at least this closeness
	adoptionDiscount    = 0.8  // neighbor-sourced confidence = similarity * this
)

// MergeContext combines the rule-engine proposal with similarity-index
// neighbors into the final deterministic context.
//
// Neighbor signal is advisory: agreement with the rules boosts
// confidence; when the rules proposed nothing, a close triaged neighbor
// supplies the proposal at a discount.
func MergeContext(ents intake.ExtractedEntities, neighbors []intake.SimilarItem, rr RuleResult) *DeterministicContext {
	category := rr.Category
	priority := rr.Priority
	confidence := rr.Confidence

	if len(neighbors) > 0 {
		top := neighbors[0]

		if top.Category == category && top.Similarity > agreementSimilarity {
			confidence = min(confidence+agreementBoost, confidenceCap)
		}

		if category == "" && top.Category != "" && top.Similarity > adoptionSimilarity {
			category = top.Category
			priority = top.Priority
			confidence = top.Similarity * adoptionDiscount
		}
	}

	if neighbors == nil {
		neighbors = []intake.SimilarItem{}
	}

	return &DeterministicContext{
		Entities:         ents,
		SimilarItems:     neighbors,
		RuleMatches:      rr.Matches,
		ProposedCategory: category,
		ProposedPriority: priority,
		Confidence:       confidence,
	}
}
