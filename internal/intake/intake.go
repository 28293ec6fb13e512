// Package intake defines the shared vocabulary for intake triage: the
// incoming item, the closed category/priority sets, extracted entities,
// and similarity-search results.
package intake

// Category is the closed set of triage categories.
type Category string

const (
	CategoryActionRequired Category = "Action-Required"
	CategoryFYI            Category = "FYI"
	CategoryAwaitingReply  Category = "Awaiting-Reply"
	CategoryDelegated      Category = "Delegated"
	CategoryScheduled      Category = "Scheduled"
	CategoryReference      Category = "Reference"
)

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryActionRequired, CategoryFYI, CategoryAwaitingReply,
		CategoryDelegated, CategoryScheduled, CategoryReference:
		return true
	}
	return false
}

// Priority is the closed set of triage priorities.
type Priority string

const (
	PriorityP0 Priority = "P0" // emergency/critical
	PriorityP1 Priority = "P1" // high, today
	PriorityP2 Priority = "P2" // normal, this week
	PriorityP3 Priority = "P3" // low, when convenient
)

// Valid reports whether p is a member of the closed priority set.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// Item is an intake item submitted for triage. Immutable once submitted;
// owned by the caller.
type Item struct {
	ID           string `json:"id"`
	Zone         string `json:"zone"`
	Source       string `json:"source"`
	SourceID     string `json:"source_id"`
	Type         string `json:"type"`
	Subject      string `json:"subject,omitempty"`
	Body         string `json:"body,omitempty"`
	FromName     string `json:"from_name,omitempty"`
	FromAddress  string `json:"from_address,omitempty"`
	Participants string `json:"participants,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Text returns the subject and body joined with a single space, the form
// the rule engine and entity extraction operate on.
func (i *Item) Text() string {
	return i.Subject + " " + i.Body
}

// Entity is a single recognized span within the source text.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"` // PERSON, ORG, DATE, TIME, GPE, ...
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ExtractedEntities holds the categorized output of entity extraction.
// Each list is deduplicated and ordered by first occurrence.
type ExtractedEntities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Dates         []string `json:"dates"`
	Times         []string `json:"times"`
	Locations     []string `json:"locations"`
	UrgencyCues   []string `json:"urgency_cues"`
	All           []Entity `json:"all_entities"`
}

// SimilarItem is a neighbor returned by a similarity-index query.
// Category and Priority are empty when the neighbor was never triaged.
type SimilarItem struct {
	ID         string   `json:"id"`
	Similarity float64  `json:"similarity"`
	Subject    string   `json:"subject,omitempty"`
	Category   Category `json:"category,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
}
