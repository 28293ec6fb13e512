// Package simindex defines the similarity index contract and the shared
// pieces both implementations use: deterministic embedding-text
// construction, distance-to-similarity conversion, candidate ranking,
// and vector encoding.
//
// The index is content-addressed by item id. Upserts fully replace the
// stored document and metadata; this is how corrections retroactively
// fix future retrieval.
package simindex

import (
	"context"
	"strings"

	"github.com/linnemanlabs/sift/internal/intake"
)

// DefaultMinSimilarity is the cutoff below which neighbors are dropped.
const DefaultMinSimilarity = 0.5

// Embedder is the embedding-computation capability.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Metadata is the per-item state stored alongside the embedding.
// Category/Priority are empty until the item has been triaged.
type Metadata struct {
	Zone      string
	Source    string
	Type      string
	Subject   string
	FromName  string
	Category  intake.Category
	Priority  intake.Priority
	CreatedAt string
}

// Query describes a neighbor search. ExcludeID drops the querying item's
// own entry so an item never appears as its own neighbor.
type Query struct {
	Text           string
	ExcludeID      string
	TopK           int
	Zone           string // restrict to a zone when non-empty
	RequireTriaged bool   // only neighbors with a category set
}

// Index is the similarity-index contract.
type Index interface {
	// Upsert replaces the stored document and metadata for id.
	Upsert(ctx context.Context, id, text string, meta Metadata) error
	// SetClassification updates only the stored category/priority,
	// keeping the embedded document. Used by the correction path.
	SetClassification(ctx context.Context, id string, cat intake.Category, pri intake.Priority) error
	// Query returns at most TopK neighbors ordered by similarity
	// descending. An empty index yields an empty list, not an error.
	Query(ctx context.Context, q Query) ([]intake.SimilarItem, error)
	// Delete removes an entry.
	Delete(ctx context.Context, id string) error
	// Count reports how many entries the index holds.
	Count(ctx context.Context) (int, error)
}

const (
	// maxEmbedBody caps how many body runes feed the embedding.
	maxEmbedBody = 2000
	// maxMetaSubject caps the subject stored in index metadata.
	maxMetaSubject = 200
)

// EmbeddingText builds the deterministic embedding input for an item:
// subject, sender, source, then the truncated body, one per line, empty
// fields omitted.
func EmbeddingText(item *intake.Item) string {
	var parts []string

	if item.Subject != "" {
		parts = append(parts, "Subject: "+item.Subject)
	}
	if item.FromName != "" {
		parts = append(parts, "From: "+item.FromName)
	}
	if item.Source != "" {
		parts = append(parts, "Source: "+item.Source)
	}
	if item.Body != "" {
		parts = append(parts, truncateRunes(item.Body, maxEmbedBody))
	}

	return strings.Join(parts, "\n")
}

// MetadataFor derives index metadata from an item plus its
// classification, if any.
func MetadataFor(item *intake.Item, cat intake.Category, pri intake.Priority) Metadata {
	subject := truncateRunes(item.Subject, maxMetaSubject)
	return Metadata{
		Zone:      item.Zone,
		Source:    item.Source,
		Type:      item.Type,
		Subject:   subject,
		FromName:  item.FromName,
		Category:  cat,
		Priority:  pri,
		CreatedAt: item.CreatedAt,
	}
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
