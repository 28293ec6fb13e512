// Package pgindex provides a PostgreSQL implementation of simindex.Index.
//
// Embeddings are stored as packed float32 blobs. Candidate filtering
// (zone, previously-triaged) happens in SQL; distance ranking happens in
// process. At the scale of one tenant's intake history a full scan of
// the filtered candidate set is cheap and avoids an extension dependency.
package pgindex

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/simindex"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/simindex/pgindex")

//go:embed schema.sql
var schema string

// Index persists embedded items in PostgreSQL.
type Index struct {
	pool          *pgxpool.Pool
	embedder      simindex.Embedder
	minSimilarity float64
}

// New applies the schema and returns a ready Index backed by the given
// pool. minSimilarity <= 0 selects the default cutoff.
func New(ctx context.Context, pool *pgxpool.Pool, embedder simindex.Embedder, minSimilarity float64) (*Index, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if minSimilarity <= 0 {
		minSimilarity = simindex.DefaultMinSimilarity
	}
	return &Index{pool: pool, embedder: embedder, minSimilarity: minSimilarity}, nil
}

// Upsert embeds text and fully replaces the stored row for id.
func (x *Index) Upsert(ctx context.Context, id, text string, meta simindex.Metadata) error {
	ctx, span := tracer.Start(ctx, "pgindex.Upsert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("embed: %w", err)
	}

	query := `INSERT INTO intake_vectors (
		id, zone, source, item_type, subject, from_name, category, priority, created_at, document, embedding, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE SET
		zone       = EXCLUDED.zone,
		source     = EXCLUDED.source,
		item_type  = EXCLUDED.item_type,
		subject    = EXCLUDED.subject,
		from_name  = EXCLUDED.from_name,
		category   = EXCLUDED.category,
		priority   = EXCLUDED.priority,
		created_at = EXCLUDED.created_at,
		document   = EXCLUDED.document,
		embedding  = EXCLUDED.embedding,
		updated_at = EXCLUDED.updated_at`

	_, err = x.pool.Exec(ctx, query,
		id, meta.Zone, meta.Source, meta.Type, meta.Subject, meta.FromName,
		nullable(string(meta.Category)), nullable(string(meta.Priority)),
		meta.CreatedAt, text, simindex.EncodeVector(vec), time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// SetClassification updates only the stored category/priority for id.
// A missing row is not an error; the next full upsert self-heals.
func (x *Index) SetClassification(ctx context.Context, id string, cat intake.Category, pri intake.Priority) error {
	ctx, span := tracer.Start(ctx, "pgindex.SetClassification", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	_, err := x.pool.Exec(ctx,
		`UPDATE intake_vectors SET category = $2, priority = $3, updated_at = $4 WHERE id = $1`,
		id, nullable(string(cat)), nullable(string(pri)), time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("update classification: %w", err)
	}
	return nil
}

// Query embeds the query text, loads the filtered candidate set, and
// ranks it in process.
func (x *Index) Query(ctx context.Context, q simindex.Query) ([]intake.SimilarItem, error) {
	ctx, span := tracer.Start(ctx, "pgindex.Query", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	count, err := x.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if count == 0 {
		return []intake.SimilarItem{}, nil
	}

	vec, err := x.embedder.Embed(ctx, q.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embed query: %w", err)
	}

	query := `SELECT id, subject, COALESCE(category, ''), COALESCE(priority, ''), embedding
		FROM intake_vectors WHERE ($1 = '' OR zone = $1) AND (NOT $2 OR category IS NOT NULL)`

	rows, err := x.pool.Query(ctx, query, q.Zone, q.RequireTriaged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []simindex.Candidate
	for rows.Next() {
		var (
			c    simindex.Candidate
			cat  string
			pri  string
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Subject, &cat, &pri, &blob); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Category = intake.Category(cat)
		c.Priority = intake.Priority(pri)
		if c.Vector, err = simindex.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", c.ID, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return simindex.Rank(vec, candidates, q.ExcludeID, q.TopK, x.minSimilarity), nil
}

// Delete removes the row for id.
func (x *Index) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "pgindex.Delete", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	if _, err := x.pool.Exec(ctx, `DELETE FROM intake_vectors WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}

// Count reports the number of stored rows.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.pool.QueryRow(ctx, `SELECT count(*) FROM intake_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// nullable maps the empty string to SQL NULL so "untriaged" is
// represented as a missing category rather than ''.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
