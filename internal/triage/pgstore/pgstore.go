// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results and corrections in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the shared pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const currentColumns = `intake_id, zone, category, priority, quick_win, quick_win_reason,
	estimated_time, confidence, reasoning, action, triaged_by, entities, similar_items,
	rule_matches, triaged_at`

// GetCurrent retrieves the latest triage result for an intake ID.
func (s *Store) GetCurrent(ctx context.Context, intakeID string) (*triage.Result, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetCurrent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + currentColumns + ` FROM triage_current WHERE intake_id = $1`
	r, err := scanResult(s.pool.QueryRow(ctx, query, intakeID))
	if err != nil {
		if errors.Is(err, triage.ErrNotFound) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return r, nil
}

// PutCurrent inserts or replaces the latest triage result for its intake ID.
func (s *Store) PutCurrent(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutCurrent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	entitiesJSON, err := json.Marshal(r.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}
	similarJSON, err := json.Marshal(r.SimilarItems)
	if err != nil {
		return fmt.Errorf("marshal similar items: %w", err)
	}
	matchesJSON, err := json.Marshal(r.RuleMatches)
	if err != nil {
		return fmt.Errorf("marshal rule matches: %w", err)
	}

	query := `INSERT INTO triage_current (
		intake_id, zone, category, priority, quick_win, quick_win_reason,
		estimated_time, confidence, reasoning, action, triaged_by, entities,
		similar_items, rule_matches, triaged_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (intake_id) DO UPDATE SET
		zone             = EXCLUDED.zone,
		category         = EXCLUDED.category,
		priority         = EXCLUDED.priority,
		quick_win        = EXCLUDED.quick_win,
		quick_win_reason = EXCLUDED.quick_win_reason,
		estimated_time   = EXCLUDED.estimated_time,
		confidence       = EXCLUDED.confidence,
		reasoning        = EXCLUDED.reasoning,
		action           = EXCLUDED.action,
		triaged_by       = EXCLUDED.triaged_by,
		entities         = EXCLUDED.entities,
		similar_items    = EXCLUDED.similar_items,
		rule_matches     = EXCLUDED.rule_matches,
		triaged_at       = EXCLUDED.triaged_at`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Zone, string(r.Category), string(r.Priority), r.QuickWin, r.QuickWinReason,
		string(r.EstimatedTime), r.Confidence, r.Reasoning, string(r.Action), string(r.TriagedBy),
		entitiesJSON, similarJSON, matchesJSON, r.TriagedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert triage result: %w", err)
	}
	return nil
}

// ApplyCorrection overwrites the classification of the current result
// and marks it user-triaged.
func (s *Store) ApplyCorrection(ctx context.Context, intakeID string, category intake.Category, priority intake.Priority) error {
	ctx, span := tracer.Start(ctx, "pgstore.ApplyCorrection", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE triage_current
		 SET category = $2, priority = $3, action = $4, triaged_by = $5, triaged_at = $6
		 WHERE intake_id = $1`,
		intakeID, string(category), string(priority),
		string(triage.ActionOverridden), string(triage.TriagedByUser), time.Now().UTC(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("apply correction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return triage.ErrNotFound
	}
	return nil
}

// RecordCorrection appends a correction to the history.
func (s *Store) RecordCorrection(ctx context.Context, rec *triage.CorrectionRecord) error {
	ctx, span := tracer.Start(ctx, "pgstore.RecordCorrection", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO triage_corrections (
			id, intake_id, zone, original_category, original_priority,
			corrected_category, corrected_priority, reason, corrected_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.IntakeID, rec.Zone,
		categoryPtr(rec.OriginalCategory), priorityPtr(rec.OriginalPriority),
		string(rec.CorrectedCategory), string(rec.CorrectedPriority),
		rec.Reason, rec.CorrectedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert correction: %w", err)
	}
	return nil
}

// ListRecentCorrections returns corrections for a zone, newest first.
func (s *Store) ListRecentCorrections(ctx context.Context, zone string, limit int) ([]triage.CorrectionRecord, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListRecentCorrections", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT id, intake_id, zone, original_category, original_priority,
			corrected_category, corrected_priority, reason, corrected_at
		 FROM triage_corrections
		 WHERE ($1 = '' OR zone = $1)
		 ORDER BY corrected_at DESC
		 LIMIT $2`,
		zone, limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var out []triage.CorrectionRecord
	for rows.Next() {
		var (
			rec          triage.CorrectionRecord
			origCat      *string
			origPri      *string
			correctedCat string
			correctedPri string
		)
		if err := rows.Scan(&rec.ID, &rec.IntakeID, &rec.Zone, &origCat, &origPri,
			&correctedCat, &correctedPri, &rec.Reason, &rec.CorrectedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		if origCat != nil {
			c := intake.Category(*origCat)
			rec.OriginalCategory = &c
		}
		if origPri != nil {
			p := intake.Priority(*origPri)
			rec.OriginalPriority = &p
		}
		rec.CorrectedCategory = intake.Category(correctedCat)
		rec.CorrectedPriority = intake.Priority(correctedPri)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate corrections: %w", err)
	}
	return out, nil
}

// scanResult scans a single row into a triage.Result.
// Returns triage.ErrNotFound when no row is found.
func scanResult(row pgx.Row) (*triage.Result, error) {
	var (
		r            triage.Result
		category     string
		priority     string
		estimated    string
		action       string
		triagedBy    string
		entitiesJSON []byte
		similarJSON  []byte
		matchesJSON  []byte
	)

	err := row.Scan(
		&r.ID, &r.Zone, &category, &priority, &r.QuickWin, &r.QuickWinReason,
		&estimated, &r.Confidence, &r.Reasoning, &action, &triagedBy,
		&entitiesJSON, &similarJSON, &matchesJSON, &r.TriagedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, triage.ErrNotFound
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Category = intake.Category(category)
	r.Priority = intake.Priority(priority)
	r.EstimatedTime = triage.EstimatedTime(estimated)
	r.Action = triage.Action(action)
	r.TriagedBy = triage.TriagedBy(triagedBy)

	if err := json.Unmarshal(entitiesJSON, &r.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal(similarJSON, &r.SimilarItems); err != nil {
		return nil, fmt.Errorf("unmarshal similar items: %w", err)
	}
	if err := json.Unmarshal(matchesJSON, &r.RuleMatches); err != nil {
		return nil, fmt.Errorf("unmarshal rule matches: %w", err)
	}

	return &r, nil
}

func categoryPtr(c *intake.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func priorityPtr(p *intake.Priority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
