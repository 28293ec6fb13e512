package triage

import (
	"context"
	"errors"

	"github.com/linnemanlabs/sift/internal/intake"
)

// ErrNotFound is returned when no current triage exists for an intake id.
var ErrNotFound = errors.New("triage result not found")

// ErrInvalidInput marks request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// Store persists triage results and the correction trail. Current
// results are keyed by intake id and hold only the latest state;
// corrections are append-only history.
type Store interface {
	// GetCurrent returns the latest triage result for an intake id, or
	// ErrNotFound.
	GetCurrent(ctx context.Context, intakeID string) (*Result, error)

	// PutCurrent upserts the latest triage result for its intake id.
	PutCurrent(ctx context.Context, res *Result) error

	// ApplyCorrection overwrites the category and priority of the
	// current result and marks it user-triaged. Returns ErrNotFound if
	// no current result exists for the id.
	ApplyCorrection(ctx context.Context, intakeID string, category intake.Category, priority intake.Priority) error

	// RecordCorrection appends a correction to the history.
	RecordCorrection(ctx context.Context, rec *CorrectionRecord) error

	// ListRecentCorrections returns the most recent corrections for a
	// zone, newest first, at most limit entries. An empty zone matches
	// all zones.
	ListRecentCorrections(ctx context.Context, zone string, limit int) ([]CorrectionRecord, error)
}
