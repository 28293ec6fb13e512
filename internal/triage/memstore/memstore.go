// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds triage state in memory. Suitable for dev/testing.
type Store struct {
	mu          sync.RWMutex
	current     map[string]*triage.Result // intake ID -> latest result
	corrections []triage.CorrectionRecord // append order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		current: make(map[string]*triage.Result),
	}
}

// GetCurrent retrieves the latest triage result for an intake ID. Returns a copy.
func (s *Store) GetCurrent(_ context.Context, intakeID string) (*triage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.current[intakeID]
	if !ok {
		return nil, triage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// PutCurrent stores a copy of the triage result, replacing any prior one.
func (s *Store) PutCurrent(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.current[r.ID] = &cp
	return nil
}

// ApplyCorrection overwrites the classification of the current result.
func (s *Store) ApplyCorrection(_ context.Context, intakeID string, category intake.Category, priority intake.Priority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.current[intakeID]
	if !ok {
		return triage.ErrNotFound
	}
	r.Category = category
	r.Priority = priority
	r.Action = triage.ActionOverridden
	r.TriagedBy = triage.TriagedByUser
	r.TriagedAt = time.Now().UTC()
	return nil
}

// RecordCorrection appends a copy of the correction to the history.
func (s *Store) RecordCorrection(_ context.Context, rec *triage.CorrectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections = append(s.corrections, *rec)
	return nil
}

// ListRecentCorrections returns corrections for a zone, newest first.
func (s *Store) ListRecentCorrections(_ context.Context, zone string, limit int) ([]triage.CorrectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]triage.CorrectionRecord, 0, limit)
	for i := len(s.corrections) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.corrections[i]
		if zone != "" && c.Zone != zone {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
