package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/simindex"
)

// similarTopK is how many neighbors feed the deterministic context.
const similarTopK = 5

// Extractor produces named entities and urgency cues from item text.
type Extractor interface {
	Extract(ctx context.Context, text string) (intake.ExtractedEntities, error)
	ModelName() string
}

// Notifier delivers a high-priority triage result to an external channel.
type Notifier interface {
	Notify(ctx context.Context, item *intake.Item, res *Result) error
}

// Deps are the collaborators a Service needs. Notifier is optional.
type Deps struct {
	Extractor Extractor
	Index     simindex.Index
	Rules     *RuleEngine
	Verifier  *Verifier
	Store     Store
	Notifier  Notifier
	Logger    log.Logger
	Metrics   *Metrics
	Version   string
}

// Service is the business boundary for triage operations.
type Service struct {
	extractor Extractor
	index     simindex.Index
	rules     *RuleEngine
	verifier  *Verifier
	store     Store
	notifier  Notifier
	logger    log.Logger
	metrics   *Metrics
	version   string
}

// NewService creates a new triage service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = log.Nop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Service{
		extractor: d.Extractor,
		index:     d.Index,
		rules:     d.Rules,
		verifier:  d.Verifier,
		store:     d.Store,
		notifier:  d.Notifier,
		logger:    d.Logger,
		metrics:   d.Metrics,
		version:   d.Version,
	}
}

// Triage runs the full pipeline for an item: entity extraction,
// similarity retrieval, rule evaluation, context merge, then AI
// verification unless skipAI is set. The result is persisted before
// returning. Extraction and persistence failures are errors; index
// failures are tolerated.
func (s *Service) Triage(ctx context.Context, item *intake.Item, skipAI bool) (*Result, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("%w: intake item id is required", ErrInvalidInput)
	}
	start := time.Now()
	L := s.logger.With("intake_id", item.ID, "zone", item.Zone)

	ents, err := s.extractor.Extract(ctx, item.Text())
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	neighbors := s.neighborsFor(ctx, L, item)
	s.metrics.SimilarHits.Observe(float64(len(neighbors)))

	rr := s.rules.Evaluate(item, ents)
	for _, match := range rr.Matches {
		s.metrics.RuleMatchesTotal.WithLabelValues(ruleName(match)).Inc()
	}

	dc := MergeContext(ents, neighbors, rr)

	var (
		cls       *Classification
		triagedBy TriagedBy
	)
	if skipAI {
		cls = Fallback(dc, nil)
		cls.Reasoning = "AI verification skipped"
		triagedBy = TriagedByDeterministic
	} else {
		recent, lerr := s.store.ListRecentCorrections(ctx, item.Zone, maxCorrectionsInPrompt)
		if lerr != nil {
			L.Warn(ctx, "listing recent corrections failed, verifying without hints", "error", lerr.Error())
			recent = nil
		}

		oracleStart := time.Now()
		var fellBack bool
		cls, fellBack = s.verifier.VerifyWithCorrections(ctx, item, dc, recent)
		s.metrics.OracleDuration.Observe(time.Since(oracleStart).Seconds())

		triagedBy = TriagedByAI
		outcome := "ok"
		if fellBack {
			triagedBy = TriagedByDeterministic
			outcome = "fallback"
		}
		s.metrics.OracleCallsTotal.WithLabelValues(outcome).Inc()

		if ierr := s.index.Upsert(ctx, item.ID, simindex.EmbeddingText(item), simindex.MetadataFor(item, cls.Category, cls.Priority)); ierr != nil {
			L.Warn(ctx, "index upsert failed, result not retrievable by similarity", "error", ierr.Error())
			s.metrics.IndexErrorsTotal.Inc()
		}
	}

	res := &Result{
		ID:             item.ID,
		Zone:           item.Zone,
		Category:       cls.Category,
		Priority:       cls.Priority,
		QuickWin:       cls.QuickWin,
		QuickWinReason: cls.QuickWinReason,
		EstimatedTime:  cls.EstimatedTime,
		Confidence:     cls.Confidence,
		Reasoning:      cls.Reasoning,
		Action:         cls.Action,
		TriagedBy:      triagedBy,
		Entities:       dc.Entities,
		SimilarItems:   dc.SimilarItems,
		RuleMatches:    dc.RuleMatches,
		TriagedAt:      time.Now().UTC(),
	}

	if err := s.store.PutCurrent(ctx, res); err != nil {
		return nil, fmt.Errorf("persist triage result: %w", err)
	}

	s.metrics.TriagesTotal.WithLabelValues(string(triagedBy)).Inc()
	s.metrics.TriageDuration.WithLabelValues(string(triagedBy)).Observe(time.Since(start).Seconds())

	L.Info(ctx, "triage complete",
		"category", res.Category,
		"priority", res.Priority,
		"action", res.Action,
		"triaged_by", res.TriagedBy,
		"confidence", res.Confidence,
	)

	s.maybeNotify(ctx, L, item, res)

	return res, nil
}

// Similar returns items near the given one, regardless of whether the
// neighbors have been triaged. TopK defaults to the pipeline's own
// neighbor count. Index failures degrade to an empty list, same as the
// pipeline's neighbor lookup.
func (s *Service) Similar(ctx context.Context, item *intake.Item, topK int) ([]intake.SimilarItem, error) {
	if topK <= 0 {
		topK = similarTopK
	}
	neighbors, err := s.index.Query(ctx, simindex.Query{
		Text:      simindex.EmbeddingText(item),
		ExcludeID: item.ID,
		TopK:      topK,
		Zone:      item.Zone,
	})
	if err != nil {
		s.logger.Warn(ctx, "similarity query failed, returning no neighbors", "intake_id", item.ID, "error", err.Error())
		s.metrics.IndexErrorsTotal.Inc()
		return []intake.SimilarItem{}, nil
	}
	return neighbors, nil
}

// StoreItem indexes an item with a known classification so future
// triage runs can retrieve it as a neighbor.
func (s *Service) StoreItem(ctx context.Context, item *intake.Item, category, priority string) error {
	if item.ID == "" {
		return fmt.Errorf("%w: intake item id is required", ErrInvalidInput)
	}
	err := s.index.Upsert(ctx, item.ID, simindex.EmbeddingText(item), simindex.MetadataFor(item, intake.Category(category), intake.Priority(priority)))
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.StoresTotal.WithLabelValues(result).Inc()
	return err
}

// Extract exposes the entity extraction stage on its own.
func (s *Service) Extract(ctx context.Context, text string) (intake.ExtractedEntities, error) {
	return s.extractor.Extract(ctx, text)
}

// Correct records a user correction, overwrites the current triage
// result when one exists, and updates the index classification. The
// correction is recorded even if the index update fails.
func (s *Service) Correct(ctx context.Context, req *CorrectionRequest) (*CorrectionOutcome, error) {
	if req.IntakeID == "" {
		return nil, fmt.Errorf("%w: intake_id is required", ErrInvalidInput)
	}
	if !req.CorrectedCategory.Valid() {
		return nil, fmt.Errorf("%w: unknown corrected category %q", ErrInvalidInput, req.CorrectedCategory)
	}
	if !req.CorrectedPriority.Valid() {
		return nil, fmt.Errorf("%w: unknown corrected priority %q", ErrInvalidInput, req.CorrectedPriority)
	}
	L := s.logger.With("intake_id", req.IntakeID)

	current, err := s.store.GetCurrent(ctx, req.IntakeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.CorrectionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load current triage: %w", err)
	}

	origCat := req.OriginalCategory
	origPri := req.OriginalPriority
	zone := ""
	if current != nil {
		zone = current.Zone
		if origCat == nil {
			c := current.Category
			origCat = &c
		}
		if origPri == nil {
			p := current.Priority
			origPri = &p
		}
	}

	rec := &CorrectionRecord{
		ID:                ulid.Make().String(),
		IntakeID:          req.IntakeID,
		Zone:              zone,
		OriginalCategory:  origCat,
		OriginalPriority:  origPri,
		CorrectedCategory: req.CorrectedCategory,
		CorrectedPriority: req.CorrectedPriority,
		Reason:            req.Reason,
		CorrectedAt:       time.Now().UTC(),
	}
	if err := s.store.RecordCorrection(ctx, rec); err != nil {
		s.metrics.CorrectionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("record correction: %w", err)
	}

	updated := false
	if current != nil {
		switch err := s.store.ApplyCorrection(ctx, req.IntakeID, req.CorrectedCategory, req.CorrectedPriority); {
		case err == nil:
			updated = true
		case errors.Is(err, ErrNotFound):
		default:
			s.metrics.CorrectionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("apply correction: %w", err)
		}
	}

	if err := s.index.SetClassification(ctx, req.IntakeID, req.CorrectedCategory, req.CorrectedPriority); err != nil {
		L.Warn(ctx, "index classification update failed", "error", err.Error())
		s.metrics.IndexErrorsTotal.Inc()
	}

	s.metrics.CorrectionsTotal.WithLabelValues("ok").Inc()
	L.Info(ctx, "correction recorded",
		"correction_id", rec.ID,
		"corrected_to", fmt.Sprintf("%s/%s", rec.CorrectedCategory, rec.CorrectedPriority),
		"triage_updated", updated,
	)

	return &CorrectionOutcome{
		Status:        "recorded",
		CorrectionID:  rec.ID,
		IntakeID:      rec.IntakeID,
		Original:      fmt.Sprintf("%s/%s", orUnknown(rec.OriginalCategory), orUnknown(rec.OriginalPriority)),
		CorrectedTo:   fmt.Sprintf("%s/%s", rec.CorrectedCategory, rec.CorrectedPriority),
		TriageUpdated: updated,
	}, nil
}

// Health reports service readiness. Index failures degrade the status
// rather than failing it.
func (s *Service) Health(ctx context.Context) *Health {
	h := &Health{
		Status:  "ok",
		Model:   s.extractor.ModelName(),
		Version: s.version,
	}
	count, err := s.index.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "index count failed", "error", err.Error())
		h.Status = "degraded"
		return h
	}
	h.IndexItems = count
	return h
}

func (s *Service) neighborsFor(ctx context.Context, L log.Logger, item *intake.Item) []intake.SimilarItem {
	neighbors, err := s.index.Query(ctx, simindex.Query{
		Text:           simindex.EmbeddingText(item),
		ExcludeID:      item.ID,
		TopK:           similarTopK,
		Zone:           item.Zone,
		RequireTriaged: true,
	})
	if err != nil {
		L.Warn(ctx, "similarity query failed, continuing without neighbors", "error", err.Error())
		s.metrics.IndexErrorsTotal.Inc()
		return []intake.SimilarItem{}
	}
	return neighbors
}

func (s *Service) maybeNotify(ctx context.Context, L log.Logger, item *intake.Item, res *Result) {
	if s.notifier == nil || res.TriagedBy != TriagedByAI {
		return
	}
	if res.Priority != intake.PriorityP0 && res.Priority != intake.PriorityP1 {
		return
	}
	// notification is best-effort and must not delay the response
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.notifier.Notify(nctx, item, res); err != nil {
			L.Warn(nctx, "high-priority notification failed", "error", err.Error())
			s.metrics.NotifiesTotal.WithLabelValues("error").Inc()
			return
		}
		s.metrics.NotifiesTotal.WithLabelValues("ok").Inc()
	}()
}

// ruleName reduces a match label like "urgency-cues: today" to its rule
// name for metric labeling.
func ruleName(match string) string {
	if i := strings.IndexByte(match, ':'); i >= 0 {
		return match[:i]
	}
	return match
}
