// Package triageapi exposes the triage pipeline over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/intake"
	"github.com/linnemanlabs/sift/internal/triage"
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Triage(ctx context.Context, item *intake.Item, skipAI bool) (*triage.Result, error)
	Similar(ctx context.Context, item *intake.Item, topK int) ([]intake.SimilarItem, error)
	StoreItem(ctx context.Context, item *intake.Item, category, priority string) error
	Extract(ctx context.Context, text string) (intake.ExtractedEntities, error)
	Correct(ctx context.Context, req *triage.CorrectionRequest) (*triage.CorrectionOutcome, error)
	Health(ctx context.Context) *triage.Health
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/health", a.handleHealth)
	r.Post("/entities", a.handleEntities)
	r.Post("/similar", a.handleSimilar)
	r.Post("/triage", a.handleTriage)
	r.Post("/correct", a.handleCorrect)
	r.Post("/store", a.handleStore)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Health(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the message through the JSON encoder so caller
// input echoed back in the message cannot break the body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeItem(r *http.Request) (*intake.Item, error) {
	var item intake.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}
