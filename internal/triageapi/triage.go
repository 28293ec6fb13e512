package triageapi

import (
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/entities"
)

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(r)
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if item.ID == "" {
		http.Error(w, `{"error":"item id is required"}`, http.StatusBadRequest)
		return
	}
	skipAI := r.URL.Query().Get("skip_ai") == "true"

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sift.intake.id", item.ID),
		attribute.Bool("sift.triage.skip_ai", skipAI),
	)

	result, err := a.svc.Triage(r.Context(), item, skipAI)
	if err != nil {
		a.logger.Error(r.Context(), err, "triage failed", "intake_id", item.ID)
		if errors.Is(err, entities.ErrModelUnavailable) {
			http.Error(w, `{"error":"entity recognizer unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("sift.triage.category", string(result.Category)),
		attribute.String("sift.triage.priority", string(result.Priority)),
	)

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleSimilar(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(r)
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		topK, err = strconv.Atoi(raw)
		if err != nil || topK < 0 {
			http.Error(w, `{"error":"invalid top_k"}`, http.StatusBadRequest)
			return
		}
	}
	if zone := r.URL.Query().Get("zone"); zone != "" {
		item.Zone = zone
	}

	similar, err := a.svc.Similar(r.Context(), item, topK)
	if err != nil {
		a.logger.Error(r.Context(), err, "similarity query failed", "intake_id", item.ID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, similar)
}

func (a *API) handleEntities(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
		return
	}

	ents, err := a.svc.Extract(r.Context(), text)
	if err != nil {
		a.logger.Error(r.Context(), err, "entity extraction failed")
		if errors.Is(err, entities.ErrModelUnavailable) {
			http.Error(w, `{"error":"entity recognizer unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ents)
}

func (a *API) handleStore(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(r)
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if item.ID == "" {
		http.Error(w, `{"error":"item id is required"}`, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if err := a.svc.StoreItem(r.Context(), item, q.Get("category"), q.Get("priority")); err != nil {
		a.logger.Error(r.Context(), err, "store item failed", "intake_id", item.ID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "stored",
		"id":     item.ID,
	})
}
