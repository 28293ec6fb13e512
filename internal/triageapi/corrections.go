package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linnemanlabs/sift/internal/triage"
)

func (a *API) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req triage.CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	outcome, err := a.svc.Correct(r.Context(), &req)
	if err != nil {
		if errors.Is(err, triage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error(r.Context(), err, "correction failed", "intake_id", req.IntakeID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
