package api

import (
	"net/http"

	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
)

// RiskHandler serves dry-run assessments.
type RiskHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRiskHandler creates a new risk handler.
func NewRiskHandler(deps Dependencies, log logger.Logger) *RiskHandler {
	return &RiskHandler{deps: deps, logger: log}
}

// HandleRisk handles GET and POST /risk. It takes the same parameters as
// /inputData but never touches the zone store.
func (h *RiskHandler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.risk"
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	values, err := readParams(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	reading, err := parseReading(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	a, err := h.deps.Assess(r.Context(), reading)
	if err != nil {
		status, code := statusFor(err)
		if status >= statusInternalError {
			h.logger.Error(r.Context(), "assessment failed", logger.Error(err))
			err = WrapKind(op, ErrIngest, err)
		}
		writeError(w, status, code, err)
		return
	}

	resp := types.AssessmentResponse{
		Level:       a.Level,
		Description: a.Explanation,
		Historical:  a.Historical,
	}
	if a.Breakdown != nil {
		resp.Breakdown = a.Breakdown
	}
	writeJSON(w, http.StatusOK, resp)
}
