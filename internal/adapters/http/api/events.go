package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
)

// IngestHandler handles sensor readings posted to /inputData.
type IngestHandler struct {
	deps   Dependencies
	stream *StreamHandler
	logger logger.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies, stream *StreamHandler, log logger.Logger) *IngestHandler {
	return &IngestHandler{deps: deps, stream: stream, logger: log}
}

// HandleInputData handles GET and POST /inputData.
//
// Without a Temperature the current zones are returned unchanged. With
// subscribe=true the request turns into a zone stream.
func (h *IngestHandler) HandleInputData(w http.ResponseWriter, r *http.Request) {
	const op = "api.input_data"
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if subscribe, _ := strconv.ParseBool(r.URL.Query().Get("subscribe")); subscribe {
		h.stream.HandleStream(w, r)
		return
	}

	values, err := readParams(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	reading, err := parseReading(values)
	if errors.Is(err, errMissingTemperature) {
		writeJSON(w, http.StatusOK, model.Snapshot{DangerZones: zonesOrEmpty(h.deps.Snapshot(r.Context()))})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	zone, updated, err := h.deps.Ingest(r.Context(), reading)
	if err != nil {
		status, code := statusFor(err)
		if status >= statusInternalError {
			h.logger.Error(r.Context(), "ingest failed", logger.Error(err))
			err = WrapKind(op, ErrIngest, err)
		}
		writeError(w, status, code, err)
		return
	}

	writeJSON(w, http.StatusOK, types.IngestResponse{Success: true, Updated: updated, Data: zone})
}
