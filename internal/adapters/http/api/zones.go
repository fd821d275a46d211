package api

import (
	"errors"
	"net/http"
	"strings"

	repository "github.com/okian/emberwatch/internal/adapters/repository"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/types"
)

// ZonesHandler serves read-only zone queries.
type ZonesHandler struct {
	deps Dependencies
}

// NewZonesHandler creates a new zones handler.
func NewZonesHandler(deps Dependencies) *ZonesHandler {
	return &ZonesHandler{deps: deps}
}

// HandleList handles GET /zones, optionally filtered by ?level=.
func (h *ZonesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_zones"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("level"))
	if raw == "" {
		writeJSON(w, http.StatusOK, model.Snapshot{DangerZones: zonesOrEmpty(h.deps.Snapshot(r.Context()))})
		return
	}

	level, err := model.ParseLevel(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, model.Snapshot{DangerZones: zonesOrEmpty(h.deps.ZonesByLevel(r.Context(), level))})
}

// HandleNearest handles GET /zones/nearest?lat=&lng=.
func (h *ZonesHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	const op = "api.nearest_zone"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	loc, ok, err := parseLocation(r.URL.Query(), "lat", "lng")
	if err == nil && !ok {
		err = errors.New("lat and lng are required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	zone, dist, err := h.deps.Nearest(r.Context(), loc)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, types.NearestResponse{Zone: zone, DistanceKm: dist})
}
