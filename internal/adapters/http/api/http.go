// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/emberwatch/internal/adapters/mq/broadcast"
	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
)

const defaultKeepAlive = 15 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest assesses and stores a reading, broadcasting the new snapshot.
	Ingest(ctx context.Context, r model.Reading) (model.DangerZone, bool, error)
	// Assess scores a reading without storing it.
	Assess(ctx context.Context, r model.Reading) (scoring.Assessment, error)

	// Read operations expose the zone store.
	Snapshot(ctx context.Context) []model.DangerZone
	Nearest(ctx context.Context, loc model.Location) (model.DangerZone, float64, error)
	ZonesByLevel(ctx context.Context, level model.Level) []model.DangerZone

	Subscribe(ctx context.Context) (*broadcast.Subscription, error)
	Unsubscribe(id string) bool

	Health(ctx context.Context) types.HealthResponse
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeepAlive sets the interval between SSE keepalive comments.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	logger    logger.Logger
	keepAlive time.Duration

	opsHandler    *OpsHandler
	ingestHandler *IngestHandler
	zonesHandler  *ZonesHandler
	streamHandler *StreamHandler
	riskHandler   *RiskHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		logger:    logger.Nop(),
		keepAlive: defaultKeepAlive,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.streamHandler = NewStreamHandler(deps, s.keepAlive, s.logger)
	s.opsHandler = NewOpsHandler(deps, statsProvider)
	s.ingestHandler = NewIngestHandler(deps, s.streamHandler, s.logger)
	s.zonesHandler = NewZonesHandler(deps)
	s.riskHandler = NewRiskHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, CORSMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("/healthz", "healthz", s.opsHandler.HandleHealth)
	route("/stats", "stats", s.opsHandler.HandleStats)
	route("/inputData", "inputData", s.ingestHandler.HandleInputData)
	route("/risk", "risk", s.riskHandler.HandleRisk)
	route("/zones", "zones", s.zonesHandler.HandleList)
	route("/dangerZones", "zones", s.zonesHandler.HandleList)
	route("/zones/nearest", "zones_nearest", s.zonesHandler.HandleNearest)
	route("/zones/stream", "zones_stream", s.streamHandler.HandleStream)
	mux.Handle("/metrics", MetricsHandler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": ...}. Server-side failures expose only the
// kind, never the cause.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	var kindErr *KindError
	switch {
	case status >= statusInternalError && errors.As(err, &kindErr):
		msg = kindErr.Kind.Error()
	case status < statusInternalError && errors.As(err, &kindErr) && kindErr.Err != nil:
		msg = kindErr.Err.Error()
	case status < statusInternalError && err != nil:
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: code})
}

// statusFor maps errors from the service onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, scoring.ErrInvalidReading),
		errors.Is(err, geo.ErrInvalidLocation),
		errors.Is(err, model.ErrUnknownLevel):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func zonesOrEmpty(zones []model.DangerZone) []model.DangerZone {
	if zones == nil {
		return []model.DangerZone{}
	}
	return zones
}
