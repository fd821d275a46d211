package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/emberwatch/pkg/logger"
)

// StreamHandler pushes zone snapshots as server-sent events.
type StreamHandler struct {
	deps      Dependencies
	keepAlive time.Duration
	logger    logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies, keepAlive time.Duration, log logger.Logger) *StreamHandler {
	return &StreamHandler{deps: deps, keepAlive: keepAlive, logger: log}
}

// HandleStream handles GET /zones/stream. The current snapshot is sent on
// connect and again after every mutation until the client goes away.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.zone_stream"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	rc := http.NewResponseController(w)
	sub, err := h.deps.Subscribe(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	defer h.deps.Unsubscribe(sub.ID())

	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn(ctx, "clearing stream write deadline", logger.Error(err))
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn(ctx, "streaming unsupported", logger.Error(err))
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Updates():
			if !ok {
				// dropped as a slow consumer or the hub closed
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
