package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghogue02/living-economy-arena-sub000/internal/engine"
	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	engine              *engine.Engine
	broker              *Broker
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Engine              *engine.Engine
	Broker              *Broker
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		engine:              d.Engine,
		broker:              d.Broker,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleFormCoalition handles POST /v1/coalitions/form.
func (h *Handlers) HandleFormCoalition(w http.ResponseWriter, r *http.Request) {
	var req model.FormationRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	result, err := h.engine.Form(r.Context(), req)
	if err != nil {
		// A failed formation still carries diagnostics: skipped strategies,
		// trust analysis, and how far the lifecycle got.
		writeDomainError(w, r, err, result)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

// HandleListCoalitions handles GET /v1/coalitions.
func (h *Handlers) HandleListCoalitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.List())
}

// HandleGetCoalition handles GET /v1/coalitions/{coalition_id}.
func (h *Handlers) HandleGetCoalition(w http.ResponseWriter, r *http.Request) {
	id, ok := coalitionID(w, r)
	if !ok {
		return
	}
	c, err := h.engine.Get(id)
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// HandleDissolveCoalition handles DELETE /v1/coalitions/{coalition_id}.
// The optional "reason" query parameter is recorded with the dissolution.
func (h *Handlers) HandleDissolveCoalition(w http.ResponseWriter, r *http.Request) {
	id, ok := coalitionID(w, r)
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "requested"
	}
	c, err := h.engine.Dissolve(r.Context(), id, reason)
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// HandleCheckCoalition handles POST /v1/coalitions/{coalition_id}/check.
// Monitoring is externally triggered; each call runs one pass.
func (h *Handlers) HandleCheckCoalition(w http.ResponseWriter, r *http.Request) {
	id, ok := coalitionID(w, r)
	if !ok {
		return
	}
	report, err := h.engine.Check(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// HandleImproveCoalition handles POST /v1/coalitions/{coalition_id}/improve.
func (h *Handlers) HandleImproveCoalition(w http.ResponseWriter, r *http.Request) {
	id, ok := coalitionID(w, r)
	if !ok {
		return
	}
	proposal, err := h.engine.Improve(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, proposal)
}

// HandleEvents handles GET /v1/events: an SSE stream of engine events.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, errCodeInternalError, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	// Without this, idle SSE connections are killed after WriteTimeout.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":            "healthy",
		"version":           h.version,
		"uptime_seconds":    int64(time.Since(h.startedAt).Seconds()),
		"active_coalitions": len(h.engine.List()),
		"sse_subscribers":   h.broker.SubscriberCount(),
	})
}

// coalitionID parses the {coalition_id} path value, writing a 400 on failure.
func coalitionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("coalition_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid coalition id", nil)
		return uuid.Nil, false
	}
	return id, true
}
