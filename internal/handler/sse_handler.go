package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	mstream "github.com/haowjy/meridian-stream-go"

	llmModels "turnengine/internal/domain/models/llm"
	"turnengine/internal/handler/sse"
)

// SSEHandler attaches an HTTP client to a registered stream and relays its
// events as Server-Sent Events. It knows nothing about turns, providers, or
// persistence for live streams — it only bridges an mstream.Stream to an
// http.ResponseWriter. For a turn whose Stream has already been evicted from
// the registry by retention, it falls back to catchupFunc to reconstruct the
// event sequence straight from storage.
type SSEHandler struct {
	registry    *mstream.Registry
	catchupFunc mstream.CatchupFunc
	sseConfig   *sse.Config
	logger      *slog.Logger
}

// NewSSEHandler creates a new SSE handler over the given stream registry,
// falling back to catchupFunc on a registry miss (expired/never-live stream).
func NewSSEHandler(registry *mstream.Registry, catchupFunc mstream.CatchupFunc, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		registry:    registry,
		catchupFunc: catchupFunc,
		sseConfig:   sse.DefaultConfig(),
		logger:      logger,
	}
}

// StreamTurn handles GET /api/turns/{id}/stream
// Streams turn events via Server-Sent Events (SSE). Supports the Last-Event-ID
// header (or ?last_event_id= query param) for reconnection: the underlying
// stream replays any events the client missed before resuming live delivery.
func (h *SSEHandler) StreamTurn(w http.ResponseWriter, r *http.Request) {
	turnID := r.PathValue("id")

	if _, err := uuid.Parse(turnID); err != nil {
		http.Error(w, "invalid turn ID format", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("last_event_id")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientID := uuid.New().String()

	stream := h.registry.Get(turnID)
	if stream == nil {
		h.writeCatchupOnly(w, flusher, turnID, lastEventID, clientID)
		return
	}

	events, unsubscribe := stream.Subscribe(lastEventID)
	defer unsubscribe()

	h.logger.Debug("SSE client subscribed", "turn_id", turnID, "client_id", clientID, "last_event_id", lastEventID)

	keepAliveWriter := sse.NewSSEKeepAliveWriter(w, flusher, turnID, clientID)
	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAliveStopped := keepAlive.Start(keepAliveWriter, h.logger)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", "turn_id", turnID, "client_id", clientID)
			return

		case <-keepAliveStopped:
			h.logger.Debug("SSE connection dropped by keep-alive", "turn_id", turnID, "client_id", clientID)
			return

		case event, ok := <-events:
			if !ok {
				h.logger.Debug("stream closed, ending SSE connection", "turn_id", turnID, "client_id", clientID)
				return
			}

			if _, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", event.Type, event.ID, event.Data); err != nil {
				h.logger.Info("client disconnected during event write", "turn_id", turnID, "client_id", clientID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeCatchupOnly handles a registry miss: the turn's live Stream has either
// expired past its retention window or never existed in this process. It
// reconstructs the event sequence from persisted turn blocks via catchupFunc
// and writes it as a closed-ended SSE response — there is no live stream left
// to subscribe to, so the connection ends once catchup is flushed.
func (h *SSEHandler) writeCatchupOnly(w http.ResponseWriter, flusher http.Flusher, turnID, lastEventID, clientID string) {
	events, err := h.catchupFunc(turnID, lastEventID)
	if err != nil {
		h.logger.Error("catchup failed for expired stream", "turn_id", turnID, "client_id", clientID, "error", err)
		errorEvent, _ := llmModels.NewTurnErrorEvent(turnID, "failed to reconstruct turn history", nil)
		fmt.Fprint(w, errorEvent)
		flusher.Flush()
		return
	}

	h.logger.Debug("serving catchup-only SSE response", "turn_id", turnID, "client_id", clientID, "event_count", len(events))

	for _, event := range events {
		if _, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", event.Type, event.ID, event.Data); err != nil {
			h.logger.Info("client disconnected during catchup write", "turn_id", turnID, "client_id", clientID, "error", err)
			return
		}
	}
	flusher.Flush()
}
