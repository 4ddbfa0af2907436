package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"

	"github.com/nullstate/largeworld/internal/events"
)

// wireEvent is the compact on-wire shape pushed to live feed subscribers;
// Data stays a flat map so clients need no schema beyond the event type.
type wireEvent struct {
	Type      string                 `msgpack:"type"`
	Module    string                 `msgpack:"module"`
	RunID     string                 `msgpack:"run_id"`
	Timestamp int64                  `msgpack:"timestamp"` // unix seconds
	Data      map[string]interface{} `msgpack:"data"`
}

// LiveFeedHandler pushes every published event to connected WebSocket
// clients as msgpack-encoded frames, for dashboards that want a denser wire
// format than the SSE stream's JSON.
type LiveFeedHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewLiveFeedHandler creates a new LiveFeedHandler.
func NewLiveFeedHandler(bus *events.Bus, log zerolog.Logger) *LiveFeedHandler {
	return &LiveFeedHandler{bus: bus, log: log.With().Str("component", "live_feed").Logger()}
}

// ServeHTTP handles GET /api/events/ws, upgrading the connection and
// forwarding every bus event until the client disconnects.
func (h *LiveFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	ctx := r.Context()
	msgChan := make(chan *events.Event, 100)

	handler := func(e *events.Event) {
		select {
		case msgChan <- e:
		default:
			h.log.Warn().Str("event_type", string(e.Type)).Msg("live feed channel full, dropping event")
		}
	}
	for _, t := range []events.EventType{
		events.RunStarted, events.RunCompleted, events.RunFailed,
		events.PeriodStarted, events.PeriodCompleted, events.TransactionCleared,
	} {
		h.bus.Subscribe(t, handler)
	}

	h.log.Info().Msg("client connected to live feed")

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-msgChan:
			payload, err := msgpack.Marshal(wireEvent{
				Type:      string(e.Type),
				Module:    e.Module,
				RunID:     e.RunID,
				Timestamp: e.Timestamp.Unix(),
				Data:      e.Data,
			})
			if err != nil {
				h.log.Error().Err(err).Msg("failed to encode live feed event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageBinary, payload)
			cancel()
			if err != nil {
				h.log.Info().Err(err).Msg("client disconnected from live feed")
				return
			}
		}
	}
}
