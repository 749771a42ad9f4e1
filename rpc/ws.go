package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/events"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/types"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsSubscriberBuf = 64
)

type eventPayload struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.bus == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn) error {
	updates, cancel, backlog := s.bus.Subscribe(wsSubscriberBuf)
	defer cancel()

	for _, evt := range backlog {
		if err := writeEvent(ctx, conn, evt); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt events.Event) error {
	data, err := json.Marshal(eventPayloadFrom(evt))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func eventPayloadFrom(evt events.Event) eventPayload {
	payload := eventPayload{Type: evt.EventType()}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if inner := carrier.Event(); inner != nil {
			payload.Attributes = inner.Attributes
		}
	}
	return payload
}
