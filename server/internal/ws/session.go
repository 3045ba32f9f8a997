package ws

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/switchwatch/switchwatch/pkg/protocol"
	"github.com/switchwatch/switchwatch/pkg/types"
	"github.com/switchwatch/switchwatch/server/internal/inventory"
)

// session is one connected websocket client. The write pump is the only
// goroutine that writes to conn; the read pump is the only one that reads.
type session struct {
	id     string
	remote string
	hub    *Hub
	conn   *websocket.Conn

	// send is never closed. Writers check done first, so a late broadcast
	// into a closed session is dropped rather than panicking.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
	drain     chan struct{}
	drainOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn, remote string) *session {
	return &session{
		id:     uuid.NewString(),
		remote: remote,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBuffer),
		done:   make(chan struct{}),
		drain:  make(chan struct{}),
	}
}

// ID identifies the session in logs.
func (s *session) ID() string { return s.id }

// enqueue queues msg without blocking. It returns false when the session is
// closed or its queue is full.
func (s *session) enqueue(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// close unregisters the session and releases the connection. Only the first
// call has any effect, whichever goroutine detects the failure.
func (s *session) close(reason error) {
	s.closeOnce.Do(func() {
		s.hub.clients.Remove(s)
		close(s.done)
		s.conn.Close()

		switch {
		case reason == nil:
		case isNormalClose(reason):
			slog.Debug("ws: session closed", "client", s.id, "remote", s.remote, "reason", reason)
		default:
			slog.Warn("ws: session closed", "client", s.id, "remote", s.remote, "err", reason)
		}
	})
}

// requestDrain asks the write pump to flush the queue and send a close frame.
func (s *session) requestDrain() {
	s.drainOnce.Do(func() { close(s.drain) })
}

// writePump drains the send queue to the connection and sends periodic ping
// frames. Runs in its own goroutine per client.
func (s *session) writePump() {
	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.hub.metrics.SendFailed()
				s.close(&TransportError{ClientID: s.id, Op: "write", Err: err})
				return
			}

		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.close(&TransportError{ClientID: s.id, Op: "ping", Err: err})
				return
			}

		case <-s.drain:
			s.flush()
			return

		case <-s.done:
			return
		}
	}
}

// flush writes whatever is still queued, sends a going-away close frame and
// gives the peer closeGrace to answer before closing the socket.
func (s *session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.close(&TransportError{ClientID: s.id, Op: "write", Err: err})
				return
			}
			continue
		default:
		}
		break
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, errShutdown.Error())
	if err := s.write(websocket.CloseMessage, closeMsg); err != nil {
		s.close(&TransportError{ClientID: s.id, Op: "write", Err: err})
		return
	}

	select {
	case <-s.done:
	case <-time.After(closeGrace):
		s.close(nil)
	}
}

func (s *session) write(messageType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.hub.opts.WriteTimeout)) //nolint:errcheck
	return s.conn.WriteMessage(messageType, data)
}

// readPump reads frames and answers requests until the connection fails.
// Blocks until the connection closes.
func (s *session) readPump() {
	pongWait := s.hub.opts.PongWait
	s.conn.SetReadLimit(s.hub.opts.MaxFrame)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, r, err := s.conn.NextReader()
		if err != nil {
			s.close(&TransportError{ClientID: s.id, Op: "read", Err: err})
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck

		frame, dropped, err := readFrame(r, s.hub.opts.ReadLimit)
		if err != nil {
			s.close(&TransportError{ClientID: s.id, Op: "read", Err: err})
			return
		}
		if dropped > 0 {
			s.hub.metrics.DecodeFailed()
			slog.Warn("ws: dropping oversize frame",
				"client", s.id, "remote", s.remote, "size", dropped, "limit", s.hub.opts.ReadLimit)
			continue
		}
		s.handleFrame(frame)
	}
}

// readFrame reads one message of at most limit bytes. A longer message is
// consumed and discarded; dropped then holds its full size.
func readFrame(r io.Reader, limit int64) (frame []byte, dropped int64, err error) {
	frame, err = io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, 0, err
	}
	if int64(len(frame)) <= limit {
		return frame, 0, nil
	}
	n, err := io.Copy(io.Discard, r)
	return nil, int64(len(frame)) + n, err
}

// handleFrame decodes and answers one inbound frame. A frame that cannot be
// decoded is dropped; the session stays open.
func (s *session) handleFrame(frame []byte) {
	h := s.hub
	req, err := protocol.Decode(frame)
	if err != nil {
		h.metrics.DecodeFailed()
		slog.Warn("ws: dropping malformed frame",
			"client", s.id, "remote", s.remote, "size", len(frame), "err", err)
		return
	}
	h.metrics.Request(string(req.Type))

	reply := h.dispatch(s, req)
	msg, err := protocol.Encode(reply)
	if err != nil {
		slog.Error("ws: encode reply",
			"client", s.id, "request", req.Type, "reply", reply.Type, "err", err)
		return
	}
	if !s.enqueue(msg) {
		h.metrics.SendFailed()
		s.close(errSlowClient)
		return
	}
	h.metrics.MessageSent(string(reply.Type), 1)
}

// dispatch computes the reply to a decoded request. It only does local work.
func (h *Hub) dispatch(s *session, req protocol.Envelope) protocol.Envelope {
	switch p := req.Payload.(type) {
	case protocol.GetPortStatus:
		port, err := h.source.SubResource(p.EntityID, p.SubResourceID)
		if err != nil {
			return h.errorReply(s, req.Type, p.EntityID, p.SubResourceID, err)
		}
		return h.envelope(protocol.KindPortStatus, protocol.PortStatus{
			EntityID:      p.EntityID,
			SubResourceID: p.SubResourceID,
			Data:          port,
		})

	case protocol.GetSwitchPorts:
		entity, ok := h.lookup(p.EntityID)
		if !ok {
			return h.errorReply(s, req.Type, p.EntityID, 0, &inventory.UnknownEntityError{ID: p.EntityID})
		}
		ports, err := h.source.SubResourcesFor(p.EntityID)
		if err != nil {
			return h.errorReply(s, req.Type, p.EntityID, 0, err)
		}
		return h.envelope(protocol.KindSwitchPorts, protocol.SwitchPorts{
			EntityID:    entity.ID,
			EntityName:  entity.Name,
			TotalPorts:  len(ports),
			ActivePorts: types.CountUp(ports),
			Ports:       ports,
		})

	default:
		slog.Warn("ws: unsupported request", "client", s.id, "type", req.Type)
		return h.envelope(protocol.KindError, protocol.ErrorResponse{
			Request: req.Type,
			Code:    protocol.CodeUnsupported,
			Message: "message type " + string(req.Type) + " is not a request",
		})
	}
}

func (h *Hub) lookup(id string) (types.MonitoredEntity, bool) {
	for _, e := range h.source.CurrentEntities() {
		if e.ID == id {
			return e, true
		}
	}
	return types.MonitoredEntity{}, false
}

func (h *Hub) errorReply(s *session, req protocol.Kind, entityID string, n int, err error) protocol.Envelope {
	code := protocol.CodeInternal
	var subErr *inventory.UnknownSubResourceError
	switch {
	case errors.Is(err, inventory.ErrUnknownEntity):
		code = protocol.CodeUnknownEntity
	case errors.As(err, &subErr):
		code = protocol.CodeUnknownSubResource
	}
	slog.Info("ws: request failed",
		"client", s.id, "request", req, "entity", entityID, "sub_resource", n, "code", code, "err", err)

	return h.envelope(protocol.KindError, protocol.ErrorResponse{
		Request:       req,
		EntityID:      entityID,
		SubResourceID: n,
		Code:          code,
		Message:       err.Error(),
	})
}

// isNormalClose reports whether err is the peer closing the connection on
// purpose.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(errors.Unwrap(err),
		websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
