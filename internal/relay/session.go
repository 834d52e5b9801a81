// Package relay manages individual WebSocket sessions, handling read/write
// pumps, topic forwarding, rate limiting, and lifecycle control for each
// connection.
package relay

import (
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Session owns one WebSocket connection: its authenticated identity, its
// current party membership, the bounded send queue, and the goroutine pair
// that services the connection. Protocol state (partyID, sub) is mutated only
// by the read-pump goroutine, which runs the message router.
type Session struct {
	id    string
	conn  *websocket.Conn
	relay *Relay
	addr  string

	userID int
	name   string

	// Protocol state machine: partyID == 0 means authenticated but not yet
	// joined; sub is non-nil exactly while joined.
	partyID int
	sub     *Subscription

	send      chan []byte
	closeOnce sync.Once

	maxMessageSize int64
	limiter        *rateLimiter
	rateLimit      RateLimitConfig
}

// NewSession creates a Session for an authenticated connection. The send
// queue is buffered to the configured depth; overflow is fatal to the
// connection.
func NewSession(conn *websocket.Conn, relay *Relay, userID int, name, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Session{
		id:             uuid.NewString(),
		conn:           conn,
		relay:          relay,
		addr:           addr,
		userID:         userID,
		name:           name,
		send:           make(chan []byte, cfg.SendQueueSize),
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newRateLimiter(cfg.RateBurst, cfg.RateInterval),
		rateLimit:      cfg.RateLimit(),
	}
}

// UserID returns the session's authenticated user id. It never changes after
// the handshake.
func (s *Session) UserID() int {
	return s.userID
}

// enqueue places a frame on the send queue for the write pump. It reports
// false when the queue is full or already closed; the caller treats either as
// the remote peer being gone or unresponsive.
func (s *Session) enqueue(payload []byte) (ok bool) {
	if payload == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// startForwarder launches the goroutine that moves broadcasts from a topic
// subscription onto this session's send queue. It exits when the subscription
// is released, which closes its channel.
func (s *Session) startForwarder(sub *Subscription) {
	s.relay.wg.Add(1)
	go func() {
		defer s.relay.wg.Done()
		for payload := range sub.C {
			if !s.enqueue(payload) {
				// The peer stopped draining its queue; give up on the
				// connection and let the read pump run cleanup.
				log.Printf("Send queue full for %s; closing connection", s.addr)
				if s.conn != nil {
					_ = s.conn.Close()
				}
				return
			}
		}
	}()
}

// leaveParty drops the current topic subscription, if any, and clears the
// presence entry. With notify set, a Disconnect frame is broadcast to the
// remaining party members first; delivery is best effort.
func (s *Session) leaveParty(notify bool) {
	if s.sub == nil {
		return
	}
	if notify {
		s.relay.topics.Publish(s.partyID, encodeMessage(Message{
			Type:   TypeDisconnect,
			UserID: s.userID,
		}), s.sub.id)
	}
	s.relay.topics.Release(s.partyID, s.sub.id)
	s.relay.presence.Remove(s.userID)
	s.sub = nil
	s.partyID = 0
}

// cleanup tears the session down exactly once: best-effort departure
// notification, topic release, presence removal, unregistration, and queue
// closure. Both the explicit Disconnect path and the transport-close path end
// here, so the topic refcount can never decrement twice.
func (s *Session) cleanup() {
	s.closeOnce.Do(func() {
		s.leaveParty(true)

		select {
		case s.relay.unregister <- s:
		case <-s.relay.ctx.Done():
		}

		close(s.send)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// setupReadConnection configures the read deadline and pong handler.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongTimeout)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", s.addr, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongTimeout)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", s.addr, err)
		}
		return nil
	})
}

// logReadError logs the read failure that ends the inbound loop with an
// appropriate level of alarm.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", s.addr, s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Session %s disconnected: %v", s.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Printf("Session %s connection closed: %v", s.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", s.addr, err)
	}
}

// checkRateLimit reports whether the next inbound message may be processed.
func (s *Session) checkRateLimit() bool {
	if s.limiter != nil && !s.limiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message",
			s.addr, s.rateLimit.Burst, s.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump is the inbound loop: it reads frames, applies rate limiting, and
// feeds them to the router. Any read error ends the loop and triggers the
// implicit-disconnect cleanup path.
func (s *Session) readPump() {
	defer s.cleanup()

	s.setupReadConnection()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			break
		}
		if !s.checkRateLimit() {
			continue
		}
		s.handleFrame(raw)
	}
}

// writePump is the outbound loop: it owns the physical write side exclusively
// and drains the send queue in enqueue order, interleaving keepalive pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.closeConnection()
	}()

	for {
		select {
		case payload, queueOpen := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", s.addr, err)
				return
			}
			if !queueOpen {
				s.writeCloseMessage()
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing message to %s: %v", s.addr, err)
				}
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", s.addr, err)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing ping message to %s: %v", s.addr, err)
				}
				return
			}
		}
	}
}

// writeCloseMessage sends a close frame to the client.
func (s *Session) writeCloseMessage() {
	if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", s.addr, err)
		}
	}
}

// closeConnection closes the WebSocket connection with proper error handling.
func (s *Session) closeConnection() {
	if err := s.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
