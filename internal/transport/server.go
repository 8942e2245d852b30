package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/dokzlo13/watchface/internal/event"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ErrNotConnected is returned when no companion is connected.
var ErrNotConnected = errors.New("no companion connected")

// Server accepts companion connections, turns inbound updates into events
// and sends weather requests out.
type Server struct {
	publish  func(event.Event)
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*conn]struct{}
	previous map[uint32]int32

	connected atomic.Int32
	closed    atomic.Bool
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// NewServer creates a server publishing inbound events into publish.
func NewServer(publish func(event.Event)) *Server {
	return &Server{
		publish: publish,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:    make(map[*conn]struct{}),
		previous: make(map[uint32]int32),
	}
}

// Connected returns the number of open companion connections.
func (s *Server) Connected() int {
	return int(s.connected.Load())
}

// ServeHTTP upgrades the request and reads from the connection until it
// closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &conn{ws: ws}
	s.add(c)
	defer s.remove(c)

	log.Info().Str("addr", ws.RemoteAddr().String()).Msg("Companion connected")

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(c, done)

	s.readLoop(c)
}

func (s *Server) add(c *conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.connected.Inc()
}

func (s *Server) remove(c *conn) {
	s.mu.Lock()
	_, ok := s.conns[c]
	delete(s.conns, c)
	s.mu.Unlock()
	if ok {
		s.connected.Dec()
	}
	_ = c.ws.Close()
	log.Info().Str("addr", c.ws.RemoteAddr().String()).Msg("Companion disconnected")
}

func (s *Server) keepalive(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				log.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}

func (s *Server) readLoop(c *conn) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.publish(event.TransportError{Err: fmt.Errorf("read: %w", err)})
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		s.handle(data)
	}
}

func (s *Server) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.publish(event.TransportError{Err: fmt.Errorf("decode: %w", err)})
		return
	}
	if msg.Type != TypeUpdate {
		s.publish(event.TransportError{Err: fmt.Errorf("unexpected message type %q", msg.Type)})
		return
	}

	pairs, err := msg.Pairs()
	if err != nil {
		s.publish(event.TransportError{Err: err})
		return
	}

	for _, p := range pairs {
		s.publish(s.update(p))
	}
}

// update builds the event for p and remembers p as the latest value for its key.
func (s *Server) update(p Pair) event.SyncUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := event.SyncUpdate{Key: p.Key, Value: p.Value}
	if prev, ok := s.previous[p.Key]; ok {
		ev.Previous = &prev
	}
	s.previous[p.Key] = p.Value
	return ev
}

// RequestWeather sends a weather request to every connected companion.
func (s *Server) RequestWeather() error {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return ErrNotConnected
	}

	msg := NewWeatherRequest()
	var errs []error
	for _, c := range conns {
		if err := c.write(msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(conns) {
		return fmt.Errorf("weather request %s: %w", msg.ID, errors.Join(errs...))
	}

	log.Debug().Str("id", msg.ID).Int("companions", len(conns)).Msg("Weather requested")
	return nil
}

// Close disconnects every companion and refuses new connections.
func (s *Server) Close() {
	s.closed.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	}
}
