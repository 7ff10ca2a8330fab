package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-docroom/internal/types"
)

// MaxMessageSize bounds one inbound frame. The HTTP save route uses the same
// limit for document bodies.
const MaxMessageSize = 5 << 20

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Session is one live websocket connection and its room membership.
type Session struct {
	id       uuid.UUID
	conn     *websocket.Conn
	router   *Router
	log      *log.Logger
	user     types.User
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	roomId string
	name   string
}

func NewSession(user types.User, conn *websocket.Conn, router *Router, l *log.Logger) *Session {
	return &Session{
		id:     uuid.New(),
		conn:   conn,
		router: router,
		log:    l,
		user:   user,
		send:   make(chan *ServerMessage, sendBufferSize),
		stop:   make(chan struct{}),
	}
}

func (s *Session) Id() uuid.UUID {
	return s.id
}

// RoomId returns the room the session is in, or "" if none.
func (s *Session) RoomId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomId
}

// DisplayName returns the name given when joining the current room.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setRoom(roomId, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomId = roomId
	s.name = name
}

func (s *Session) defaultName() string {
	if s.user.DisplayName != "" {
		return s.user.DisplayName
	}
	return s.user.Username
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				s.log.Printf("session %s: serialize message: %v", s.id, err)
				continue
			}

			if !s.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait),
			)
			return
		case <-ticker.C:
			if !s.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read decodes inbound events and hands them to the router until the
// connection fails. A bad event is logged and skipped.
func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.cleanup()
	}()

	s.conn.SetReadLimit(MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("session %s: read: %v", s.id, err)
			}
			break
		}

		s.handleRaw(raw)
	}
}

func (s *Session) handleRaw(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Printf("session %s: dropping unparsable message: %v", s.id, err)
		return
	}

	if err := s.router.Dispatch(s, &msg); err != nil {
		s.log.Printf("session %s: dropping %q event: %v", s.id, msg.Event, err)
	}
}

// queueMessage enqueues msg without blocking. It reports false when the
// outbound buffer is full and the message was dropped.
func (s *Session) queueMessage(msg *ServerMessage) bool {
	select {
	case s.send <- msg:
	default:
		s.log.Printf("session %s: send buffer full, dropping %q", s.id, msg.Event)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (s *Session) sendMessage(msgType int, msg []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("session %s: write message: %s", s.id, err)
		}
		return false
	}

	return true
}

func (s *Session) stopSession() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// cleanup drops the membership before stopping so nothing more is queued
// for this session.
func (s *Session) cleanup() {
	s.router.Disconnect(s)
	s.stopSession()
}
