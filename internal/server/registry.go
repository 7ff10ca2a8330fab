package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/npezzotti/go-docroom/internal/stats"
)

const (
	activeRoomsMetric    = "ActiveRooms"
	activeSessionsMetric = "ActiveSessions"
)

var (
	ErrNotMember     = errors.New("session is not a member of the room")
	ErrEmptyRoomId   = errors.New("room id cannot be empty")
	ErrShuttingDown  = errors.New("registry is shutting down")
	errSessionExists = errors.New("session already registered")
)

// Registry tracks live sessions and which room each of them is in. A
// session belongs to at most one room; joining a room leaves the previous
// one. Lock order is Registry.mu, then room.mu, then Session.mu.
type Registry struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu       sync.Mutex
	rooms    map[string]*room
	sessions map[*Session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

func NewRegistry(logger *log.Logger, su stats.StatsProvider) *Registry {
	su.RegisterMetric(activeRoomsMetric)
	su.RegisterMetric(activeSessionsMetric)

	return &Registry{
		log:      logger,
		stats:    su,
		rooms:    make(map[string]*room),
		sessions: make(map[*Session]struct{}),
	}
}

// Register adds a live session. It fails once Shutdown has started.
func (reg *Registry) Register(s *Session) error {
	reg.mu.Lock()
	if reg.closing {
		reg.mu.Unlock()
		return ErrShuttingDown
	}
	if _, ok := reg.sessions[s]; ok {
		reg.mu.Unlock()
		return errSessionExists
	}
	reg.sessions[s] = struct{}{}
	reg.wg.Add(1)
	reg.mu.Unlock()

	reg.stats.Incr(activeSessionsMetric)
	reg.log.Printf("registered session %s for %q", s.id, s.user.Username)
	return nil
}

// Deregister forgets a session. Calling it twice is a no-op.
func (reg *Registry) Deregister(s *Session) {
	reg.mu.Lock()
	_, ok := reg.sessions[s]
	if ok {
		delete(reg.sessions, s)
		reg.wg.Done()
	}
	reg.mu.Unlock()

	if ok {
		reg.stats.Decr(activeSessionsMetric)
		reg.log.Printf("deregistered session %s", s.id)
	}
}

// Join puts s into roomId, leaving any other room first, and notifies the
// other members with a user-connected event. An empty displayName falls
// back to the session's account name.
func (reg *Registry) Join(s *Session, roomId, displayName string) error {
	if roomId == "" {
		return ErrEmptyRoomId
	}

	if cur := s.RoomId(); cur != "" && cur != roomId {
		reg.Leave(s)
	}

	if displayName == "" {
		displayName = s.defaultName()
	}

	for {
		r := reg.getOrCreateRoom(roomId)

		r.mu.Lock()
		if r.closed {
			// emptied and dropped between lookup and lock
			r.mu.Unlock()
			continue
		}

		r.members[s] = struct{}{}
		s.setRoom(roomId, displayName)
		n := r.broadcast(UserConnected(displayName), s)
		r.mu.Unlock()

		reg.log.Printf("session %s joined room %q as %q, notified %d members", s.id, roomId, displayName, n)
		return nil
	}
}

// Leave removes s from its current room without notifying anyone. It is a
// no-op for a session that is not in a room.
func (reg *Registry) Leave(s *Session) {
	roomId := s.RoomId()
	if roomId == "" {
		return
	}

	reg.mu.Lock()
	r, ok := reg.rooms[roomId]
	reg.mu.Unlock()

	if !ok {
		s.setRoom("", "")
		return
	}

	r.mu.Lock()
	delete(r.members, s)
	s.setRoom("", "")
	empty := len(r.members) == 0
	r.mu.Unlock()

	reg.log.Printf("session %s left room %q", s.id, roomId)

	if empty {
		reg.dropIfEmpty(r)
	}
}

// Broadcast queues msg for every member of roomId except sender. The sender
// has to be a member of roomId itself, otherwise nothing is sent and
// ErrNotMember is returned.
func (reg *Registry) Broadcast(sender *Session, roomId string, msg *ServerMessage) (int, error) {
	reg.mu.Lock()
	r, ok := reg.rooms[roomId]
	reg.mu.Unlock()

	if !ok {
		return 0, ErrNotMember
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, member := r.members[sender]; !member {
		return 0, ErrNotMember
	}

	return r.broadcast(msg, sender), nil
}

// MembersOf returns a snapshot of the members of roomId other than exclude.
func (reg *Registry) MembersOf(roomId string, exclude *Session) []*Session {
	reg.mu.Lock()
	r, ok := reg.rooms[roomId]
	reg.mu.Unlock()

	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]*Session, 0, len(r.members))
	for s := range r.members {
		if s != exclude {
			members = append(members, s)
		}
	}

	return members
}

// NumRooms returns the number of rooms with at least one member.
func (reg *Registry) NumRooms() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Shutdown stops every registered session and waits until all of them have
// deregistered or ctx is done.
func (reg *Registry) Shutdown(ctx context.Context) error {
	reg.mu.Lock()
	reg.closing = true
	sessions := make([]*Session, 0, len(reg.sessions))
	for s := range reg.sessions {
		sessions = append(sessions, s)
	}
	reg.mu.Unlock()

	reg.log.Printf("stopping %d sessions", len(sessions))
	for _, s := range sessions {
		s.stopSession()
	}

	done := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (reg *Registry) getOrCreateRoom(roomId string) *room {
	reg.mu.Lock()
	r, ok := reg.rooms[roomId]
	if !ok {
		r = newRoom(roomId)
		reg.rooms[roomId] = r
	}
	reg.mu.Unlock()

	if !ok {
		reg.stats.Incr(activeRoomsMetric)
		reg.log.Printf("created room %q", roomId)
	}

	return r
}

func (reg *Registry) dropIfEmpty(r *room) {
	reg.mu.Lock()
	r.mu.Lock()
	dropped := false
	if len(r.members) == 0 && !r.closed {
		r.closed = true
		delete(reg.rooms, r.id)
		dropped = true
	}
	r.mu.Unlock()
	reg.mu.Unlock()

	if dropped {
		reg.stats.Decr(activeRoomsMetric)
		reg.log.Printf("dropped empty room %q", r.id)
	}
}
