package server

import "sync"

// room is the member set of one room id. mu covers both membership changes
// and fan-out so the two are linearizable.
type room struct {
	id      string
	mu      sync.Mutex
	members map[*Session]struct{}
	// closed is set once the room has been dropped from the registry.
	closed bool
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		members: make(map[*Session]struct{}),
	}
}

// broadcast queues msg for every member except skip and returns the number
// of members it was queued for. The caller must hold r.mu.
func (r *room) broadcast(msg *ServerMessage, skip *Session) int {
	n := 0
	for s := range r.members {
		if s == skip {
			continue
		}

		if s.queueMessage(msg) {
			n++
		}
	}

	return n
}
