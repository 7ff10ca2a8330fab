package server

import (
	"errors"
	"fmt"
	"log"
)

var ErrInvalidMessage = errors.New("invalid message")

// Router applies inbound events to the registry. It never writes to storage.
type Router struct {
	registry *Registry
	log      *log.Logger
}

func NewRouter(reg *Registry, logger *log.Logger) *Router {
	return &Router{
		registry: reg,
		log:      logger,
	}
}

func (rt *Router) Registry() *Registry {
	return rt.registry
}

// Dispatch handles one event from s. The returned error is meant for
// logging only; the session keeps running either way.
func (rt *Router) Dispatch(s *Session, msg *ClientMessage) error {
	switch msg.Event {
	case EventJoinRoom:
		if msg.RoomId == "" {
			return fmt.Errorf("%w: missing room id", ErrInvalidMessage)
		}
		return rt.registry.Join(s, msg.RoomId, msg.Name)
	case EventSendChanges:
		if msg.RoomId == "" || len(msg.Delta) == 0 {
			return fmt.Errorf("%w: send-changes needs room_id and delta", ErrInvalidMessage)
		}
		_, err := rt.registry.Broadcast(s, msg.RoomId, ReceiveChanges(msg.Delta))
		return err
	case EventSendMessage:
		if msg.RoomId == "" || len(msg.Message) == 0 {
			return fmt.Errorf("%w: send-message needs room_id and message", ErrInvalidMessage)
		}
		_, err := rt.registry.Broadcast(s, msg.RoomId, ReceiveMessage(msg.Message))
		return err
	case EventLeaveRoom:
		rt.registry.Leave(s)
		return nil
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidMessage, msg.Event)
	}
}

// Disconnect releases everything held for s once its connection is gone.
func (rt *Router) Disconnect(s *Session) {
	rt.registry.Leave(s)
	rt.registry.Deregister(s)
}
