package server

import (
	"encoding/json"
	"time"
)

// Client to server events.
const (
	EventJoinRoom    = "join-room"
	EventSendChanges = "send-changes"
	EventSendMessage = "send-message"
	EventLeaveRoom   = "leave-room"
)

// Server to client events.
const (
	EventUserConnected  = "user-connected"
	EventReceiveChanges = "receive-changes"
	EventReceiveMessage = "receive-message"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is an inbound event. Delta and Message are relayed without
// being decoded.
type ClientMessage struct {
	Event   string          `json:"event"`
	RoomId  string          `json:"room_id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Delta   json.RawMessage `json:"delta,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

type ServerMessage struct {
	BaseMessage
	Event   string          `json:"event"`
	Name    string          `json:"name,omitempty"`
	Delta   json.RawMessage `json:"delta,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

func UserConnected(name string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event:       EventUserConnected,
		Name:        name,
	}
}

func ReceiveChanges(delta json.RawMessage) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event:       EventReceiveChanges,
		Delta:       delta,
	}
}

func ReceiveMessage(msg json.RawMessage) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event:       EventReceiveMessage,
		Message:     msg,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
