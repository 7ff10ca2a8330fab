package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServerMessages(t *testing.T) {
	tcases := []struct {
		name   string
		msg    *ServerMessage
		expect map[string]any
	}{
		{
			name:   "user connected",
			msg:    UserConnected("Ann"),
			expect: map[string]any{"event": "user-connected", "name": "Ann"},
		},
		{
			name:   "receive changes",
			msg:    ReceiveChanges(json.RawMessage(`{"insert":"hi"}`)),
			expect: map[string]any{"event": "receive-changes", "delta": map[string]any{"insert": "hi"}},
		},
		{
			name:   "receive message",
			msg:    ReceiveMessage(json.RawMessage(`"hello"`)),
			expect: map[string]any{"event": "receive-message", "message": "hello"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, tc.msg.Timestamp.IsZero(), "expected timestamp to be set")
			assert.Equal(t, time.UTC, tc.msg.Timestamp.Location())

			b, err := serializeMessage(tc.msg)
			assert.NoError(t, err)

			var got map[string]any
			assert.NoError(t, json.Unmarshal(b, &got))
			assert.Contains(t, got, "timestamp")
			delete(got, "timestamp")
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestClientMessage_unmarshal(t *testing.T) {
	raw := `{"event":"send-changes","room_id":"abc","delta":{"ops":[1,2,3]}}`

	var msg ClientMessage
	assert.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, EventSendChanges, msg.Event)
	assert.Equal(t, "abc", msg.RoomId)
	assert.Equal(t, `{"ops":[1,2,3]}`, string(msg.Delta))
	assert.Nil(t, msg.Message)
}
