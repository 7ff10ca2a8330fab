package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatch(t *testing.T) {
	tcases := []struct {
		name    string
		msg     *ClientMessage
		wantErr error
	}{
		{
			name:    "unknown event",
			msg:     &ClientMessage{Event: "rename-room", RoomId: "abc"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "empty event",
			msg:     &ClientMessage{},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "join without room id",
			msg:     &ClientMessage{Event: EventJoinRoom, Name: "Ann"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "changes without room id",
			msg:     &ClientMessage{Event: EventSendChanges, Delta: json.RawMessage(`{}`)},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "changes without delta",
			msg:     &ClientMessage{Event: EventSendChanges, RoomId: "abc"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "message without payload",
			msg:     &ClientMessage{Event: EventSendMessage, RoomId: "abc"},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "changes from non member",
			msg:     &ClientMessage{Event: EventSendChanges, RoomId: "abc", Delta: json.RawMessage(`{}`)},
			wantErr: ErrNotMember,
		},
		{
			name:    "message from non member",
			msg:     &ClientMessage{Event: EventSendMessage, RoomId: "abc", Message: json.RawMessage(`"hi"`)},
			wantErr: ErrNotMember,
		},
		{
			name: "leave without room",
			msg:  &ClientMessage{Event: EventLeaveRoom},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newTestRouter(t)
			other := newTestSession(t, rt, 1, "alice")
			assert.NoError(t, rt.Registry().Join(other, "abc", ""))

			s := newTestSession(t, rt, 2, "bob")
			err := rt.Dispatch(s, tc.msg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Empty(t, drain(other), "expected nothing to be delivered")
			assert.Equal(t, "", s.RoomId())
		})
	}
}

func TestDispatch_relaysPayloadVerbatim(t *testing.T) {
	rt := newTestRouter(t)
	a := newTestSession(t, rt, 1, "alice")
	b := newTestSession(t, rt, 2, "bob")

	assert.NoError(t, rt.Dispatch(a, &ClientMessage{Event: EventJoinRoom, RoomId: "abc", Name: "Ann"}))
	assert.NoError(t, rt.Dispatch(b, &ClientMessage{Event: EventJoinRoom, RoomId: "abc", Name: "Ben"}))
	drain(a)

	delta := json.RawMessage(`{"ops":[{"retain":3},{"insert":"x","attributes":{"bold":true}}]}`)
	assert.NoError(t, rt.Dispatch(b, &ClientMessage{Event: EventSendChanges, RoomId: "abc", Delta: delta}))
	assert.NoError(t, rt.Dispatch(b, &ClientMessage{Event: EventSendChanges, RoomId: "abc", Delta: json.RawMessage(`null`)}))
	assert.NoError(t, rt.Dispatch(b, &ClientMessage{Event: EventSendMessage, RoomId: "abc", Message: json.RawMessage(`"hello"`)}))

	msgs := drain(a)
	if assert.Len(t, msgs, 3) {
		assert.Equal(t, EventReceiveChanges, msgs[0].Event)
		assert.Equal(t, string(delta), string(msgs[0].Delta))
		assert.Equal(t, EventReceiveChanges, msgs[1].Event)
		assert.Equal(t, "null", string(msgs[1].Delta))
		assert.Equal(t, EventReceiveMessage, msgs[2].Event)
		assert.Equal(t, `"hello"`, string(msgs[2].Message))
	}
	assert.Empty(t, drain(b), "expected sender not to receive its own events")
}

func TestDispatch_leaveRoom(t *testing.T) {
	rt := newTestRouter(t)
	a := newTestSession(t, rt, 1, "alice")
	b := newTestSession(t, rt, 2, "bob")

	assert.NoError(t, rt.Dispatch(a, &ClientMessage{Event: EventJoinRoom, RoomId: "abc"}))
	assert.NoError(t, rt.Dispatch(b, &ClientMessage{Event: EventJoinRoom, RoomId: "abc"}))
	drain(a)

	assert.NoError(t, rt.Dispatch(a, &ClientMessage{Event: EventLeaveRoom}))
	assert.Equal(t, "", a.RoomId())
	assert.Empty(t, drain(b), "expected leave not to be announced")

	err := rt.Dispatch(a, &ClientMessage{Event: EventSendChanges, RoomId: "abc", Delta: json.RawMessage(`1`)})
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Empty(t, drain(b))
}

func TestDisconnect(t *testing.T) {
	rt := newTestRouter(t)
	reg := rt.Registry()
	a := newTestSession(t, rt, 1, "alice")
	b := newTestSession(t, rt, 2, "bob")

	assert.NoError(t, reg.Register(a))
	assert.NoError(t, reg.Join(a, "abc", ""))
	assert.NoError(t, reg.Join(b, "abc", ""))

	rt.Disconnect(a)
	rt.Disconnect(a)

	assert.Equal(t, []*Session{b}, reg.MembersOf("abc", nil))
	assert.NotContains(t, reg.sessions, a)

	_, err := reg.Broadcast(b, "abc", ReceiveChanges(json.RawMessage(`1`)))
	assert.NoError(t, err)
	assert.Empty(t, drain(a), "expected no delivery after disconnect")
}
