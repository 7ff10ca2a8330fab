package api

import (
	"context"
	"testing"
	"time"

	"github.com/npezzotti/go-docroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("correct horse")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash, "expected password to be hashed")

	assert.True(t, verifyPassword(hash, "correct horse"))
	assert.False(t, verifyPassword(hash, "battery staple"))
	assert.False(t, verifyPassword("not-a-hash", "correct horse"))
}

func TestJwtRoundTrip(t *testing.T) {
	app := &DocRoomApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(types.User{Id: 12}, time.Hour)
	assert.NoError(t, err)

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err)
	assert.Equal(t, 12, userId)

	other := &DocRoomApp{signingKey: []byte("another-key")}
	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err, "expected token from another key to be rejected")

	_, err = app.extractUserIdFromToken("")
	assert.Error(t, err)
}

func TestCreateJwtCookie(t *testing.T) {
	cookie := createJwtCookie("abc", time.Hour)

	assert.Equal(t, tokenCookieKey, cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Expires.After(time.Now()))
}
