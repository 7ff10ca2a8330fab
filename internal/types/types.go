package types

import (
	"encoding/json"
	"time"
)

type User struct {
	Id          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Password    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Room is the client-facing view of a persisted room. Id is the external id;
// the database key is never exposed.
type Room struct {
	Id          string          `json:"id"`
	CreatorId   int             `json:"creator_id"`
	CreatorName string          `json:"creator_name"`
	Public      bool            `json:"public"`
	Tag         string          `json:"tag"`
	Description string          `json:"description"`
	Content     json.RawMessage `json:"content,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}
