package database

import "time"

type Room struct {
	Id          int
	ExternalId  string
	CreatorId   int
	CreatorName string
	Public      bool
	Tag         string
	Description string
	// Content is an opaque JSON document, stored as-is.
	Content   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	Id           int
	Username     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	DisplayName  string
	PasswordHash string
}

type CreateRoomParams struct {
	ExternalId  string
	CreatorId   int
	CreatorName string
	Public      bool
	Tag         string
	Description string
	Content     []byte
}
