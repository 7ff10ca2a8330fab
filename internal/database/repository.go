package database

import "time"

// RoomRepository is the persistence gateway. Lookups of a missing room or
// account return sql.ErrNoRows.
type RoomRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByUsername(username string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	SaveRoomContent(externalId string, content []byte) (Room, error)
	DeleteRoom(id int) error
	DeleteRoomsOlderThan(cutoff time.Time) (int64, error)
	ListPublicRooms(excludeCreatorId, limit int) ([]Room, error)
	SearchRooms(keyword string, limit int) ([]Room, error)
}
