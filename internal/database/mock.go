package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRoomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRoomRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRoomRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRoomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRoomRepository) SaveRoomContent(externalId string, content []byte) (Room, error) {
	args := m.Called(externalId, content)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRoomRepository) DeleteRoom(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockRoomRepository) DeleteRoomsOlderThan(cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRoomRepository) ListPublicRooms(excludeCreatorId, limit int) ([]Room, error) {
	args := m.Called(excludeCreatorId, limit)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockRoomRepository) SearchRooms(keyword string, limit int) ([]Room, error) {
	args := m.Called(keyword, limit)
	return args.Get(0).([]Room), args.Error(1)
}
