package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const roomColumns = "id, external_id, creator_id, creator_name, public, tag, description, content, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.CreatorId,
		&room.CreatorName,
		&room.Public,
		&room.Tag,
		&room.Description,
		&room.Content,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func scanRooms(rows *sql.Rows) ([]Room, error) {
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func (db *PgRoomRepository) CreateAccount(params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO accounts (username, display_name, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, display_name, created_at, updated_at",
		params.Username,
		params.DisplayName,
		params.PasswordHash,
		now,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.DisplayName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("username %q: %w", params.Username, ErrDuplicate)
	}

	return u, err
}

func (db *PgRoomRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgRoomRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, password_hash, created_at, updated_at FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	content := params.Content
	if len(content) == 0 {
		content = []byte(`""`)
	}

	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO rooms (external_id, creator_id, creator_name, public, tag, description, content, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $8) RETURNING "+roomColumns,
		params.ExternalId,
		params.CreatorId,
		params.CreatorName,
		params.Public,
		params.Tag,
		params.Description,
		// lib/pq would send []byte as bytea
		string(content),
		now,
	)

	return scanRoom(row)
}

func (db *PgRoomRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanRoom(row)
}

// SaveRoomContent overwrites the content of an existing room. It never
// creates a room; a missing room yields sql.ErrNoRows.
func (db *PgRoomRepository) SaveRoomContent(externalId string, content []byte) (Room, error) {
	row := db.conn.QueryRow(
		"UPDATE rooms SET content = $2::jsonb, updated_at = $3 "+
			"WHERE external_id = $1 RETURNING "+roomColumns,
		externalId,
		string(content),
		time.Now().UTC(),
	)

	return scanRoom(row)
}

func (db *PgRoomRepository) DeleteRoom(id int) error {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgRoomRepository) DeleteRoomsOlderThan(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE updated_at < $1", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete rooms: %w", err)
	}

	return res.RowsAffected()
}

func (db *PgRoomRepository) ListPublicRooms(excludeCreatorId, limit int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT "+roomColumns+" FROM rooms "+
			"WHERE public AND creator_id <> $1 ORDER BY created_at DESC LIMIT $2",
		excludeCreatorId,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list public rooms: %w", err)
	}

	return scanRooms(rows)
}

func (db *PgRoomRepository) SearchRooms(keyword string, limit int) ([]Room, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	rows, err := db.conn.Query(
		"SELECT "+roomColumns+" FROM rooms "+
			"WHERE public AND (creator_name ILIKE $1 OR tag ILIKE $1 OR description ILIKE $1) "+
			"ORDER BY updated_at DESC LIMIT $2",
		pattern,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}

	return scanRooms(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
