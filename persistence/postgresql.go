// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	"github.com/lib/pq"

	"github.com/wfunc/partybox/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	// 创建房间表
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id BIGSERIAL PRIMARY KEY,
            code VARCHAR(16) UNIQUE NOT NULL,
            game_slug VARCHAR(100) NOT NULL,
            status VARCHAR(50) NOT NULL,
            state JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            last_activity_at BIGINT NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	// 创建玩家表
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id BIGSERIAL PRIMARY KEY,
            room_id BIGINT NOT NULL REFERENCES rooms(id),
            user_id BIGINT NOT NULL,
            name VARCHAR(255) NOT NULL,
            device_id VARCHAR(255) NOT NULL DEFAULT '',
            is_host BOOLEAN NOT NULL DEFAULT FALSE,
            ready BOOLEAN NOT NULL DEFAULT FALSE,
            state JSONB NOT NULL,
            joined_at BIGINT NOT NULL,
            last_seen_at BIGINT NOT NULL,
            UNIQUE (room_id, user_id)
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(code);
        CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms(status);
        CREATE INDEX IF NOT EXISTS idx_players_room_id ON players(room_id);
    `)

	return err
}

// CreateRoom 创建房间记录
func (p *PostgreSQL) CreateRoom(room *models.Room) error {
	raw, err := models.EncodeState(room.State)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO rooms (code, game_slug, status, state, last_activity_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	return p.db.QueryRowContext(ctx, query,
		room.Code, room.GameSlug, string(room.Status), []byte(raw),
		room.LastActivityAt.Unix()).Scan(&room.ID, &room.CreatedAt)
}

// GetRoom 按房间号加载房间
func (p *PostgreSQL) GetRoom(code string) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	room := &models.Room{}
	var status string
	var raw []byte
	var lastActivity int64
	query := `
        SELECT id, code, game_slug, status, state, created_at, last_activity_at
        FROM rooms WHERE code = $1
    `
	err := p.db.QueryRowContext(ctx, query, code).Scan(
		&room.ID, &room.Code, &room.GameSlug, &status, &raw,
		&room.CreatedAt, &lastActivity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	room.Status = models.RoomStatus(status)
	room.LastActivityAt = time.Unix(lastActivity, 0)
	room.State, err = models.DecodeRoomState(room.GameSlug, raw)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// SaveRoom 按字段更新房间
func (p *PostgreSQL) SaveRoom(room *models.Room, fields ...string) error {
	set := ""
	args := []interface{}{}
	add := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		args = append(args, value)
		set += fmt.Sprintf("%s = $%d", column, len(args))
	}
	if fieldRequested(fields, "game_slug") {
		add("game_slug", room.GameSlug)
	}
	if fieldRequested(fields, "status") {
		add("status", string(room.Status))
	}
	if fieldRequested(fields, "state") {
		raw, err := models.EncodeState(room.State)
		if err != nil {
			return err
		}
		add("state", []byte(raw))
	}
	if fieldRequested(fields, "last_activity_at") {
		add("last_activity_at", room.LastActivityAt.Unix())
	}
	if set == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	args = append(args, room.ID)
	query := fmt.Sprintf("UPDATE rooms SET %s WHERE id = $%d", set, len(args))
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RoomCodeExists 检查房间号是否已被占用
func (p *PostgreSQL) RoomCodeExists(code string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`
	err := p.db.QueryRowContext(ctx, query, code).Scan(&exists)
	return exists, err
}

// CountRooms 统计指定状态的房间数
func (p *PostgreSQL) CountRooms(status models.RoomStatus) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int64
	query := `SELECT COUNT(*) FROM rooms WHERE status = $1`
	err := p.db.QueryRowContext(ctx, query, string(status)).Scan(&count)
	return count, err
}

// CreatePlayer 创建玩家记录
func (p *PostgreSQL) CreatePlayer(player *models.Player) error {
	raw, err := models.EncodeState(player.State)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO players (room_id, user_id, name, device_id, is_host, ready, state, joined_at, last_seen_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	err = p.db.QueryRowContext(ctx, query,
		player.RoomID, player.UserID, player.Name, player.DeviceID,
		player.IsHost, player.Ready, []byte(raw),
		player.JoinedAt.Unix(), player.LastSeenAt.Unix()).Scan(&player.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicatePlayer
		}
		return err
	}
	return nil
}

// GetPlayer 按房间和用户加载玩家
func (p *PostgreSQL) GetPlayer(roomID, userID int64) (*models.Player, error) {
	slug, err := p.roomSlug(roomID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, room_id, user_id, name, device_id, is_host, ready, state, joined_at, last_seen_at
        FROM players WHERE room_id = $1 AND user_id = $2
    `
	row := p.db.QueryRowContext(ctx, query, roomID, userID)
	player, err := scanPlayer(slug, row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return player, err
}

// ListPlayers 按加入顺序列出房间内的玩家
func (p *PostgreSQL) ListPlayers(roomID int64) ([]*models.Player, error) {
	slug, err := p.roomSlug(roomID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT id, room_id, user_id, name, device_id, is_host, ready, state, joined_at, last_seen_at
        FROM players WHERE room_id = $1 ORDER BY id ASC
    `
	rows, err := p.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []*models.Player{}
	for rows.Next() {
		player, err := scanPlayer(slug, rows.Scan)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func scanPlayer(slug string, scan func(...interface{}) error) (*models.Player, error) {
	player := &models.Player{}
	var raw []byte
	var joined, seen int64
	err := scan(&player.ID, &player.RoomID, &player.UserID, &player.Name,
		&player.DeviceID, &player.IsHost, &player.Ready, &raw, &joined, &seen)
	if err != nil {
		return nil, err
	}
	player.JoinedAt = time.Unix(joined, 0)
	player.LastSeenAt = time.Unix(seen, 0)
	player.State, err = models.DecodePlayerState(slug, raw)
	if err != nil {
		return nil, err
	}
	return player, nil
}

// SavePlayer 按字段更新玩家
func (p *PostgreSQL) SavePlayer(player *models.Player, fields ...string) error {
	set := ""
	args := []interface{}{}
	add := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		args = append(args, value)
		set += fmt.Sprintf("%s = $%d", column, len(args))
	}
	if fieldRequested(fields, "name") {
		add("name", player.Name)
	}
	if fieldRequested(fields, "device_id") {
		add("device_id", player.DeviceID)
	}
	if fieldRequested(fields, "ready") {
		add("ready", player.Ready)
	}
	if fieldRequested(fields, "state") {
		raw, err := models.EncodeState(player.State)
		if err != nil {
			return err
		}
		add("state", []byte(raw))
	}
	if fieldRequested(fields, "last_seen_at") {
		add("last_seen_at", player.LastSeenAt.Unix())
	}
	if set == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	args = append(args, player.ID)
	query := fmt.Sprintf("UPDATE players SET %s WHERE id = $%d", set, len(args))
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgreSQL) roomSlug(roomID int64) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var slug string
	err := p.db.QueryRowContext(ctx, `SELECT game_slug FROM rooms WHERE id = $1`, roomID).Scan(&slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	return slug, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
