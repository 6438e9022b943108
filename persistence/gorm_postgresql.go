// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/partybox/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormPlayer{}, &models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) CreateRoom(room *models.Room) error {
	raw, err := models.EncodeState(room.State)
	if err != nil {
		return err
	}
	rec := models.GormRoom{
		Code:           room.Code,
		GameSlug:       room.GameSlug,
		Status:         string(room.Status),
		State:          raw,
		LastActivityAt: room.LastActivityAt.Unix(),
	}
	if err := p.db.Create(&rec).Error; err != nil {
		return err
	}
	room.ID = int64(rec.ID)
	room.CreatedAt = rec.CreatedAt
	return nil
}

func (p *GormPostgreSQL) GetRoom(code string) (*models.Room, error) {
	var rec models.GormRoom
	if err := p.db.Where("code = ?", code).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return gormRoomToModel(&rec)
}

func gormRoomToModel(rec *models.GormRoom) (*models.Room, error) {
	state, err := models.DecodeRoomState(rec.GameSlug, rec.State)
	if err != nil {
		return nil, err
	}
	return &models.Room{
		ID:             int64(rec.ID),
		Code:           rec.Code,
		GameSlug:       rec.GameSlug,
		Status:         models.RoomStatus(rec.Status),
		State:          state,
		CreatedAt:      rec.CreatedAt,
		LastActivityAt: time.Unix(rec.LastActivityAt, 0),
	}, nil
}

func (p *GormPostgreSQL) SaveRoom(room *models.Room, fields ...string) error {
	updates := map[string]any{}
	if fieldRequested(fields, "game_slug") {
		updates["game_slug"] = room.GameSlug
	}
	if fieldRequested(fields, "status") {
		updates["status"] = string(room.Status)
	}
	if fieldRequested(fields, "state") {
		raw, err := models.EncodeState(room.State)
		if err != nil {
			return err
		}
		updates["state"] = raw
	}
	if fieldRequested(fields, "last_activity_at") {
		updates["last_activity_at"] = room.LastActivityAt.Unix()
	}
	res := p.db.Model(&models.GormRoom{}).Where("id = ?", room.ID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if fieldRequested(fields, "status") && room.Status == models.StatusEnded {
		p.archiveGame(room)
	}
	return nil
}

// archiveGame 把结束局的最终状态归档为游戏记录。归档失败不影响房间落盘。
func (p *GormPostgreSQL) archiveGame(room *models.Room) {
	raw, err := models.EncodeState(room.State)
	if err != nil {
		return
	}
	rec := models.GormGameRecord{
		RoomCode: room.Code,
		GameSlug: room.GameSlug,
		Result:   raw,
		Duration: int(room.LastActivityAt.Sub(room.CreatedAt).Seconds()),
	}
	_ = p.db.Create(&rec).Error
}

func (p *GormPostgreSQL) RoomCodeExists(code string) (bool, error) {
	var count int64
	err := p.db.Model(&models.GormRoom{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (p *GormPostgreSQL) CountRooms(status models.RoomStatus) (int64, error) {
	var count int64
	err := p.db.Model(&models.GormRoom{}).Where("status = ?", string(status)).Count(&count).Error
	return count, err
}

func (p *GormPostgreSQL) CreatePlayer(player *models.Player) error {
	raw, err := models.EncodeState(player.State)
	if err != nil {
		return err
	}
	rec := models.GormPlayer{
		RoomID:     uint(player.RoomID),
		UserID:     player.UserID,
		Name:       player.Name,
		DeviceID:   player.DeviceID,
		IsHost:     player.IsHost,
		Ready:      player.Ready,
		State:      raw,
		JoinedAt:   player.JoinedAt.Unix(),
		LastSeenAt: player.LastSeenAt.Unix(),
	}
	if err := p.db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePlayer
		}
		return err
	}
	player.ID = int64(rec.ID)
	return nil
}

func (p *GormPostgreSQL) GetPlayer(roomID, userID int64) (*models.Player, error) {
	slug, err := p.roomSlug(roomID)
	if err != nil {
		return nil, err
	}
	var rec models.GormPlayer
	if err := p.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return gormPlayerToModel(slug, &rec)
}

func (p *GormPostgreSQL) ListPlayers(roomID int64) ([]*models.Player, error) {
	slug, err := p.roomSlug(roomID)
	if err != nil {
		return nil, err
	}
	var recs []models.GormPlayer
	if err := p.db.Where("room_id = ?", roomID).Order("id asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Player, 0, len(recs))
	for i := range recs {
		player, err := gormPlayerToModel(slug, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, player)
	}
	return out, nil
}

func gormPlayerToModel(slug string, rec *models.GormPlayer) (*models.Player, error) {
	state, err := models.DecodePlayerState(slug, rec.State)
	if err != nil {
		return nil, err
	}
	return &models.Player{
		ID:         int64(rec.ID),
		RoomID:     int64(rec.RoomID),
		UserID:     rec.UserID,
		Name:       rec.Name,
		DeviceID:   rec.DeviceID,
		IsHost:     rec.IsHost,
		Ready:      rec.Ready,
		State:      state,
		JoinedAt:   time.Unix(rec.JoinedAt, 0),
		LastSeenAt: time.Unix(rec.LastSeenAt, 0),
	}, nil
}

func (p *GormPostgreSQL) SavePlayer(player *models.Player, fields ...string) error {
	updates := map[string]any{}
	if fieldRequested(fields, "name") {
		updates["name"] = player.Name
	}
	if fieldRequested(fields, "device_id") {
		updates["device_id"] = player.DeviceID
	}
	if fieldRequested(fields, "ready") {
		updates["ready"] = player.Ready
	}
	if fieldRequested(fields, "state") {
		raw, err := models.EncodeState(player.State)
		if err != nil {
			return err
		}
		updates["state"] = raw
	}
	if fieldRequested(fields, "last_seen_at") {
		updates["last_seen_at"] = player.LastSeenAt.Unix()
	}
	res := p.db.Model(&models.GormPlayer{}).Where("id = ?", player.ID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *GormPostgreSQL) roomSlug(roomID int64) (string, error) {
	var rec models.GormRoom
	if err := p.db.Select("game_slug").Where("id = ?", roomID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return rec.GameSlug, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
