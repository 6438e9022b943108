// models/gorm_models.go
package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// GormRoom 房间模型
type GormRoom struct {
	gorm.Model
	Code           string          `gorm:"uniqueIndex;not null"`
	GameSlug       string          `gorm:"not null"`
	Status         string          `gorm:"not null"`
	State          json.RawMessage `gorm:"type:jsonb"`
	LastActivityAt int64           `gorm:"not null"`
}

// GormPlayer 玩家模型
type GormPlayer struct {
	gorm.Model
	RoomID     uint            `gorm:"index:idx_room_user,unique;not null"`
	UserID     int64           `gorm:"index:idx_room_user,unique;not null"`
	Name       string          `gorm:"not null"`
	DeviceID   string          `gorm:"default:''"`
	IsHost     bool            `gorm:"default:false"`
	Ready      bool            `gorm:"default:false"`
	State      json.RawMessage `gorm:"type:jsonb"`
	JoinedAt   int64           `gorm:"not null"`
	LastSeenAt int64           `gorm:"not null"`
}

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomCode string          `gorm:"index;not null"`
	GameSlug string          `gorm:"not null"`
	Result   json.RawMessage `gorm:"type:jsonb;not null"`
	Duration int             `gorm:"default:0"` // 游戏时长(秒)
}
