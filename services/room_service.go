// services/room_service.go
package services

import (
	"github.com/wfunc/partybox/models"
	"github.com/wfunc/partybox/persistence"
)

// RoomService 提供运营侧的房间查询能力
type RoomService struct {
	store persistence.Store
}

func NewRoomService(store persistence.Store) *RoomService {
	return &RoomService{store: store}
}

// RoomSummary 是运营视角的房间摘要，不做任何字段裁剪
type RoomSummary struct {
	Code        string `json:"code"`
	Game        string `json:"game"`
	Status      string `json:"status"`
	PlayerCount int    `json:"player_count"`
	CreatedAt   int64  `json:"created_at"`
}

// GetRoomSummary 获取单个房间的摘要
func (s *RoomService) GetRoomSummary(code string) (*RoomSummary, error) {
	room, err := s.store.GetRoom(code)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(room.ID)
	if err != nil {
		return nil, err
	}
	return &RoomSummary{
		Code:        room.Code,
		Game:        room.GameSlug,
		Status:      string(room.Status),
		PlayerCount: len(players),
		CreatedAt:   room.CreatedAt.Unix(),
	}, nil
}

// CountByStatus 统计各生命周期阶段的房间数
func (s *RoomService) CountByStatus() (map[string]int64, error) {
	counts := map[string]int64{}
	for _, status := range []models.RoomStatus{models.StatusLobby, models.StatusLive, models.StatusEnded} {
		n, err := s.store.CountRooms(status)
		if err != nil {
			return nil, err
		}
		counts[string(status)] = n
	}
	return counts, nil
}
