// view/view.go
package view

import (
	"encoding/json"
	"time"

	"github.com/wfunc/partybox/models"
)

// onlineWindow 判定玩家在线的时间窗口
const onlineWindow = 30 * time.Second

// RoomView is the player-facing projection of a room. Secret fields are
// stripped here, at the serialization boundary, before anything leaves
// the process.
type RoomView struct {
	ID             int64          `json:"id"`
	Code           string         `json:"code"`
	Game           string         `json:"game"`
	Status         string         `json:"status"`
	State          map[string]any `json:"state"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Players        []PlayerView   `json:"players"`
}

type PlayerView struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Name       string         `json:"name"`
	DeviceID   string         `json:"device_id"`
	IsHost     bool           `json:"is_host"`
	Ready      bool           `json:"ready"`
	Online     bool           `json:"online"`
	State      map[string]any `json:"state"`
	JoinedAt   time.Time      `json:"joined_at"`
	LastSeenAt time.Time      `json:"last_seen_at"`
}

// Project builds the room view a given user is allowed to see.
// viewerUserID zero means an unauthenticated viewer; every self-only
// field is stripped for them.
func Project(room *models.Room, players []*models.Player, viewerUserID int64, now time.Time) *RoomView {
	rv := &RoomView{
		ID:             room.ID,
		Code:           room.Code,
		Game:           room.GameSlug,
		Status:         string(room.Status),
		State:          redactRoomState(room.GameSlug, toDoc(room.State)),
		CreatedAt:      room.CreatedAt,
		LastActivityAt: room.LastActivityAt,
		Players:        make([]PlayerView, 0, len(players)),
	}
	for _, p := range players {
		rv.Players = append(rv.Players, PlayerView{
			ID:         p.ID,
			UserID:     p.UserID,
			Name:       p.Name,
			DeviceID:   p.DeviceID,
			IsHost:     p.IsHost,
			Ready:      p.Ready,
			Online:     now.Sub(p.LastSeenAt) <= onlineWindow,
			State:      redactPlayerState(room.GameSlug, toDoc(p.State), viewerUserID != 0, p.UserID == viewerUserID),
			JoinedAt:   p.JoinedAt,
			LastSeenAt: p.LastSeenAt,
		})
	}
	return rv
}

// toDoc 把类型化的状态文档转换为通用map以便裁剪
func toDoc(state any) map[string]any {
	doc := map[string]any{}
	if state == nil {
		return doc
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return doc
	}
	_ = json.Unmarshal(raw, &doc)
	return doc
}

func redactRoomState(slug string, doc map[string]any) map[string]any {
	if slug == models.SlugConfinamento {
		delete(doc, "valete_player_id")
	}
	return doc
}

func redactPlayerState(slug string, doc map[string]any, authed, self bool) map[string]any {
	switch slug {
	case models.SlugConfinamento:
		// Guesses are never shown. A player sees the other players'
		// suits but not their own; spectators see no suits at all.
		delete(doc, "guess")
		if !authed || self {
			delete(doc, "suit")
		}
	case models.SlugBeleza:
		delete(doc, "guess")
	case models.SlugLeilao:
		delete(doc, "bid")
		delete(doc, "submitted")
		if !authed || !self {
			delete(doc, "points")
		}
	}
	return doc
}
