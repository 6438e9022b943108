// room/interfaces.go
package room

import "github.com/wfunc/partybox/models"

// Store 是房间管理器需要的持久化接口
type Store interface {
	CreateRoom(room *models.Room) error
	GetRoom(code string) (*models.Room, error)
	SaveRoom(room *models.Room, fields ...string) error
	RoomCodeExists(code string) (bool, error)
	CountRooms(status models.RoomStatus) (int64, error)
	CreatePlayer(player *models.Player) error
	GetPlayer(roomID, userID int64) (*models.Player, error)
	ListPlayers(roomID int64) ([]*models.Player, error)
	SavePlayer(player *models.Player, fields ...string) error
}
