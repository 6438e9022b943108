// room/codes.go
package room

import (
	"strconv"
	"strings"

	"github.com/wfunc/partybox/game"
)

// 分配房间号的最大尝试次数
const maxCodeAttempts = 25

// allocateCode 生成一个未被占用的数字房间号，首位非零
func (m *Manager) allocateCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := m.randomCode()
		exists, err := m.store.RoomCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", game.NewError(game.KindAllocationFailed, "no free room code after %d attempts", maxCodeAttempts)
}

func (m *Manager) randomCode() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.env.RNG.Between(1, 9)))
	for i := 1; i < m.codeLength; i++ {
		b.WriteString(strconv.Itoa(m.env.RNG.Intn(10)))
	}
	return b.String()
}
