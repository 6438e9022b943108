// room/room.go
package room

import (
	"errors"
	"sync"

	"github.com/wfunc/partybox/game"
	"github.com/wfunc/partybox/models"
	"github.com/wfunc/partybox/persistence"
)

// Manager 是房间业务的核心结构。它在存储之上执行房间生命周期、
// 成员管理和游戏动作的编排，按房间号串行化所有写操作。
type Manager struct {
	store      Store
	env        *game.Env
	codeLength int

	lockMutex sync.Mutex
	locks     map[string]*sync.Mutex
}

// NewManager 创建房间管理器
func NewManager(store Store, env *game.Env, codeLength int) *Manager {
	if codeLength < 4 {
		codeLength = 4
	}
	return &Manager{
		store:      store,
		env:        env,
		codeLength: codeLength,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockRoom 获取指定房间号的互斥锁
func (m *Manager) lockRoom(code string) func() {
	m.lockMutex.Lock()
	mu, ok := m.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[code] = mu
	}
	m.lockMutex.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Descriptors 列出全部可选游戏
func (m *Manager) Descriptors() []game.Descriptor {
	return game.Descriptors()
}

// CreateRoom 创建一个绑定指定游戏的新房间
func (m *Manager) CreateRoom(slug string) (*models.Room, error) {
	if _, ok := game.Lookup(slug); !ok {
		return nil, game.NewError(game.KindValidationError, "unknown game %q", slug)
	}
	code, err := m.allocateCode()
	if err != nil {
		return nil, err
	}
	now := m.env.Clock.Now()
	room := &models.Room{
		Code:           code,
		GameSlug:       slug,
		Status:         models.StatusLobby,
		State:          nil,
		LastActivityAt: now,
	}
	if err := m.store.CreateRoom(room); err != nil {
		return nil, err
	}
	m.env.Log.Infow("room created", "code", room.Code, "game", slug)
	return room, nil
}

// Fetch 加载房间及其全部玩家
func (m *Manager) Fetch(code string) (*models.Room, []*models.Player, error) {
	room, err := m.store.GetRoom(code)
	if err != nil {
		return nil, nil, err
	}
	players, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, nil, err
	}
	return room, players, nil
}

// Join 加入房间。已在房间内的用户更新名称和设备信息；新用户只能
// 在大厅阶段加入，首位加入者成为房主。
func (m *Manager) Join(code string, userID int64, name, deviceID string) (*models.Room, *models.Player, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, err := m.store.GetRoom(code)
	if err != nil {
		return nil, nil, err
	}
	now := m.env.Clock.Now()

	player, err := m.store.GetPlayer(room.ID, userID)
	if err == nil {
		player.Name = name
		player.DeviceID = deviceID
		player.LastSeenAt = now
		if err := m.store.SavePlayer(player, "name", "device_id", "last_seen_at"); err != nil {
			return nil, nil, err
		}
		return room, player, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return nil, nil, err
	}

	if room.Status != models.StatusLobby {
		return nil, nil, game.NewError(game.KindPreconditionFailed, "room already started")
	}
	existing, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, nil, err
	}
	player = &models.Player{
		RoomID:     room.ID,
		UserID:     userID,
		Name:       name,
		DeviceID:   deviceID,
		IsHost:     len(existing) == 0,
		Ready:      false,
		JoinedAt:   now,
		LastSeenAt: now,
	}
	if err := m.store.CreatePlayer(player); err != nil {
		if errors.Is(err, persistence.ErrDuplicatePlayer) {
			player, err = m.store.GetPlayer(room.ID, userID)
			if err != nil {
				return nil, nil, err
			}
			return room, player, nil
		}
		return nil, nil, err
	}
	if err := m.touch(room); err != nil {
		return nil, nil, err
	}
	m.env.Log.Infow("player joined", "code", room.Code, "user", userID, "host", player.IsHost)
	return room, player, nil
}

// Ready 设置准备状态，仅限大厅阶段
func (m *Manager) Ready(code string, userID int64, ready bool) (*models.Player, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, player, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusLobby {
		return nil, game.NewError(game.KindActionNotLegalInPhase, "room is not in lobby")
	}
	player.Ready = ready
	player.LastSeenAt = m.env.Clock.Now()
	if err := m.store.SavePlayer(player, "ready", "last_seen_at"); err != nil {
		return nil, err
	}
	return player, nil
}

// SetReadMyMindMode 在大厅阶段记录 Read My Mind 的模式选择
func (m *Manager) SetReadMyMindMode(code string, userID int64, mode string) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, _, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	if room.GameSlug != models.SlugReadMyMind {
		return nil, game.ErrInvalidGame(models.SlugReadMyMind)
	}
	if room.Status != models.StatusLobby {
		return nil, game.NewError(game.KindActionNotLegalInPhase, "mode can only change in lobby")
	}
	if mode != game.ModeCoop && mode != game.ModeVersus {
		return nil, game.NewError(game.KindValidationError, "invalid mode %q", mode)
	}
	room.State = &models.ReadMyMindState{Game: models.SlugReadMyMind, Mode: mode}
	if err := m.store.SaveRoom(room, "state", "last_activity_at"); err != nil {
		return nil, err
	}
	return room, nil
}

// Start 开始游戏：要求全部玩家已准备且人数满足游戏下限
func (m *Manager) Start(code string, userID int64) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, _, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusLobby {
		return nil, game.NewError(game.KindActionNotLegalInPhase, "room already started")
	}
	module, ok := game.Lookup(room.GameSlug)
	if !ok {
		return nil, game.NewError(game.KindValidationError, "unknown game %q", room.GameSlug)
	}
	players, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, err
	}
	if len(players) < module.Descriptor().MinPlayers {
		return nil, game.NewError(game.KindPreconditionFailed, "need at least %d players", module.Descriptor().MinPlayers)
	}
	for _, p := range players {
		if !p.Ready {
			return nil, game.NewError(game.KindPreconditionFailed, "player %s is not ready", p.Name)
		}
	}
	if err := module.Initialize(m.env, room, players); err != nil {
		return nil, err
	}
	room.Status = models.StatusLive
	if err := m.persist(room, players); err != nil {
		return nil, err
	}
	m.env.Log.Infow("room started", "code", room.Code, "game", room.GameSlug, "players", len(players))
	return room, nil
}

// End 提前结束游戏
func (m *Manager) End(code string, userID int64) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, _, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusLive {
		return nil, game.NewError(game.KindActionNotLegalInPhase, "room is not live")
	}
	room.Status = models.StatusEnded
	if err := m.store.SaveRoom(room, "status", "last_activity_at"); err != nil {
		return nil, err
	}
	m.env.Log.Infow("room ended", "code", room.Code)
	return room, nil
}

// ChangeGame 重新绑定游戏并把房间完整重置回大厅
func (m *Manager) ChangeGame(code string, userID int64, slug string) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, _, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := game.Lookup(slug); !ok {
		return nil, game.NewError(game.KindValidationError, "unknown game %q", slug)
	}
	players, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, err
	}
	room.GameSlug = slug
	room.Status = models.StatusLobby
	room.State = nil
	room.LastActivityAt = m.env.Clock.Now()
	if err := m.store.SaveRoom(room, "game_slug", "status", "state", "last_activity_at"); err != nil {
		return nil, err
	}
	for _, p := range players {
		p.State = nil
		p.Ready = false
		if err := m.store.SavePlayer(p, "state", "ready"); err != nil {
			return nil, err
		}
	}
	m.env.Log.Infow("room game changed", "code", room.Code, "game", slug)
	return room, nil
}

// Heartbeat 刷新玩家的在线时间戳
func (m *Manager) Heartbeat(code string, userID int64) (*models.Player, error) {
	_, player, err := m.member(code, userID)
	if err != nil {
		return nil, err
	}
	player.LastSeenAt = m.env.Clock.Now()
	if err := m.store.SavePlayer(player, "last_seen_at"); err != nil {
		return nil, err
	}
	return player, nil
}

// Apply 执行一个游戏动作。动作的目标游戏必须与房间绑定的游戏一致，
// 房间必须处于游戏中。成功后整体落盘；引擎错误不产生任何写入。
func (m *Manager) Apply(code string, userID int64, act game.Action) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, err := m.store.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if act.Game() != room.GameSlug {
		return nil, game.ErrInvalidGame(act.Game())
	}
	players, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, err
	}
	var actor *models.Player
	for _, p := range players {
		if p.UserID == userID {
			actor = p
			break
		}
	}
	if actor == nil {
		return nil, game.ErrPlayerNotInRoom()
	}
	if room.Status != models.StatusLive {
		return nil, game.NewError(game.KindActionNotLegalInPhase, "room is not live")
	}
	module, _ := game.Lookup(room.GameSlug)
	if err := module.Apply(m.env, room, players, actor, act); err != nil {
		return nil, err
	}
	actor.LastSeenAt = m.env.Clock.Now()
	if err := m.persist(room, players); err != nil {
		return nil, err
	}
	return room, nil
}

// Tick 触发到期结算。对大厅或已结束的房间是无操作。
func (m *Manager) Tick(code string, slug string) (*models.Room, error) {
	unlock := m.lockRoom(code)
	defer unlock()

	room, err := m.store.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if slug != "" && slug != room.GameSlug {
		return nil, game.ErrInvalidGame(slug)
	}
	if room.Status != models.StatusLive {
		return room, nil
	}
	module, ok := game.Lookup(room.GameSlug)
	if !ok {
		return nil, game.NewError(game.KindValidationError, "unknown game %q", room.GameSlug)
	}
	players, err := m.store.ListPlayers(room.ID)
	if err != nil {
		return nil, err
	}
	if err := module.Tick(m.env, room, players); err != nil {
		return nil, err
	}
	if err := m.persist(room, players); err != nil {
		return nil, err
	}
	return room, nil
}

// CountLive 统计当前进行中的房间数
func (m *Manager) CountLive() (int64, error) {
	return m.store.CountRooms(models.StatusLive)
}

// member 加载房间并校验用户是其成员
func (m *Manager) member(code string, userID int64) (*models.Room, *models.Player, error) {
	room, err := m.store.GetRoom(code)
	if err != nil {
		return nil, nil, err
	}
	player, err := m.store.GetPlayer(room.ID, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil, game.ErrPlayerNotInRoom()
		}
		return nil, nil, err
	}
	return room, player, nil
}

// persist 落盘房间文档和全部玩家文档
func (m *Manager) persist(room *models.Room, players []*models.Player) error {
	room.LastActivityAt = m.env.Clock.Now()
	if err := m.store.SaveRoom(room, "status", "state", "last_activity_at"); err != nil {
		return err
	}
	for _, p := range players {
		if err := m.store.SavePlayer(p, "state", "last_seen_at"); err != nil {
			return err
		}
	}
	return nil
}

// touch 仅刷新房间活跃时间
func (m *Manager) touch(room *models.Room) error {
	room.LastActivityAt = m.env.Clock.Now()
	return m.store.SaveRoom(room, "last_activity_at")
}
