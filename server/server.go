package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/partybox/game"
	"github.com/wfunc/partybox/logger"
	"github.com/wfunc/partybox/models"
	"github.com/wfunc/partybox/monitor"
	"github.com/wfunc/partybox/persistence"
	"github.com/wfunc/partybox/room"
	"github.com/wfunc/partybox/session"
	"github.com/wfunc/partybox/view"
)

// Server 是面向玩家客户端的HTTP服务。客户端通过轮询房间状态获取
// 进度，没有服务端推送。
type Server struct {
	addr     string
	rooms    *room.Manager
	sessions *session.Manager
	mon      *monitor.Monitor
	engine   *gin.Engine
	now      func() time.Time
}

func NewServer(addr string, rooms *room.Manager, sessions *session.Manager, mon *monitor.Monitor) *Server {
	s := &Server{
		addr:     addr,
		rooms:    rooms,
		sessions: sessions,
		mon:      mon,
		now:      time.Now,
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.register(engine)
	s.engine = engine
	return s
}

func (s *Server) register(engine *gin.Engine) {
	api := engine.Group("/api")
	api.POST("/session", s.handleCreateSession)
	api.GET("/games", s.handleListGames)

	api.GET("/rooms/:code", s.handleGetRoom)

	authed := api.Group("", s.requireSession)
	authed.POST("/rooms", s.handleCreateRoom)
	authed.POST("/rooms/:code/join", s.handleJoin)
	authed.POST("/rooms/:code/heartbeat", s.handleHeartbeat)
	authed.POST("/rooms/:code/ready", s.handleReady)
	authed.POST("/rooms/:code/start", s.handleStart)
	authed.POST("/rooms/:code/end", s.handleEnd)
	authed.POST("/rooms/:code/change_game", s.handleChangeGame)

	authed.POST("/rooms/:code/read_my_mind_mode", s.handleReadMyMindMode)
	authed.POST("/rooms/:code/read_my_mind_play", s.handleReadMyMindPlay)
	authed.POST("/rooms/:code/confinamento_guess", s.handleConfinamentoGuess)
	authed.POST("/rooms/:code/beleza_guess", s.handleBelezaGuess)
	authed.POST("/rooms/:code/sugoroku_move", s.handleSugorokuMove)
	authed.POST("/rooms/:code/sugoroku_unlock", s.handleSugorokuUnlock)
	authed.POST("/rooms/:code/sugoroku_penalty_choice", s.handleSugorokuPenaltyChoice)
	authed.POST("/rooms/:code/leilao_bid", s.handleLeilaoBid)

	// 到期结算由客户端轮询触发，每个游戏一个tick入口
	api.POST("/rooms/:code/read_my_mind_tick", s.tickHandler(models.SlugReadMyMind))
	api.POST("/rooms/:code/confinamento_tick", s.tickHandler(models.SlugConfinamento))
	api.POST("/rooms/:code/beleza_tick", s.tickHandler(models.SlugBeleza))
	api.POST("/rooms/:code/sugoroku_roll", s.tickHandler(models.SlugSugoroku))
	api.POST("/rooms/:code/sugoroku_tick", s.tickHandler(models.SlugSugoroku))
	api.POST("/rooms/:code/leilao_tick", s.tickHandler(models.SlugLeilao))
}

// Start 启动HTTP服务并阻塞
func (s *Server) Start() error {
	logger.Log.Infof("HTTP server listening on %s", s.addr)
	return s.engine.Run(s.addr)
}

// --- 会话 ---

// requireSession 解析令牌并把用户ID写入请求上下文
func (s *Server) requireSession(c *gin.Context) {
	sess, ok := s.sessions.Get(c.GetHeader("X-Session-Token"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid session."})
		return
	}
	sess.Touch()
	c.Set("userID", sess.UserID)
	c.Next()
}

func (s *Server) userID(c *gin.Context) int64 {
	return c.GetInt64("userID")
}

// viewerID 对可选鉴权的请求解析用户ID，失败时为0
func (s *Server) viewerID(c *gin.Context) int64 {
	if sess, ok := s.sessions.Get(c.GetHeader("X-Session-Token")); ok {
		return sess.UserID
	}
	return 0
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	s.mon.SetActiveSessions(s.sessions.Count())
	c.JSON(http.StatusCreated, gin.H{"token": sess.Token, "user_id": sess.UserID})
}

// --- 游戏与房间 ---

func (s *Server) handleListGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.rooms.Descriptors())
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req struct {
		Game string `json:"game" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide game."})
		return
	}
	created, err := s.rooms.CreateRoom(req.Game)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mon.IncRoomsCreated()
	c.JSON(http.StatusCreated, view.Project(created, nil, s.userID(c), s.now()))
}

func (s *Server) handleGetRoom(c *gin.Context) {
	rm, players, err := s.rooms.Fetch(c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Project(rm, players, s.viewerID(c), s.now()))
}

func (s *Server) handleJoin(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		DeviceID string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide name."})
		return
	}
	rm, _, err := s.rooms.Join(c.Param("code"), s.userID(c), req.Name, req.DeviceID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondRoom(c, rm.Code)
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	if _, err := s.rooms.Heartbeat(c.Param("code"), s.userID(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) handleReady(c *gin.Context) {
	var req struct {
		Ready *bool `json:"ready" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide ready."})
		return
	}
	if _, err := s.rooms.Ready(c.Param("code"), s.userID(c), *req.Ready); err != nil {
		s.fail(c, err)
		return
	}
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) handleStart(c *gin.Context) {
	if _, err := s.rooms.Start(c.Param("code"), s.userID(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.refreshLiveRooms()
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) handleEnd(c *gin.Context) {
	if _, err := s.rooms.End(c.Param("code"), s.userID(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.refreshLiveRooms()
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) refreshLiveRooms() {
	if n, err := s.rooms.CountLive(); err == nil {
		s.mon.SetLiveRooms(n)
	}
}

func (s *Server) handleChangeGame(c *gin.Context) {
	var req struct {
		Game string `json:"game" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide game."})
		return
	}
	if _, err := s.rooms.ChangeGame(c.Param("code"), s.userID(c), req.Game); err != nil {
		s.fail(c, err)
		return
	}
	s.respondRoom(c, c.Param("code"))
}

// --- 游戏动作 ---

func (s *Server) handleReadMyMindMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide mode."})
		return
	}
	if _, err := s.rooms.SetReadMyMindMode(c.Param("code"), s.userID(c), req.Mode); err != nil {
		s.fail(c, err)
		return
	}
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) handleReadMyMindPlay(c *gin.Context) {
	var req struct {
		Card *int `json:"card" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide card."})
		return
	}
	s.applyAction(c, game.PlayCardAction{Card: *req.Card}, "play")
}

func (s *Server) handleConfinamentoGuess(c *gin.Context) {
	var req struct {
		Guess string `json:"guess" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide guess."})
		return
	}
	s.applyAction(c, game.SuitGuessAction{Suit: req.Guess}, "guess")
}

func (s *Server) handleBelezaGuess(c *gin.Context) {
	var req struct {
		Value *int `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide value."})
		return
	}
	s.applyAction(c, game.NumberGuessAction{Value: *req.Value}, "guess")
}

func (s *Server) handleSugorokuMove(c *gin.Context) {
	var req struct {
		Action    string `json:"action" binding:"required"`
		Direction string `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide action."})
		return
	}
	s.applyAction(c, game.MoveAction{Action: req.Action, Direction: req.Direction}, "move")
}

func (s *Server) handleSugorokuUnlock(c *gin.Context) {
	s.applyAction(c, game.UnlockAction{}, "unlock")
}

func (s *Server) handleSugorokuPenaltyChoice(c *gin.Context) {
	var req struct {
		PlayerID *int64 `json:"player_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide player_id."})
		return
	}
	s.applyAction(c, game.PenaltyChoiceAction{TargetPlayerID: *req.PlayerID}, "penalty_choice")
}

func (s *Server) handleLeilaoBid(c *gin.Context) {
	var req struct {
		Amount *int `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Provide amount."})
		return
	}
	s.applyAction(c, game.BidAction{Amount: *req.Amount}, "bid")
}

func (s *Server) applyAction(c *gin.Context, act game.Action, name string) {
	started := s.now()
	if _, err := s.rooms.Apply(c.Param("code"), s.userID(c), act); err != nil {
		s.fail(c, err)
		return
	}
	s.mon.IncGameAction(act.Game(), name)
	s.mon.ObserveActionLatency(s.now().Sub(started))
	// actions and ticks can end the room
	s.refreshLiveRooms()
	s.respondRoom(c, c.Param("code"))
}

func (s *Server) tickHandler(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.rooms.Tick(c.Param("code"), slug); err != nil {
			s.fail(c, err)
			return
		}
		s.refreshLiveRooms()
		s.respondRoom(c, c.Param("code"))
	}
}

// respondRoom 返回请求者视角下的完整房间视图
func (s *Server) respondRoom(c *gin.Context, code string) {
	rm, players, err := s.rooms.Fetch(code)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Project(rm, players, s.viewerID(c), s.now()))
}

// fail 把引擎错误翻译为HTTP响应
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	var gameErr *game.Error
	if errors.As(err, &gameErr) {
		status := http.StatusBadRequest
		if gameErr.Kind == game.KindAllocationFailed {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"detail": gameErr.Message, "kind": string(gameErr.Kind)})
		return
	}
	logger.Log.Errorf("request failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
}
