// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session 把一个不透明令牌绑定到用户ID。客户端在首次访问时领取
// 令牌，之后的每个请求都携带它。
type Session struct {
	Token      string
	UserID     int64
	Data       map[string]interface{} // 自定义数据
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func (s *Session) Set(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Data[key] = value
}

func (s *Session) Get(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Data[key]
}

// Touch 刷新活跃时间
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.LastActive = time.Now()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	nextUser int64
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Create 分配一个新会话和用户ID
func (m *Manager) Create() *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nextUser++
	now := time.Now()
	sess := &Session{
		Token:      uuid.NewString(),
		UserID:     m.nextUser,
		Data:       make(map[string]interface{}),
		CreatedAt:  now,
		LastActive: now,
	}
	m.sessions[sess.Token] = sess
	return sess
}

func (m *Manager) Remove(token string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) Get(token string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	sess, exists := m.sessions[token]
	return sess, exists
}

func (m *Manager) GetByUserID(userID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			result = append(result, sess)
		}
	}
	return result
}

// Count 返回当前会话数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
