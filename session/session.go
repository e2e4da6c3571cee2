// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/Feral-Mailbox/PokeWars/network"
)

// Session is one live subscriber connection: who is attached, to which game
// link (empty for the global channel), and over which websocket.
type Session struct {
	ID         string
	UserID     uint
	Link       string
	Conn       network.Conn
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.Mutex
}

func NewSession(id string, userID uint, link string, conn network.Conn) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		UserID:     userID,
		Link:       link,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(payload string) error {
	s.Touch()
	return s.Conn.WriteText(payload)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器：跟踪所有在线订阅连接
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(s *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[s.ID] = s
}

func (m *Manager) Remove(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, exists := m.sessions[id]
	return s, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

func (m *Manager) CountByLink(link string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.Link == link {
			n++
		}
	}
	return n
}

// Each calls fn for every live session. fn must not call back into the
// manager.
func (m *Manager) Each(fn func(*Session)) {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}
