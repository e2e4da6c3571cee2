// persistence/memory.go
package persistence

import (
	"sync"
	"time"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// MemoryStore is an in-process Store/UserStore used by tests and local runs
// without Postgres. Mutations run against a clone of the session record and
// commit by swapping the clone in, so a failed callback leaves the stored
// state byte-for-byte untouched.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionRecord
	locks    map[string]*sync.Mutex // one logical writer per session
	users    map[uint]*models.User

	nextGameID   uint
	nextPlayerID uint
	nextUnitID   uint
	nextUserID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.SessionRecord),
		locks:    make(map[string]*sync.Mutex),
		users:    make(map[uint]*models.User),
	}
}

func (s *MemoryStore) CreateSession(game *models.Game, state *models.GameState, host *models.GamePlayer, linkFn func(gameID uint) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGameID++
	game.ID = s.nextGameID
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	game.Link = linkFn(game.ID)

	state.ID = game.ID
	state.GameID = game.ID

	s.nextPlayerID++
	host.ID = s.nextPlayerID
	host.GameID = game.ID

	rec := &models.SessionRecord{
		Game:    *game,
		State:   *state,
		Players: []models.GamePlayer{*host},
	}
	s.sessions[game.Link] = rec.Clone()
	s.locks[game.Link] = &sync.Mutex{}
	return nil
}

func (s *MemoryStore) SessionByLink(link string) (*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[link]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ListSessions(status models.GameStatus, limit int) ([]*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SessionRecord
	for _, rec := range s.sessions {
		if status != "" && rec.State.Status != status {
			continue
		}
		out = append(out, rec.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MutateSession(link string, fn func(tx SessionTx) error) error {
	s.mu.RLock()
	lock, ok := s.locks[link]
	s.mu.RUnlock()
	if !ok {
		return ErrRecordNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	rec, ok := s.sessions[link]
	s.mu.RUnlock()
	if !ok {
		return ErrRecordNotFound
	}

	work := rec.Clone()
	tx := &memSessionTx{store: s, rec: work}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The session may have been deleted while fn ran; committing the clone
	// would resurrect it.
	if _, ok := s.sessions[link]; !ok {
		return ErrRecordNotFound
	}
	s.sessions[link] = work
	return nil
}

type memSessionTx struct {
	store *MemoryStore
	rec   *models.SessionRecord
}

func (t *memSessionTx) Game() *models.Game       { return &t.rec.Game }
func (t *memSessionTx) State() *models.GameState { return &t.rec.State }

func (t *memSessionTx) Players() []*models.GamePlayer {
	out := make([]*models.GamePlayer, len(t.rec.Players))
	for i := range t.rec.Players {
		out[i] = &t.rec.Players[i]
	}
	return out
}

func (t *memSessionTx) Player(userID uint) (*models.GamePlayer, bool) {
	p := t.rec.PlayerByID(userID)
	return p, p != nil
}

func (t *memSessionTx) AddPlayer(p *models.GamePlayer) error {
	t.store.mu.Lock()
	t.store.nextPlayerID++
	p.ID = t.store.nextPlayerID
	t.store.mu.Unlock()
	p.GameID = t.rec.Game.ID
	t.rec.Players = append(t.rec.Players, *p)
	return nil
}

func (t *memSessionTx) SavePlayer(p *models.GamePlayer) error {
	for i := range t.rec.Players {
		if t.rec.Players[i].ID == p.ID {
			t.rec.Players[i] = *p
			return nil
		}
	}
	return ErrRecordNotFound
}

func (t *memSessionTx) SaveState() error { return nil } // state is mutated in place on the clone

func (t *memSessionTx) Unit(id uint) (*models.GameUnit, bool) {
	for i := range t.rec.Units {
		if t.rec.Units[i].ID == id {
			return &t.rec.Units[i], true
		}
	}
	return nil, false
}

func (t *memSessionTx) AddUnit(u *models.GameUnit) error {
	t.store.mu.Lock()
	t.store.nextUnitID++
	u.ID = t.store.nextUnitID
	t.store.mu.Unlock()
	u.GameID = t.rec.Game.ID
	t.rec.Units = append(t.rec.Units, *u)
	return nil
}

func (t *memSessionTx) RemoveUnit(u *models.GameUnit) error {
	for i := range t.rec.Units {
		if t.rec.Units[i].ID == u.ID {
			t.rec.Units = append(t.rec.Units[:i], t.rec.Units[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

// DeleteSession takes the session's writer lock first, so it serializes
// against any in-flight mutation the same way MutateSession callers do.
func (s *MemoryStore) DeleteSession(link string) error {
	s.mu.RLock()
	lock, ok := s.locks[link]
	s.mu.RUnlock()
	if !ok {
		return ErrRecordNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[link]; !ok {
		return ErrRecordNotFound
	}
	delete(s.sessions, link)
	delete(s.locks, link)
	return nil
}

func (s *MemoryStore) CountByStatus(status models.GameStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.sessions {
		if rec.State.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) StaleLobbyLinks(olderThan time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var links []string
	for link, rec := range s.sessions {
		if rec.State.Status == models.StatusOpen && rec.Game.IsPrivate && rec.Game.CreatedAt.Before(olderThan) {
			links = append(links, link)
		}
	}
	return links, nil
}

func (s *MemoryStore) Close() error { return nil }

// --- UserStore ---

func (s *MemoryStore) CreateUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	s.nextUserID++
	u.ID = s.nextUserID
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) UserByName(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *MemoryStore) UserByID(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}
