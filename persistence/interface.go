// persistence/interface.go
package persistence

import (
	"errors"
	"time"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)

// SessionTx is the per-session transactional boundary. Every mutation of a
// session's state/players/units happens through one of these, serialized so
// only one logical writer touches a session at a time. Returning an error from
// the mutation callback rolls back every write made through the tx.
type SessionTx interface {
	Game() *models.Game
	State() *models.GameState
	Players() []*models.GamePlayer
	Player(userID uint) (*models.GamePlayer, bool)
	AddPlayer(p *models.GamePlayer) error
	SavePlayer(p *models.GamePlayer) error
	SaveState() error
	Unit(id uint) (*models.GameUnit, bool)
	AddUnit(u *models.GameUnit) error
	RemoveUnit(u *models.GameUnit) error
}

// Store 会话存储接口
type Store interface {
	// CreateSession inserts the game, its state and the host's player row in
	// one transaction. linkFn derives the shareable link once the generated
	// game id is known; the link is written back before commit.
	CreateSession(game *models.Game, state *models.GameState, host *models.GamePlayer, linkFn func(gameID uint) string) error
	SessionByLink(link string) (*models.SessionRecord, error)
	ListSessions(status models.GameStatus, limit int) ([]*models.SessionRecord, error)
	MutateSession(link string, fn func(tx SessionTx) error) error
	// DeleteSession removes the game and cascades to state, players and units.
	DeleteSession(link string) error
	CountByStatus(status models.GameStatus) (int64, error)
	// StaleLobbyLinks lists private sessions still open past the cutoff.
	StaleLobbyLinks(olderThan time.Time) ([]string, error)
	Close() error
}

// UserStore 账号存储接口（身份提供方使用）
type UserStore interface {
	CreateUser(u *models.User) error // ErrDuplicate on username/email collision
	UserByName(username string) (*models.User, error)
	UserByID(id uint) (*models.User, error)
}
