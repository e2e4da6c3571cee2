// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// GormStore 使用GORM的PostgreSQL实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建GORM PostgreSQL数据库连接
func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	if err := seedCatalog(db); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Map{},
		&models.Unit{},
		&models.Move{},
		&models.Ability{},
		&models.Game{},
		&models.GameState{},
		&models.GamePlayer{},
		&models.GameUnit{},
	)
}

// DB exposes the underlying handle for the read-only catalog store, which
// shares the connection but speaks raw SQL.
func (s *GormStore) DB() (*gorm.DB, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	return s.db, nil
}

// CreateSession inserts game, state and host player atomically and assigns the
// link once the game id exists.
func (s *GormStore) CreateSession(game *models.Game, state *models.GameState, host *models.GamePlayer, linkFn func(gameID uint) string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(game).Error; err != nil {
			return err
		}
		state.GameID = game.ID
		if err := tx.Create(state).Error; err != nil {
			return err
		}
		host.GameID = game.ID
		if err := tx.Create(host).Error; err != nil {
			return err
		}
		game.Link = linkFn(game.ID)
		return tx.Model(game).Update("link", game.Link).Error
	})
}

func (s *GormStore) SessionByLink(link string) (*models.SessionRecord, error) {
	return loadSession(s.db, link)
}

func loadSession(db *gorm.DB, link string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := db.Where("link = ?", link).First(&rec.Game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if err := db.Where("game_id = ?", rec.Game.ID).First(&rec.State).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if err := db.Where("game_id = ?", rec.Game.ID).Order("id").Find(&rec.Players).Error; err != nil {
		return nil, err
	}
	if err := db.Where("game_id = ?", rec.Game.ID).Order("id").Find(&rec.Units).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) ListSessions(status models.GameStatus, limit int) ([]*models.SessionRecord, error) {
	q := s.db.Model(&models.GameState{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var states []models.GameState
	if err := q.Order("id desc").Find(&states).Error; err != nil {
		return nil, err
	}

	records := make([]*models.SessionRecord, 0, len(states))
	for i := range states {
		var game models.Game
		if err := s.db.First(&game, states[i].GameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // state orphaned by a concurrent delete
			}
			return nil, err
		}
		rec, err := loadSession(s.db, game.Link)
		if err != nil {
			if err == ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// MutateSession locks the GameState row FOR UPDATE for the duration of fn, so
// concurrent mutations of the same session serialize while other sessions
// proceed untouched.
func (s *GormStore) MutateSession(link string, fn func(tx SessionTx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.Where("link = ?", link).First(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		var state models.GameState
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game_id = ?", game.ID).First(&state).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		var players []models.GamePlayer
		if err := tx.Where("game_id = ?", game.ID).Order("id").Find(&players).Error; err != nil {
			return err
		}

		stx := &gormSessionTx{tx: tx, game: &game, state: &state}
		for i := range players {
			stx.players = append(stx.players, &players[i])
		}
		return fn(stx)
	})
}

type gormSessionTx struct {
	tx      *gorm.DB
	game    *models.Game
	state   *models.GameState
	players []*models.GamePlayer
}

func (t *gormSessionTx) Game() *models.Game            { return t.game }
func (t *gormSessionTx) State() *models.GameState      { return t.state }
func (t *gormSessionTx) Players() []*models.GamePlayer { return t.players }

func (t *gormSessionTx) Player(userID uint) (*models.GamePlayer, bool) {
	for _, p := range t.players {
		if p.PlayerID == userID {
			return p, true
		}
	}
	return nil, false
}

func (t *gormSessionTx) AddPlayer(p *models.GamePlayer) error {
	p.GameID = t.game.ID
	if err := t.tx.Create(p).Error; err != nil {
		return err
	}
	t.players = append(t.players, p)
	return nil
}

func (t *gormSessionTx) SavePlayer(p *models.GamePlayer) error {
	return t.tx.Save(p).Error
}

func (t *gormSessionTx) SaveState() error {
	return t.tx.Save(t.state).Error
}

func (t *gormSessionTx) Unit(id uint) (*models.GameUnit, bool) {
	var u models.GameUnit
	if err := t.tx.Where("id = ? AND game_id = ?", id, t.game.ID).First(&u).Error; err != nil {
		return nil, false
	}
	return &u, true
}

func (t *gormSessionTx) AddUnit(u *models.GameUnit) error {
	u.GameID = t.game.ID
	return t.tx.Create(u).Error
}

func (t *gormSessionTx) RemoveUnit(u *models.GameUnit) error {
	return t.tx.Delete(u).Error
}

// DeleteSession removes the game and everything it owns.
func (s *GormStore) DeleteSession(link string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var game models.Game
		if err := tx.Where("link = ?", link).First(&game).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.GameUnit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.GamePlayer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.GameState{}).Error; err != nil {
			return err
		}
		return tx.Delete(&game).Error
	})
}

func (s *GormStore) CountByStatus(status models.GameStatus) (int64, error) {
	var n int64
	err := s.db.Model(&models.GameState{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (s *GormStore) StaleLobbyLinks(olderThan time.Time) ([]string, error) {
	var links []string
	err := s.db.Model(&models.Game{}).
		Joins("JOIN game_states ON game_states.game_id = games.id").
		Where("game_states.status = ? AND games.is_private = ? AND games.created_at < ?",
			models.StatusOpen, true, olderThan).
		Pluck("games.link", &links).Error
	return links, err
}

// --- UserStore ---

func (s *GormStore) CreateUser(u *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", u.Username, u.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		return tx.Create(u).Error
	})
}

func (s *GormStore) UserByName(username string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UserByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
