// services/session_service.go
package services

import (
	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

// SessionService assembles caller-facing session views out of the raw
// aggregate: usernames from the user store, map detail from the catalog,
// per-player economy from the session rows.
type SessionService struct {
	users   persistence.UserStore
	catalog catalog.Catalog
}

func NewSessionService(users persistence.UserStore, cat catalog.Catalog) *SessionService {
	return &SessionService{users: users, catalog: cat}
}

func (s *SessionService) username(id uint) string {
	u, err := s.users.UserByID(id)
	if err != nil {
		return "" // deleted accounts render nameless rather than failing the view
	}
	return u.Username
}

// View builds the SessionView for one session record.
func (s *SessionService) View(rec *models.SessionRecord) *models.SessionView {
	view := &models.SessionView{
		ID:           rec.Game.ID,
		Status:       rec.State.Status,
		IsPrivate:    rec.Game.IsPrivate,
		GameName:     rec.Game.GameName,
		MapName:      rec.Game.MapName,
		Gamemode:     rec.Game.Gamemode,
		MaxPlayers:   rec.Game.MaxPlayers,
		HostID:       rec.Game.HostID,
		Host:         models.HostInfo{ID: rec.Game.HostID, Username: s.username(rec.Game.HostID)},
		WinnerID:     rec.State.WinnerID,
		CurrentTurn:  rec.State.CurrentTurn,
		StartingCash: rec.Game.StartingCash,
		CashPerTurn:  rec.Game.CashPerTurn,
		MaxTurns:     rec.Game.MaxTurns,
		UnitLimit:    rec.Game.UnitLimit,
		TurnDuration: rec.Game.TurnDuration,
		ReplayLog:    rec.State.ReplayLog,
		Link:         rec.Game.Link,
		Timestamp:    rec.Game.CreatedAt,
	}

	if m, err := s.catalog.MapByName(rec.Game.MapName); err == nil {
		view.Map = catalog.DetailOf(m)
	}

	// Preserve join order from the state's roster, not row order.
	for _, playerID := range rec.State.Players {
		p := rec.PlayerByID(playerID)
		if p == nil {
			continue
		}
		units := p.GameUnits
		if units == nil {
			units = []uint{}
		}
		view.Players = append(view.Players, models.PlayerView{
			ID:            p.PlayerID,
			Username:      s.username(p.PlayerID),
			CashRemaining: p.CashRemaining,
			IsReady:       p.IsReady,
			GameUnits:     units,
		})
	}
	return view
}

// Views builds views for a list of records.
func (s *SessionService) Views(recs []*models.SessionRecord) []*models.SessionView {
	views := make([]*models.SessionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, s.View(rec))
	}
	return views
}
