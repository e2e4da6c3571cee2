// ledger/ledger.go
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

// Ledger enforces the cash conservation law for unit placement:
// cash_remaining + Σcost(owned units) == starting_cash, before and after every
// call. Debit, row creation and roster append happen inside one session
// transaction, so a failure anywhere leaves nothing behind.
type Ledger struct {
	store   persistence.Store
	catalog catalog.Catalog
	hub     *fanout.Hub
}

func NewLedger(store persistence.Store, cat catalog.Catalog, hub *fanout.Hub) *Ledger {
	return &Ledger{store: store, catalog: cat, hub: hub}
}

// PlaceRequest describes a unit placement.
type PlaceRequest struct {
	UnitID        uint           `json:"unit_id"`
	X             int            `json:"x"`
	Y             int            `json:"y"`
	CurrentHP     int            `json:"current_hp"`
	StatBoosts    map[string]int `json:"stat_boosts"`
	StatusEffects []string       `json:"status_effects"`
}

func mapStoreErr(err error) error {
	if err == persistence.ErrRecordNotFound {
		return fmt.Errorf("%w: session does not exist", gameerr.ErrNotFound)
	}
	return err
}

type unitEvent struct {
	Event  string `json:"event"`
	Link   string `json:"link"`
	UnitID uint   `json:"unit_id"`
	UserID uint   `json:"user_id"`
}

func (e unitEvent) payload() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Place buys a catalog unit onto the board for the caller.
func (l *Ledger) Place(link string, userID uint, req PlaceRequest) (*models.GameUnitView, error) {
	var view models.GameUnitView
	err := l.store.MutateSession(link, func(tx persistence.SessionTx) error {
		game, st := tx.Game(), tx.State()

		if st.Status == models.StatusCompleted {
			return fmt.Errorf("%w: session already completed", gameerr.ErrInvalidState)
		}

		player, ok := tx.Player(userID)
		if !ok {
			return fmt.Errorf("%w: user %d is not in this session", gameerr.ErrNotFound, userID)
		}
		if game.UnitLimit > 0 && len(player.GameUnits) >= game.UnitLimit {
			return fmt.Errorf("%w: unit limit of %d reached", gameerr.ErrConflict, game.UnitLimit)
		}

		m, err := l.catalog.MapByName(game.MapName)
		if err != nil {
			return err // the map existed at creation; losing it now is an infrastructure problem
		}
		if req.X < 0 || req.X >= m.Width || req.Y < 0 || req.Y >= m.Height {
			return fmt.Errorf("%w: position (%d,%d) outside %dx%d board",
				gameerr.ErrValidation, req.X, req.Y, m.Width, m.Height)
		}

		unit, err := l.catalog.UnitByID(req.UnitID)
		if err != nil {
			if err == catalog.ErrNotFound {
				return fmt.Errorf("%w: unit %d does not exist", gameerr.ErrNotFound, req.UnitID)
			}
			return err
		}
		if unit.Cost > player.CashRemaining {
			return fmt.Errorf("%w: unit costs %d, %d available",
				gameerr.ErrInsufficientFunds, unit.Cost, player.CashRemaining)
		}

		hp := req.CurrentHP
		if hp <= 0 {
			hp = unit.BaseStats["hp"]
		}
		boosts := req.StatBoosts
		if boosts == nil {
			boosts = map[string]int{}
		}
		effects := req.StatusEffects
		if effects == nil {
			effects = []string{}
		}

		row := &models.GameUnit{
			UnitID:        unit.ID,
			UserID:        userID,
			X:             req.X,
			Y:             req.Y,
			CurrentHP:     hp,
			StatBoosts:    boosts,
			StatusEffects: effects,
		}
		if err := tx.AddUnit(row); err != nil {
			return err
		}

		player.CashRemaining -= unit.Cost
		player.GameUnits = append(player.GameUnits, row.ID)
		if err := tx.SavePlayer(player); err != nil {
			return err
		}

		view = models.UnitViewOf(row)
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	l.hub.Publish(fanout.SessionTopic(link), unitEvent{Event: "unit_placed", Link: link, UnitID: view.ID, UserID: userID}.payload())
	return &view, nil
}

// Remove sells the caller's unit back, refunding its catalog cost in the same
// transaction that deletes the row.
func (l *Ledger) Remove(link string, userID uint, unitID uint) error {
	err := l.store.MutateSession(link, func(tx persistence.SessionTx) error {
		row, ok := tx.Unit(unitID)
		if !ok || row.UserID != userID {
			// Someone else's unit is as absent as a missing one.
			return fmt.Errorf("%w: unit %d not found", gameerr.ErrNotFound, unitID)
		}

		player, ok := tx.Player(userID)
		if !ok {
			return fmt.Errorf("%w: user %d is not in this session", gameerr.ErrNotFound, userID)
		}

		unit, err := l.catalog.UnitByID(row.UnitID)
		if err != nil {
			if err == catalog.ErrNotFound {
				return fmt.Errorf("%w: catalog entry %d missing", gameerr.ErrNotFound, row.UnitID)
			}
			return err
		}

		player.CashRemaining += unit.Cost
		for i, id := range player.GameUnits {
			if id == unitID {
				player.GameUnits = append(player.GameUnits[:i], player.GameUnits[i+1:]...)
				break
			}
		}
		if err := tx.SavePlayer(player); err != nil {
			return err
		}
		return tx.RemoveUnit(row)
	})
	if err != nil {
		return mapStoreErr(err)
	}

	l.hub.Publish(fanout.SessionTopic(link), unitEvent{Event: "unit_removed", Link: link, UnitID: unitID, UserID: userID}.payload())
	return nil
}
