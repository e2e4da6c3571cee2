package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/lifecycle"
	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

func init() {
	logger.Init()
}

const startingCash = 500

type fixture struct {
	ledger *Ledger
	engine *lifecycle.Engine
	store  *persistence.MemoryStore
	cat    *catalog.Memory
	hub    *fanout.Hub
	link   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := catalog.NewMemory()
	cat.AddMap(models.Map{
		Model:               gorm.Model{ID: 1},
		Name:                "Proving Grounds",
		IsOfficial:          true,
		Width:               10,
		Height:              10,
		AllowedModes:        []string{"Conquest", "War"},
		AllowedPlayerCounts: []int{2},
	})
	cat.AddUnit(models.Unit{
		Model:     gorm.Model{ID: 1},
		Name:      "Pikachu",
		Species:   "Pikachu",
		Cost:      300,
		BaseStats: map[string]int{"hp": 35, "attack": 55},
	})
	cat.AddUnit(models.Unit{
		Model:     gorm.Model{ID: 2},
		Name:      "Onix",
		Species:   "Onix",
		Cost:      400,
		BaseStats: map[string]int{"hp": 35},
	})

	store := persistence.NewMemoryStore()
	hub := fanout.NewHub(16, nil)
	engine := lifecycle.NewEngine(store, cat, hub, lifecycle.Defaults{
		StartingCash:    startingCash,
		CashPerTurn:     100,
		MaxTurns:        50,
		UnitLimit:       2,
		MinTurnDuration: 15,
		MaxTurnDuration: 600,
	})

	rec, err := engine.Create(1, lifecycle.CreateRequest{
		GameName:   "ledger test",
		MapName:    "Proving Grounds",
		Gamemode:   models.ModeWar,
		MaxPlayers: 2,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := engine.Join(rec.Game.Link, 2); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	return &fixture{
		ledger: NewLedger(store, cat, hub),
		engine: engine,
		store:  store,
		cat:    cat,
		hub:    hub,
		link:   rec.Game.Link,
	}
}

// assertConservation checks that every player's remaining cash plus the
// catalog cost of their owned units adds back up to the starting amount.
func (f *fixture) assertConservation(t *testing.T) {
	t.Helper()

	rec, err := f.store.SessionByLink(f.link)
	if err != nil {
		t.Fatalf("SessionByLink failed: %v", err)
	}

	costByRow := make(map[uint]int64)
	for i := range rec.Units {
		unit, err := f.cat.UnitByID(rec.Units[i].UnitID)
		if err != nil {
			t.Fatalf("Catalog lookup failed for unit %d: %v", rec.Units[i].UnitID, err)
		}
		costByRow[rec.Units[i].ID] = unit.Cost
	}

	for i := range rec.Players {
		p := &rec.Players[i]
		total := p.CashRemaining
		for _, rowID := range p.GameUnits {
			total += costByRow[rowID]
		}
		if total != rec.Game.StartingCash {
			t.Errorf("Conservation violated for player %d: cash %d + units != %d",
				p.PlayerID, p.CashRemaining, rec.Game.StartingCash)
		}
	}
}

func (f *fixture) snapshot(t *testing.T) *models.SessionRecord {
	t.Helper()
	rec, err := f.store.SessionByLink(f.link)
	if err != nil {
		t.Fatalf("SessionByLink failed: %v", err)
	}
	return rec
}

func TestPlace_DebitsAndAppends(t *testing.T) {
	f := newFixture(t)
	f.assertConservation(t)

	view, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 3, Y: 4})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if view.ID == 0 {
		t.Error("Expected the placed unit to get an id")
	}
	if view.CurrentHP != 35 {
		t.Errorf("Expected hp to default from base stats, got %d", view.CurrentHP)
	}

	rec := f.snapshot(t)
	p := rec.PlayerByID(1)
	if p.CashRemaining != startingCash-300 {
		t.Errorf("Expected cash %d after placement, got %d", startingCash-300, p.CashRemaining)
	}
	if len(p.GameUnits) != 1 || p.GameUnits[0] != view.ID {
		t.Errorf("Expected the roster to hold unit %d, got %v", view.ID, p.GameUnits)
	}
	f.assertConservation(t)

	// The other player's ledger is untouched.
	if other := rec.PlayerByID(2); other.CashRemaining != startingCash {
		t.Errorf("Expected player 2 unaffected, got %d", other.CashRemaining)
	}
}

func TestPlace_InsufficientFundsLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 0, Y: 0}); err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	before := f.snapshot(t)

	// 200 left, Onix costs 400.
	_, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 2, X: 1, Y: 1})
	if !errors.Is(err, gameerr.ErrInsufficientFunds) {
		t.Fatalf("Expected InsufficientFunds, got %v", err)
	}

	after := f.snapshot(t)
	if after.PlayerByID(1).CashRemaining != before.PlayerByID(1).CashRemaining {
		t.Error("A failed placement must not move cash")
	}
	if len(after.Units) != len(before.Units) {
		t.Error("A failed placement must not create a unit row")
	}
	f.assertConservation(t)
}

func TestPlace_Rejections(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		user uint
		req  PlaceRequest
		want error
	}{
		{"non-participant", 9, PlaceRequest{UnitID: 1, X: 0, Y: 0}, gameerr.ErrNotFound},
		{"unknown unit", 1, PlaceRequest{UnitID: 99, X: 0, Y: 0}, gameerr.ErrNotFound},
		{"off board x", 1, PlaceRequest{UnitID: 1, X: 10, Y: 0}, gameerr.ErrValidation},
		{"negative y", 1, PlaceRequest{UnitID: 1, X: 0, Y: -1}, gameerr.ErrValidation},
	}
	for _, tc := range cases {
		if _, err := f.ledger.Place(f.link, tc.user, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		f.assertConservation(t)
	}
}

func TestPlace_UnitLimit(t *testing.T) {
	f := newFixture(t)

	cheap := models.Unit{Model: gorm.Model{ID: 3}, Name: "Magikarp", Species: "Magikarp", Cost: 10, BaseStats: map[string]int{"hp": 20}}
	f.cat.AddUnit(cheap)

	for i := 0; i < 2; i++ {
		if _, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 3, X: i, Y: 0}); err != nil {
			t.Fatalf("Place %d failed: %v", i, err)
		}
	}

	// Limit is 2 in this fixture.
	if _, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 3, X: 2, Y: 0}); !errors.Is(err, gameerr.ErrConflict) {
		t.Errorf("Expected Conflict at the unit limit, got %v", err)
	}
	f.assertConservation(t)
}

func TestPlace_RejectedOnCompletedSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.Start(f.link, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	winner := uint(1)
	if _, err := f.engine.PatchState(f.link, 1, lifecycle.StatePatch{WinnerID: &winner}); err != nil {
		t.Fatalf("PatchState failed: %v", err)
	}

	if _, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 0, Y: 0}); !errors.Is(err, gameerr.ErrInvalidState) {
		t.Errorf("Expected InvalidState on a completed session, got %v", err)
	}
}

func TestRemove_RefundsFullCost(t *testing.T) {
	f := newFixture(t)

	view, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 3, Y: 4})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if got := f.snapshot(t).PlayerByID(1).CashRemaining; got != startingCash-300 {
		t.Fatalf("Expected cash %d after placement, got %d", startingCash-300, got)
	}

	if err := f.ledger.Remove(f.link, 1, view.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	rec := f.snapshot(t)
	p := rec.PlayerByID(1)
	if p.CashRemaining != startingCash {
		t.Errorf("Expected full refund to %d, got %d", startingCash, p.CashRemaining)
	}
	if len(p.GameUnits) != 0 {
		t.Errorf("Expected an empty roster, got %v", p.GameUnits)
	}
	if len(rec.Units) != 0 {
		t.Errorf("Expected the unit row to be gone, got %d rows", len(rec.Units))
	}
	f.assertConservation(t)
}

func TestRemove_OnlyTheOwnerCan(t *testing.T) {
	f := newFixture(t)

	view, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	if err := f.ledger.Remove(f.link, 2, view.ID); !errors.Is(err, gameerr.ErrNotFound) {
		t.Errorf("Expected NotFound removing another player's unit, got %v", err)
	}
	if err := f.ledger.Remove(f.link, 1, 999); !errors.Is(err, gameerr.ErrNotFound) {
		t.Errorf("Expected NotFound for a missing unit, got %v", err)
	}

	rec := f.snapshot(t)
	if rec.PlayerByID(2).CashRemaining != startingCash {
		t.Error("A failed removal must not refund anyone")
	}
	if len(rec.Units) != 1 {
		t.Errorf("Expected the unit to survive, got %d rows", len(rec.Units))
	}
	f.assertConservation(t)
}

func TestPlaceAndRemove_PublishEvents(t *testing.T) {
	f := newFixture(t)
	sub := f.hub.Subscribe(fanout.SessionTopic(f.link))
	defer sub.Close()

	view, err := f.ledger.Place(f.link, 1, PlaceRequest{UnitID: 1, X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if err := f.ledger.Remove(f.link, 1, view.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	var placed, removed unitEvent
	if err := json.Unmarshal([]byte(<-sub.C()), &placed); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if err := json.Unmarshal([]byte(<-sub.C()), &removed); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if placed.Event != "unit_placed" || placed.UnitID != view.ID || placed.UserID != 1 {
		t.Errorf("Expected unit_placed for %d, got %+v", view.ID, placed)
	}
	if removed.Event != "unit_removed" || removed.UnitID != view.ID {
		t.Errorf("Expected unit_removed for %d, got %+v", view.ID, removed)
	}
}
