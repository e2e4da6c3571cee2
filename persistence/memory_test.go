package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/Feral-Mailbox/PokeWars/models"
)

func seedSession(t *testing.T, s *MemoryStore) string {
	t.Helper()

	game := models.Game{
		GameName:     "test",
		MapName:      "Proving Grounds",
		Gamemode:     models.ModeWar,
		MaxPlayers:   2,
		StartingCash: 500,
		HostID:       1,
	}
	state := models.GameState{
		Status:    models.StatusOpen,
		Players:   []uint{1},
		ReplayLog: []map[string]any{},
	}
	host := models.GamePlayer{PlayerID: 1, CashRemaining: 500, GameUnits: []uint{}}

	err := s.CreateSession(&game, &state, &host, func(id uint) string {
		return "link-1"
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return game.Link
}

func TestCreateSession_AssignsIDsAndLink(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	if link != "link-1" {
		t.Errorf("Expected the linkFn result, got %q", link)
	}

	rec, err := s.SessionByLink(link)
	if err != nil {
		t.Fatalf("SessionByLink failed: %v", err)
	}
	if rec.Game.ID == 0 {
		t.Error("Expected the game to get an id")
	}
	if rec.State.GameID != rec.Game.ID {
		t.Errorf("Expected state bound to game %d, got %d", rec.Game.ID, rec.State.GameID)
	}
	if len(rec.Players) != 1 || rec.Players[0].GameID != rec.Game.ID {
		t.Errorf("Expected one player row bound to the game, got %+v", rec.Players)
	}
}

func TestSessionByLink_ReturnsIsolatedClone(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	rec, _ := s.SessionByLink(link)
	rec.State.Status = models.StatusCompleted
	rec.Players[0].CashRemaining = 0
	rec.State.Players = append(rec.State.Players, 99)

	fresh, _ := s.SessionByLink(link)
	if fresh.State.Status != models.StatusOpen {
		t.Error("Mutating a returned record must not touch the store")
	}
	if fresh.Players[0].CashRemaining != 500 {
		t.Error("Mutating a returned player must not touch the store")
	}
	if len(fresh.State.Players) != 1 {
		t.Error("Mutating a returned roster must not touch the store")
	}
}

func TestMutateSession_CommitsOnSuccess(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	err := s.MutateSession(link, func(tx SessionTx) error {
		tx.State().Status = models.StatusClosed
		return tx.AddPlayer(&models.GamePlayer{PlayerID: 2, CashRemaining: 500, GameUnits: []uint{}})
	})
	if err != nil {
		t.Fatalf("MutateSession failed: %v", err)
	}

	rec, _ := s.SessionByLink(link)
	if rec.State.Status != models.StatusClosed {
		t.Errorf("Expected the status change to commit, got %s", rec.State.Status)
	}
	if len(rec.Players) != 2 {
		t.Errorf("Expected the added player to commit, got %d rows", len(rec.Players))
	}
}

func TestMutateSession_FailureIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	boom := errors.New("boom")
	err := s.MutateSession(link, func(tx SessionTx) error {
		// Touch everything, then fail.
		tx.State().Status = models.StatusCompleted
		p, _ := tx.Player(1)
		p.CashRemaining = 0
		_ = tx.SavePlayer(p)
		_ = tx.AddUnit(&models.GameUnit{UnitID: 1, UserID: 1})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the callback error back, got %v", err)
	}

	rec, _ := s.SessionByLink(link)
	if rec.State.Status != models.StatusOpen {
		t.Error("A failed mutation must not change status")
	}
	if rec.Players[0].CashRemaining != 500 {
		t.Error("A failed mutation must not move cash")
	}
	if len(rec.Units) != 0 {
		t.Error("A failed mutation must not create unit rows")
	}
}

func TestMutateSession_UnknownLink(t *testing.T) {
	s := NewMemoryStore()
	err := s.MutateSession("missing", func(tx SessionTx) error { return nil })
	if err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	if err := s.DeleteSession(link); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.SessionByLink(link); err != ErrRecordNotFound {
		t.Errorf("Expected the session gone, got %v", err)
	}
	if err := s.DeleteSession(link); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound on double delete, got %v", err)
	}
}

func TestDeleteSession_SerializesWithInFlightMutation(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	entered := make(chan struct{})
	release := make(chan struct{})
	mutDone := make(chan error, 1)
	go func() {
		mutDone <- s.MutateSession(link, func(tx SessionTx) error {
			close(entered)
			<-release
			tx.State().Status = models.StatusClosed
			return nil
		})
	}()

	<-entered
	delDone := make(chan error, 1)
	go func() { delDone <- s.DeleteSession(link) }()

	// The delete must wait for the session's writer lock.
	select {
	case err := <-delDone:
		t.Fatalf("DeleteSession returned (%v) while a mutation held the session", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-mutDone; err != nil {
		t.Fatalf("MutateSession failed: %v", err)
	}
	if err := <-delDone; err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	// The committed mutation must not resurrect the deleted session.
	if _, err := s.SessionByLink(link); err != ErrRecordNotFound {
		t.Errorf("Expected the session to stay deleted, got %v", err)
	}
	if err := s.MutateSession(link, func(tx SessionTx) error { return nil }); err != ErrRecordNotFound {
		t.Errorf("Expected MutateSession to report the session gone, got %v", err)
	}
}

func TestStaleLobbyLinks(t *testing.T) {
	s := NewMemoryStore()
	link := seedSession(t, s)

	// Private and backdated past the cutoff.
	err := s.MutateSession(link, func(tx SessionTx) error {
		tx.Game().IsPrivate = true
		tx.Game().CreatedAt = time.Now().Add(-48 * time.Hour)
		return nil
	})
	if err != nil {
		t.Fatalf("MutateSession failed: %v", err)
	}

	links, err := s.StaleLobbyLinks(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("StaleLobbyLinks failed: %v", err)
	}
	if len(links) != 1 || links[0] != link {
		t.Errorf("Expected [%s], got %v", link, links)
	}

	// A non-open session is never stale, however old.
	err = s.MutateSession(link, func(tx SessionTx) error {
		tx.State().Status = models.StatusInProgress
		return nil
	})
	if err != nil {
		t.Fatalf("MutateSession failed: %v", err)
	}
	links, _ = s.StaleLobbyLinks(time.Now().Add(-24 * time.Hour))
	if len(links) != 0 {
		t.Errorf("Expected no stale links, got %v", links)
	}
}

func TestCountByStatus(t *testing.T) {
	s := NewMemoryStore()
	seedSession(t, s)

	n, err := s.CountByStatus(models.StatusOpen)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 open session, got %d", n)
	}
	n, _ = s.CountByStatus(models.StatusCompleted)
	if n != 0 {
		t.Errorf("Expected 0 completed sessions, got %d", n)
	}
}

func TestUserStore_DuplicateDetection(t *testing.T) {
	s := NewMemoryStore()

	u := &models.User{Username: "ash", Email: "ash@example.com", HashedPassword: "x"}
	if err := s.CreateUser(u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == 0 {
		t.Error("Expected the user to get an id")
	}

	dup := &models.User{Username: "ash", Email: "other@example.com", HashedPassword: "x"}
	if err := s.CreateUser(dup); err != ErrDuplicate {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	back, err := s.UserByName("ash")
	if err != nil {
		t.Fatalf("UserByName failed: %v", err)
	}
	if back.ID != u.ID {
		t.Errorf("Expected user %d, got %d", u.ID, back.ID)
	}
	if _, err := s.UserByID(999); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
