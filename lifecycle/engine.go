// lifecycle/engine.go
package lifecycle

import (
	"fmt"
	"time"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

// Defaults are applied to create requests that leave economy fields unset.
type Defaults struct {
	StartingCash    int64
	CashPerTurn     int64
	MaxTurns        int
	UnitLimit       int
	MinTurnDuration int // 秒
	MaxTurnDuration int
}

// Engine is the session lifecycle state machine. All session mutations run
// inside the store's per-session transactional boundary; events are published
// only after the transaction committed.
type Engine struct {
	store    persistence.Store
	catalog  catalog.Catalog
	hub      *fanout.Hub
	defaults Defaults
}

func NewEngine(store persistence.Store, cat catalog.Catalog, hub *fanout.Hub, defaults Defaults) *Engine {
	return &Engine{store: store, catalog: cat, hub: hub, defaults: defaults}
}

// CreateRequest carries the static config for a new session. Nil economy
// fields fall back to the server defaults.
type CreateRequest struct {
	GameName     string          `json:"game_name"`
	MapName      string          `json:"map_name"`
	Gamemode     models.GameMode `json:"gamemode"`
	MaxPlayers   int             `json:"max_players"`
	IsPrivate    bool            `json:"is_private"`
	StartingCash *int64          `json:"starting_cash"`
	CashPerTurn  *int64          `json:"cash_per_turn"`
	MaxTurns     *int            `json:"max_turns"`
	UnitLimit    *int            `json:"unit_limit"`
	TurnDuration *int            `json:"turn_duration"`
}

func mapStoreErr(err error) error {
	if err == persistence.ErrRecordNotFound {
		return fmt.Errorf("%w: session does not exist", gameerr.ErrNotFound)
	}
	return err
}

// Create validates the config against the catalog, initializes the session in
// the open state with the host as first participant, and derives the link.
func (e *Engine) Create(hostID uint, req CreateRequest) (*models.SessionRecord, error) {
	if req.GameName == "" {
		return nil, fmt.Errorf("%w: game_name is required", gameerr.ErrValidation)
	}
	if _, known := RulesFor(req.Gamemode); !known {
		return nil, fmt.Errorf("%w: unknown gamemode %q", gameerr.ErrValidation, req.Gamemode)
	}

	m, err := e.catalog.MapByName(req.MapName)
	if err != nil {
		if err == catalog.ErrNotFound {
			return nil, fmt.Errorf("%w: map %q does not exist", gameerr.ErrNotFound, req.MapName)
		}
		return nil, err
	}
	if !contains(m.AllowedModes, string(req.Gamemode)) {
		return nil, fmt.Errorf("%w: map %q does not allow mode %s", gameerr.ErrValidation, m.Name, req.Gamemode)
	}
	if !containsInt(m.AllowedPlayerCounts, req.MaxPlayers) {
		return nil, fmt.Errorf("%w: map %q does not allow %d players", gameerr.ErrValidation, m.Name, req.MaxPlayers)
	}

	game := models.Game{
		GameName:     req.GameName,
		MapID:        m.ID,
		MapName:      m.Name,
		Gamemode:     req.Gamemode,
		MaxPlayers:   req.MaxPlayers,
		IsPrivate:    req.IsPrivate,
		StartingCash: e.defaults.StartingCash,
		CashPerTurn:  e.defaults.CashPerTurn,
		MaxTurns:     e.defaults.MaxTurns,
		UnitLimit:    e.defaults.UnitLimit,
		TurnDuration: e.defaults.MinTurnDuration,
		HostID:       hostID,
	}
	if req.StartingCash != nil {
		game.StartingCash = *req.StartingCash
	}
	if req.CashPerTurn != nil {
		game.CashPerTurn = *req.CashPerTurn
	}
	if req.MaxTurns != nil {
		game.MaxTurns = *req.MaxTurns
	}
	if req.UnitLimit != nil {
		game.UnitLimit = *req.UnitLimit
	}
	if req.TurnDuration != nil {
		game.TurnDuration = *req.TurnDuration
	}
	if game.StartingCash < 0 || game.CashPerTurn < 0 || game.MaxTurns < 0 || game.UnitLimit < 0 {
		return nil, fmt.Errorf("%w: economy fields must be non-negative", gameerr.ErrValidation)
	}
	if game.TurnDuration < e.defaults.MinTurnDuration || game.TurnDuration > e.defaults.MaxTurnDuration {
		return nil, fmt.Errorf("%w: turn_duration must be between %d and %d seconds",
			gameerr.ErrValidation, e.defaults.MinTurnDuration, e.defaults.MaxTurnDuration)
	}

	created := time.Now()
	game.CreatedAt = created
	state := models.GameState{
		CurrentTurn: 0,
		Status:      models.StatusOpen,
		Players:     []uint{hostID},
		ReplayLog:   []map[string]any{},
	}
	host := models.GamePlayer{
		PlayerID:      hostID,
		CashRemaining: game.StartingCash,
		GameUnits:     []uint{},
	}

	if err := e.store.CreateSession(&game, &state, &host, func(id uint) string {
		return linkFor(id, game.GameName, created)
	}); err != nil {
		return nil, err
	}

	logger.Log.Infof("Session %s created by user %d (%s on %s)", game.Link, hostID, game.Gamemode, game.MapName)

	if !game.IsPrivate {
		e.hub.Publish(fanout.GlobalTopic, Event{Event: EventLobbyCreated, Link: game.Link, Status: models.StatusOpen}.Payload())
	}

	rec, err := e.store.SessionByLink(game.Link)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// Join adds the caller to an open session. The join that fills the roster
// flips the session to closed in the same transaction; the single
// player_joined event carries the resulting status.
func (e *Engine) Join(link string, userID uint) (*models.SessionRecord, error) {
	var evt Event
	err := e.store.MutateSession(link, func(tx persistence.SessionTx) error {
		game, st := tx.Game(), tx.State()

		if st.Status != models.StatusOpen {
			return fmt.Errorf("%w: session is %s, joining requires open", gameerr.ErrInvalidState, st.Status)
		}
		if _, ok := tx.Player(userID); ok {
			return fmt.Errorf("%w: user %d already joined", gameerr.ErrConflict, userID)
		}
		if len(st.Players) >= game.MaxPlayers {
			return fmt.Errorf("%w: session is full", gameerr.ErrConflict)
		}

		if err := tx.AddPlayer(&models.GamePlayer{
			PlayerID:      userID,
			CashRemaining: game.StartingCash,
			GameUnits:     []uint{},
		}); err != nil {
			return err
		}

		st.Players = append(st.Players, userID)
		if len(st.Players) == game.MaxPlayers {
			st.Status = models.StatusClosed
		}
		if err := tx.SaveState(); err != nil {
			return err
		}

		evt = Event{Event: EventPlayerJoined, Link: link, Status: st.Status, PlayerID: userID}
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	e.hub.Publish(fanout.SessionTopic(link), evt.Payload())

	rec, err := e.store.SessionByLink(link)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// Start advances the lobby. Host only; requires a full roster. Preparing modes
// take closed→preparation on the first call and preparation→in_progress on the
// second; War takes closed→in_progress directly.
func (e *Engine) Start(link string, callerID uint) (models.GameStatus, error) {
	var evt Event
	var next models.GameStatus
	err := e.store.MutateSession(link, func(tx persistence.SessionTx) error {
		game, st := tx.Game(), tx.State()

		if callerID != game.HostID {
			return fmt.Errorf("%w: only the host may start the session", gameerr.ErrForbidden)
		}
		if len(st.Players) != game.MaxPlayers {
			return fmt.Errorf("%w: roster not full (%d/%d)", gameerr.ErrInvalidState, len(st.Players), game.MaxPlayers)
		}

		rules, _ := RulesFor(game.Gamemode)
		switch st.Status {
		case models.StatusClosed:
			if rules.HasPreparation {
				next = models.StatusPreparation
			} else {
				next = models.StatusInProgress
			}
		case models.StatusPreparation:
			next = models.StatusInProgress
		default:
			return fmt.Errorf("%w: cannot start from %s", gameerr.ErrInvalidState, st.Status)
		}

		st.Status = next
		if err := tx.SaveState(); err != nil {
			return err
		}
		evt = Event{Event: EventStatusChanged, Link: link, Status: next}
		return nil
	})
	if err != nil {
		return "", mapStoreErr(err)
	}

	logger.Log.Infof("Session %s advanced to %s", link, next)
	e.hub.Publish(fanout.SessionTopic(link), evt.Payload())
	return next, nil
}

// ToggleReady flips the caller's readiness flag during preparation and
// returns the new value. Status does not change, so nothing is published.
func (e *Engine) ToggleReady(link string, userID uint) (bool, error) {
	var ready bool
	err := e.store.MutateSession(link, func(tx persistence.SessionTx) error {
		game, st := tx.Game(), tx.State()

		rules, _ := RulesFor(game.Gamemode)
		if !rules.SupportsReadiness {
			return fmt.Errorf("%w: %s has no readiness phase", gameerr.ErrUnsupported, game.Gamemode)
		}
		if st.Status != models.StatusPreparation {
			return fmt.Errorf("%w: readiness only toggles during preparation", gameerr.ErrInvalidState)
		}

		p, ok := tx.Player(userID)
		if !ok {
			return fmt.Errorf("%w: user %d is not in this session", gameerr.ErrNotFound, userID)
		}
		p.IsReady = !p.IsReady
		ready = p.IsReady
		return tx.SavePlayer(p)
	})
	if err != nil {
		return false, mapStoreErr(err)
	}
	return ready, nil
}

// StatePatch is the allow-listed mutation set for GameState. Anything else in
// a patch request is dropped before it gets here.
type StatePatch struct {
	CurrentTurn  *int
	WinnerID     *uint
	ReplayAppend []map[string]any
}

// PatchFromMap extracts the allow-listed fields from a decoded JSON object,
// ignoring unknown keys.
func PatchFromMap(m map[string]any) (StatePatch, error) {
	var p StatePatch
	if v, ok := m["current_turn"]; ok {
		f, ok := v.(float64)
		if !ok || f < 0 || f != float64(int(f)) {
			return p, fmt.Errorf("%w: current_turn must be a non-negative integer", gameerr.ErrValidation)
		}
		turn := int(f)
		p.CurrentTurn = &turn
	}
	if v, ok := m["winner_id"]; ok {
		f, ok := v.(float64)
		if !ok || f <= 0 || f != float64(uint(f)) {
			return p, fmt.Errorf("%w: winner_id must be a positive integer", gameerr.ErrValidation)
		}
		id := uint(f)
		p.WinnerID = &id
	}
	if v, ok := m["replay_append"]; ok {
		entries, ok := v.([]any)
		if !ok {
			return p, fmt.Errorf("%w: replay_append must be a list", gameerr.ErrValidation)
		}
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				return p, fmt.Errorf("%w: replay entries must be objects", gameerr.ErrValidation)
			}
			p.ReplayAppend = append(p.ReplayAppend, entry)
		}
	}
	return p, nil
}

// PatchState applies an allow-listed mutation to the session's state on behalf
// of a participant. Setting a winner completes the session and publishes the
// completed event.
func (e *Engine) PatchState(link string, userID uint, patch StatePatch) (*models.SessionRecord, error) {
	var evt *Event
	err := e.store.MutateSession(link, func(tx persistence.SessionTx) error {
		st := tx.State()

		if _, ok := tx.Player(userID); !ok {
			return fmt.Errorf("%w: only participants may update session state", gameerr.ErrForbidden)
		}

		if patch.CurrentTurn != nil {
			st.CurrentTurn = *patch.CurrentTurn
		}
		if len(patch.ReplayAppend) > 0 {
			st.ReplayLog = append(st.ReplayLog, patch.ReplayAppend...)
		}
		if patch.WinnerID != nil {
			winner := *patch.WinnerID
			if !containsUint(st.Players, winner) {
				return fmt.Errorf("%w: winner %d is not a participant", gameerr.ErrValidation, winner)
			}
			if st.Status != models.StatusInProgress {
				return fmt.Errorf("%w: cannot complete a %s session", gameerr.ErrInvalidState, st.Status)
			}
			st.WinnerID = &winner
			st.Status = models.StatusCompleted
			evt = &Event{Event: EventCompleted, Link: link, Status: models.StatusCompleted, PlayerID: winner}
		}
		return tx.SaveState()
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	if evt != nil {
		logger.Log.Infof("Session %s completed, winner %d", link, evt.PlayerID)
		e.hub.Publish(fanout.SessionTopic(link), evt.Payload())
	}

	rec, err := e.store.SessionByLink(link)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// Get fetches a session without locking.
func (e *Engine) Get(link string) (*models.SessionRecord, error) {
	rec, err := e.store.SessionByLink(link)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// List returns sessions filtered by status ("" for all).
func (e *Engine) List(status models.GameStatus, limit int) ([]*models.SessionRecord, error) {
	return e.store.ListSessions(status, limit)
}

// DeleteStale cascade-deletes private lobbies still open past ttl. Driven by
// the timer; a zero ttl disables it at the call site.
func (e *Engine) DeleteStale(ttl time.Duration) (int, error) {
	links, err := e.store.StaleLobbyLinks(time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, link := range links {
		if err := e.store.DeleteSession(link); err != nil {
			logger.Log.Warnf("Failed to delete stale lobby %s: %v", link, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		logger.Log.Infof("Swept %d stale private lobbies", deleted)
	}
	return deleted, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

func containsUint(list []uint, v uint) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
