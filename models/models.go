// models/models.go
package models

import (
	"time"
)

// GameStatus is the lifecycle status of a session.
type GameStatus string

const (
	StatusOpen        GameStatus = "open"
	StatusClosed      GameStatus = "closed"
	StatusPreparation GameStatus = "preparation"
	StatusInProgress  GameStatus = "in_progress"
	StatusCompleted   GameStatus = "completed"
)

// GameMode selects the rule set a session is played under.
type GameMode string

const (
	ModeConquest       GameMode = "Conquest"
	ModeWar            GameMode = "War"
	ModeCaptureTheFlag GameMode = "CaptureTheFlag"
)

// SessionRecord is the aggregate a single session is made of: the static game
// config, its lifecycle state and every per-player/per-unit row owned by it.
type SessionRecord struct {
	Game    Game
	State   GameState
	Players []GamePlayer
	Units   []GameUnit
}

// PlayerByID returns the GamePlayer row for the given user, or nil.
func (r *SessionRecord) PlayerByID(userID uint) *GamePlayer {
	for i := range r.Players {
		if r.Players[i].PlayerID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// Clone deep-copies the record. The memory store mutates clones and swaps them
// in on commit so a failed mutation never leaks partial writes.
func (r *SessionRecord) Clone() *SessionRecord {
	c := &SessionRecord{
		Game:    r.Game,
		State:   r.State,
		Players: make([]GamePlayer, len(r.Players)),
		Units:   make([]GameUnit, len(r.Units)),
	}
	c.State.Players = append([]uint(nil), r.State.Players...)
	c.State.ReplayLog = make([]map[string]any, len(r.State.ReplayLog))
	for i, entry := range r.State.ReplayLog {
		cp := make(map[string]any, len(entry))
		for k, v := range entry {
			cp[k] = v
		}
		c.State.ReplayLog[i] = cp
	}
	for i := range r.Players {
		c.Players[i] = r.Players[i]
		c.Players[i].GameUnits = append([]uint(nil), r.Players[i].GameUnits...)
	}
	for i := range r.Units {
		c.Units[i] = r.Units[i]
		boosts := make(map[string]int, len(r.Units[i].StatBoosts))
		for k, v := range r.Units[i].StatBoosts {
			boosts[k] = v
		}
		c.Units[i].StatBoosts = boosts
		c.Units[i].StatusEffects = append([]string(nil), r.Units[i].StatusEffects...)
	}
	return c
}

// HostInfo identifies a session's host in views.
type HostInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// PlayerView is the per-participant slice of a SessionView.
type PlayerView struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	CashRemaining int64  `json:"cash_remaining"`
	IsReady       bool   `json:"is_ready"`
	GameUnits     []uint `json:"game_units"`
}

// MapDetail is the catalog map data embedded in session views.
type MapDetail struct {
	ID                  uint     `json:"id"`
	Name                string   `json:"name"`
	IsOfficial          bool     `json:"is_official"`
	Width               int      `json:"width"`
	Height              int      `json:"height"`
	TilesetNames        []string `json:"tileset_names"`
	TileData            [][]int  `json:"tile_data"`
	AllowedModes        []string `json:"allowed_modes"`
	AllowedPlayerCounts []int    `json:"allowed_player_counts"`
}

// UnitSummary is the catalog unit data exposed to clients.
type UnitSummary struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Species     string   `json:"species"`
	Types       []string `json:"types"`
	Cost        int64    `json:"cost"`
	IsLegendary bool     `json:"is_legendary"`
}

// SessionView is the caller-facing shape of a session.
type SessionView struct {
	ID           uint             `json:"id"`
	Status       GameStatus       `json:"status"`
	IsPrivate    bool             `json:"is_private"`
	GameName     string           `json:"game_name"`
	MapName      string           `json:"map_name"`
	Map          *MapDetail       `json:"map,omitempty"`
	Gamemode     GameMode         `json:"gamemode"`
	MaxPlayers   int              `json:"max_players"`
	HostID       uint             `json:"host_id"`
	Host         HostInfo         `json:"host"`
	Players      []PlayerView     `json:"players"`
	WinnerID     *uint            `json:"winner_id"`
	CurrentTurn  int              `json:"current_turn"`
	StartingCash int64            `json:"starting_cash"`
	CashPerTurn  int64            `json:"cash_per_turn"`
	MaxTurns     int              `json:"max_turns"`
	UnitLimit    int              `json:"unit_limit"`
	TurnDuration int              `json:"turn_duration"`
	ReplayLog    []map[string]any `json:"replay_log"`
	Link         string           `json:"link"`
	Timestamp    time.Time        `json:"timestamp"`
}

// GameUnitView is the caller-facing shape of a placed unit.
type GameUnitView struct {
	ID            uint           `json:"id"`
	UnitID        uint           `json:"unit_id"`
	UserID        uint           `json:"user_id"`
	X             int            `json:"x"`
	Y             int            `json:"y"`
	CurrentHP     int            `json:"current_hp"`
	StatBoosts    map[string]int `json:"stat_boosts"`
	StatusEffects []string       `json:"status_effects"`
	IsFainted     bool           `json:"is_fainted"`
}

// UnitViewOf converts a stored GameUnit row into its view.
func UnitViewOf(u *GameUnit) GameUnitView {
	return GameUnitView{
		ID:            u.ID,
		UnitID:        u.UnitID,
		UserID:        u.UserID,
		X:             u.X,
		Y:             u.Y,
		CurrentHP:     u.CurrentHP,
		StatBoosts:    u.StatBoosts,
		StatusEffects: u.StatusEffects,
		IsFainted:     u.IsFainted,
	}
}
