// lifecycle/events.go
package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// Event is the notification payload published on the fan-out channel. It
// travels as opaque text; subscribers parse what they care about.
type Event struct {
	Event    string            `json:"event"`
	Link     string            `json:"link"`
	Status   models.GameStatus `json:"status,omitempty"`
	PlayerID uint              `json:"player_id,omitempty"`
	Turn     int               `json:"turn,omitempty"`
	UnitID   uint              `json:"unit_id,omitempty"`
}

const (
	EventLobbyCreated  = "lobby_created"
	EventPlayerJoined  = "player_joined"
	EventStatusChanged = "status_changed"
	EventCompleted     = "completed"
)

// Payload renders the event as the text frame subscribers receive.
func (e Event) Payload() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// linkFor derives the shareable link from the generated session id, the game
// name and creation time. Content-derived, so links are stable and collisions
// would need a sha256 collision on distinct ids.
func linkFor(gameID uint, name string, created time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d", gameID, name, created.UnixNano())))
	return hex.EncodeToString(sum[:])[:12]
}
