// lifecycle/modes.go
package lifecycle

import (
	"github.com/Feral-Mailbox/PokeWars/models"
)

// ModeRules captures how a game mode moves through the lobby lifecycle.
// Conquest and CaptureTheFlag have a preparation phase in which players place
// units and may signal readiness; War deploys automatically and goes straight
// from closed to in_progress.
type ModeRules struct {
	HasPreparation    bool
	SupportsReadiness bool
}

var modeRules = map[models.GameMode]ModeRules{
	models.ModeConquest:       {HasPreparation: true, SupportsReadiness: true},
	models.ModeCaptureTheFlag: {HasPreparation: true, SupportsReadiness: true},
	models.ModeWar:            {HasPreparation: false, SupportsReadiness: false},
}

// RulesFor returns the rules for mode and whether the mode exists.
func RulesFor(mode models.GameMode) (ModeRules, bool) {
	r, ok := modeRules[mode]
	return r, ok
}
