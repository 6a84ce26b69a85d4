package narration

import (
	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/render"
)

// Snapshot is the read-only view a narrator works from. Living players' roles
// are hidden until the game ends.
type Snapshot struct {
	Active       bool
	Code         string
	Phase        models.Phase
	Alive        []render.PublicPlayer
	Dead         []render.PublicPlayer
	RecentEvents []string
	Potions      models.Potions
	Winner       models.Winner
}

// SnapshotOf builds the snapshot of s; a nil session yields an inactive one
func SnapshotOf(s *models.Session) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		Active:       true,
		Code:         s.Code,
		Phase:        s.Phase,
		RecentEvents: render.Events(render.Recent(s.History, game.RecentEvents)),
		Potions:      s.Potions,
		Winner:       render.Winner(s),
	}
	for _, p := range render.PublicView(s).Players {
		if p.Status == models.StatusAlive {
			snap.Alive = append(snap.Alive, p)
		} else {
			snap.Dead = append(snap.Dead, p)
		}
	}
	return snap
}

// LastEvent returns the most recent formatted event, or ""
func (s Snapshot) LastEvent() string {
	if len(s.RecentEvents) == 0 {
		return ""
	}
	return s.RecentEvents[len(s.RecentEvents)-1]
}
