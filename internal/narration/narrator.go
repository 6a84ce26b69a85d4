package narration

import (
	"context"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/render"
)

// Narrator turns a snapshot into text for the table. It never fails: when a
// backend is unavailable it degrades to a deterministic rendering.
type Narrator interface {
	Narrate(ctx context.Context, snap Snapshot) string
}

// Template narrates without any model
type Template struct{}

// Narrate renders phase, players and the latest event
func (Template) Narrate(_ context.Context, snap Snapshot) string {
	if !snap.Active {
		return "No active session. Create or join one to begin."
	}
	var b strings.Builder
	b.WriteString(`Phase: `)
	b.WriteString(string(snap.Phase))
	b.WriteString(`. Players: `)
	b.WriteString(players(append(append([]render.PublicPlayer{}, snap.Alive...), snap.Dead...)))
	b.WriteString(`. Last event: `)
	if last := snap.LastEvent(); last != "" {
		b.WriteString(last)
	} else {
		b.WriteString(`none`)
	}
	b.WriteString(`.`)
	if snap.Winner != models.WinnerNone {
		b.WriteString(` Winner: `)
		b.WriteString(string(snap.Winner))
		b.WriteString(`.`)
	}
	return b.String()
}

func players(ps []render.PublicPlayer) string {
	if len(ps) == 0 {
		return "none"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name + " (" + string(p.Status) + ", role: " + p.Role + ")"
	}
	return strings.Join(parts, ", ")
}

// Prompt is the user message sent to a model for snap
func Prompt(snap Snapshot) string {
	if !snap.Active {
		return "There is no active session. Invite the moderator to create or join one."
	}
	alive := make([]string, len(snap.Alive))
	for i, p := range snap.Alive {
		alive[i] = p.Name
	}
	dead := make([]string, len(snap.Dead))
	for i, p := range snap.Dead {
		dead[i] = p.Name + " (" + p.Role + ")"
	}

	lines := []string{
		"Current phase: " + string(snap.Phase),
		"Living players: " + orNone(alive),
		"Eliminated players: " + orNone(dead),
	}
	if len(snap.RecentEvents) > 0 {
		lines = append(lines, "Recent events:")
		for _, e := range tail(snap.RecentEvents, 3) {
			lines = append(lines, "- "+e)
		}
	} else {
		lines = append(lines, "No recent events.")
	}
	lines = append(lines, "Expected: "+expectedAction(snap))
	return strings.Join(lines, "\n")
}

func expectedAction(snap Snapshot) string {
	switch snap.Phase {
	case models.PhaseNightSeer:
		return "invite the seer to inspect a player."
	case models.PhaseNightWolves:
		return "invite the werewolves to choose a victim."
	case models.PhaseNightWitch:
		return "remind the witch which potions remain."
	case models.PhaseDay:
		return "announce what happened during the night and open the discussion."
	case models.PhaseEnded:
		return "announce the victory of the " + string(snap.Winner) + "."
	default:
		return "welcome the players and prepare the game."
	}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func tail(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
