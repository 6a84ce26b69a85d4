package render

import (
	"slices"
	"strconv"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// HiddenRole is shown in place of a living player's role until the game ends
const HiddenRole = "hidden"

// PublicPlayer is a player as the table is allowed to see them
type PublicPlayer struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Role   string        `json:"role"`
	Status models.Status `json:"status"`
}

// PublicSession is the snapshot served to clients and SSE subscribers
type PublicSession struct {
	Code         string         `json:"code"`
	Phase        models.Phase   `json:"phase"`
	Players      []PublicPlayer `json:"players"`
	Potions      models.Potions `json:"potions"`
	Winner       models.Winner  `json:"winner,omitempty"`
	Expected     string         `json:"expected"`
	RecentEvents []string       `json:"recentEvents"`
	Version      int64          `json:"version"`
}

// PublicRole returns p's role if it may be shown, otherwise HiddenRole
func PublicRole(s *models.Session, p models.Player) string {
	if s.Phase == models.PhaseEnded || !p.Alive() {
		return string(p.Role)
	}
	return HiddenRole
}

// PublicView builds the client snapshot of s
func PublicView(s *models.Session) PublicSession {
	players := make([]PublicPlayer, len(s.Players))
	for i, p := range s.Players {
		players[i] = PublicPlayer{ID: p.ID, Name: p.Name, Role: PublicRole(s, p), Status: p.Status}
	}
	return PublicSession{
		Code:         s.Code,
		Phase:        s.Phase,
		Players:      players,
		Potions:      s.Potions,
		Winner:       Winner(s),
		Expected:     game.ExpectedCommand(s.Phase),
		RecentEvents: Events(Recent(s.History, game.RecentEvents)),
		Version:      s.Version,
	}
}

// Winner returns the side recorded by the game_over event, if any
func Winner(s *models.Session) models.Winner {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Type == models.EventGameOver {
			return models.Winner(s.History[i].Payload["winner"])
		}
	}
	return models.WinnerNone
}

// Recent returns at most the last n events
func Recent(events []models.Event, n int) []models.Event {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// FormatEvent renders an event as "Type (key: value, ...)" with keys sorted
func FormatEvent(e models.Event) string {
	base := strings.ReplaceAll(e.Type, "_", " ")
	if base != "" {
		base = strings.ToUpper(base[:1]) + base[1:]
	}
	if len(e.Payload) == 0 {
		return base
	}
	keys := make([]string, 0, len(e.Payload))
	for k := range e.Payload {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(` (`)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(`, `)
		}
		b.WriteString(k)
		b.WriteString(`: `)
		b.WriteString(e.Payload[k])
	}
	b.WriteString(`)`)
	return b.String()
}

// Events formats each event in order
func Events(events []models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = FormatEvent(e)
	}
	return out
}

// PlayerList renders the roster, hiding roles that are still secret
func PlayerList(s *models.Session) string {
	if len(s.Players) == 0 {
		return "No players seated yet."
	}
	var b strings.Builder
	b.WriteString(`Players (`)
	b.WriteString(strconv.Itoa(len(s.Players)))
	b.WriteString(`):`)
	for _, p := range s.Players {
		b.WriteString("\n- ")
		b.WriteString(p.Name)
		b.WriteString(` (`)
		b.WriteString(string(p.Status))
		b.WriteString(`, role: `)
		b.WriteString(PublicRole(s, p))
		b.WriteString(`)`)
	}
	return b.String()
}

// Names joins player names, or returns "none"
func Names(players []models.Player) string {
	if len(players) == 0 {
		return "none"
	}
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// DeadPlayers returns the dead players in seating order
func DeadPlayers(s *models.Session) []models.Player {
	var dead []models.Player
	for _, p := range s.Players {
		if !p.Alive() {
			dead = append(dead, p)
		}
	}
	return dead
}

// Status summarizes phase, survivors and potions
func Status(s *models.Session) string {
	var b strings.Builder
	b.WriteString(`Phase: `)
	b.WriteString(string(s.Phase))
	b.WriteString(".\nAlive: ")
	b.WriteString(Names(s.AlivePlayers()))
	b.WriteString(".\nDead: ")
	b.WriteString(Names(DeadPlayers(s)))
	b.WriteString(".\nPotions: heal used ")
	b.WriteString(strconv.FormatBool(s.Potions.HealUsed))
	b.WriteString(", poison used ")
	b.WriteString(strconv.FormatBool(s.Potions.PoisonUsed))
	b.WriteString(`.`)
	if w := Winner(s); w != models.WinnerNone {
		b.WriteString("\nWinner: ")
		b.WriteString(string(w))
		b.WriteString(`.`)
	}
	return b.String()
}
