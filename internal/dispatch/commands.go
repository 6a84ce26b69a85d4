package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/render"
)

type commandSpec struct {
	run func(ctx context.Context, c *call) (string, error)

	// night commands see the session after dead actors' turns are skipped
	night bool
}

var commands = map[string]commandSpec{
	CmdAddPlayer:        {run: addPlayer},
	CmdRemovePlayer:     {run: removePlayer},
	CmdListPlayers:      {run: listPlayers},
	CmdAssignRoles:      {run: assignRoles},
	CmdSeerPeek:         {run: seerPeek, night: true},
	CmdWolvesVote:       {run: wolvesVote, night: true},
	CmdWitchAction:      {run: witchAction, night: true},
	CmdStartNextNight:   {run: startNextNight},
	CmdGameStatus:       {run: gameStatus},
	CmdRunNightSequence: {run: runNightSequence, night: true},
	CmdAdvanceToDay:     {run: advanceToDay, night: true},
	CmdHistory:          {run: history},
}

// call is the working state of one command against a private session copy
type call struct {
	d       *Dispatcher
	s       *models.Session
	args    Args
	role    models.Role
	skipped []models.Role
	mutated bool
}

func (c *call) record(eventType string, payload map[string]string) {
	c.s.History = append(c.s.History, models.Event{
		Timestamp: c.d.now().UTC(),
		Type:      eventType,
		Payload:   payload,
	})
	c.mutated = true
}

// normalizeNight advances past night sub-phases whose actor has no living
// member, recording each skip. It is a no-op outside the night.
func (c *call) normalizeNight() {
	for {
		actor, next, ok := game.NightActor(c.s.Phase)
		if !ok || c.s.HasLiving(actor) {
			return
		}
		c.record(models.EventPhaseSkipped, map[string]string{
			"from":   string(c.s.Phase),
			"to":     string(next),
			"reason": "no living " + string(actor),
		})
		c.skipped = append(c.skipped, actor)
		c.s.Phase = next
	}
}

// finalize ends the game when a win condition holds and returns the
// announcement, if any
func (c *call) finalize() string {
	if c.s.Phase == models.PhaseLobby || c.s.Phase == models.PhaseEnded {
		return ""
	}
	over, winner := game.IsGameOver(c.s)
	if !over {
		return ""
	}
	c.s.Phase = models.PhaseEnded
	c.record(models.EventGameOver, map[string]string{"winner": string(winner)})
	if winner == models.WinnerWolves {
		return "The game is over: the wolves win."
	}
	return "The game is over: the village wins."
}

// target resolves a player name argument
func (c *call) target(name string) (*models.Player, error) {
	if strings.TrimSpace(name) == "" {
		return nil, game.Errorf(game.KindPlayerNotFound, "A target name is required.")
	}
	p := game.FindPlayerByName(c.s, name)
	if p == nil {
		return nil, game.Errorf(game.KindPlayerNotFound, "No player named %s.", strings.TrimSpace(name))
	}
	return p, nil
}

func (c *call) name(id string) string {
	if p := c.s.Player(id); p != nil {
		return p.Name
	}
	return id
}

func addPlayer(_ context.Context, c *call) (string, error) {
	p, err := game.AddPlayer(c.s, c.d.newID(), c.args.Name)
	if err != nil {
		return "", err
	}
	name := p.Name
	c.record(models.EventPlayerAdded, map[string]string{"name": name})
	return fmt.Sprintf("%s joins the game (%d players).", name, len(c.s.Players)), nil
}

func removePlayer(_ context.Context, c *call) (string, error) {
	p, err := game.RemovePlayer(c.s, c.args.Name)
	if err != nil {
		return "", err
	}
	c.record(models.EventPlayerRemoved, map[string]string{"name": p.Name})
	return fmt.Sprintf("%s leaves the game (%d players).", p.Name, len(c.s.Players)), nil
}

func listPlayers(_ context.Context, c *call) (string, error) {
	return render.PlayerList(c.s), nil
}

func gameStatus(_ context.Context, c *call) (string, error) {
	return render.Status(c.s), nil
}

func history(_ context.Context, c *call) (string, error) {
	events := render.Recent(c.s.History, c.args.Limit)
	if len(events) == 0 {
		return "No events yet.", nil
	}
	return strings.Join(render.Events(events), "\n"), nil
}

func assignRoles(_ context.Context, c *call) (string, error) {
	assignments, err := game.AssignRoles(c.s, c.args.Seed)
	if err != nil {
		return "", err
	}
	c.record(models.EventRolesAssigned, map[string]string{"players": strconv.Itoa(len(assignments))})
	return fmt.Sprintf("Roles are dealt to %d players. Night falls on the village.", len(assignments)), nil
}

func seerPeek(_ context.Context, c *call) (string, error) {
	if err := game.RequireTurn(c.s, models.PhaseNightSeer); err != nil {
		return "", err
	}
	t, err := c.target(c.args.TargetName)
	if err != nil {
		return "", err
	}
	role, err := game.SeerPeek(c.s, t.ID)
	if err != nil {
		return "", err
	}
	// the revealed role stays out of the history
	c.record(models.EventSeerPeek, map[string]string{"target": t.Name})
	c.role = role
	return fmt.Sprintf("The seer discovers that %s is a %s.", t.Name, role), nil
}

func wolvesVote(_ context.Context, c *call) (string, error) {
	if err := game.RequireTurn(c.s, models.PhaseNightWolves); err != nil {
		return "", err
	}
	t, err := c.target(c.args.TargetName)
	if err != nil {
		return "", err
	}
	if _, err := game.WolvesVote(c.s, t.ID); err != nil {
		return "", err
	}
	c.record(models.EventWolvesVote, map[string]string{"target": t.Name})
	return fmt.Sprintf("The wolves target %s.", t.Name), nil
}

func witchAction(_ context.Context, c *call) (string, error) {
	if err := game.RequireTurn(c.s, models.PhaseNightWitch); err != nil {
		return "", err
	}
	poisonID := ""
	if strings.TrimSpace(c.args.PoisonTarget) != "" {
		t, err := c.target(c.args.PoisonTarget)
		if err != nil {
			return "", err
		}
		poisonID = t.ID
	}
	out, err := game.WitchAction(c.s, c.args.Heal, poisonID)
	if err != nil {
		return "", err
	}
	if out.Healed != "" {
		c.record(models.EventWitchHeal, map[string]string{"saved": c.name(out.Healed)})
	}
	if out.Poisoned != "" {
		c.record(models.EventWitchPoison, map[string]string{"target": c.name(out.Poisoned)})
	}
	c.recordDeaths(out)
	return "The witch has acted. " + dawn(c, out), nil
}

func advanceToDay(_ context.Context, c *call) (string, error) {
	out, err := game.WitchAction(c.s, false, "")
	if err != nil {
		return "", err
	}
	c.recordDeaths(out)
	c.record(models.EventNightFinished, map[string]string{})
	return "The village wakes up. " + dawn(c, out), nil
}

func (c *call) recordDeaths(out game.NightOutcome) {
	for _, id := range out.Deaths {
		c.record(models.EventPlayerKilled, map[string]string{"name": c.name(id)})
	}
	// the phase moved to day even when nobody died
	c.mutated = true
}

func dawn(c *call, out game.NightOutcome) string {
	if len(out.Deaths) == 0 {
		return "Nobody died tonight."
	}
	names := make([]string, len(out.Deaths))
	for i, id := range out.Deaths {
		names[i] = c.name(id)
	}
	return "Found dead at dawn: " + strings.Join(names, ", ") + "."
}

func startNextNight(_ context.Context, c *call) (string, error) {
	if err := game.StartNextNight(c.s); err != nil {
		return "", err
	}
	c.record(models.EventNightStarted, map[string]string{})
	return "A new night falls on the village.", nil
}

// runNightSequence tells the moderator who wakes up next. Apart from skipping
// dead actors it changes nothing.
func runNightSequence(_ context.Context, c *call) (string, error) {
	if !c.s.Phase.IsNight() {
		return "", game.Errorf(game.KindPhaseViolation, "The night sequence only runs at night (current phase: %s).", c.s.Phase)
	}

	var lines []string
	for _, role := range c.skipped {
		switch role {
		case models.RoleSeer:
			lines = append(lines, "The seer is no longer with us.")
		case models.RoleWolf:
			lines = append(lines, "The werewolves have all been eliminated.")
		}
	}

	switch c.s.Phase {
	case models.PhaseNightSeer:
		lines = append(lines,
			fmt.Sprintf("The seer (%s) wakes up.", render.Names(living(c.s, models.RoleSeer))),
			"Seer, whose role do you want to see?")
	case models.PhaseNightWolves:
		lines = append(lines,
			fmt.Sprintf("The werewolves (%s) wake up.", render.Names(living(c.s, models.RoleWolf))),
			"Wolves, whom do you want to devour?")
	case models.PhaseNightWitch:
		witches := living(c.s, models.RoleWitch)
		if len(witches) == 0 {
			lines = append(lines, "The witch is no longer with us. Wake the village with advanceToDay.")
			break
		}
		lines = append(lines, fmt.Sprintf("The witch (%s) wakes up.", render.Names(witches)))
		if !c.s.Potions.HealUsed && c.s.LastKilled != nil {
			lines = append(lines, fmt.Sprintf("The wolves attacked %s. The healing potion can save them.", c.name(*c.s.LastKilled)))
		}
		if !c.s.Potions.PoisonUsed {
			lines = append(lines, "The poison potion is still available.")
		}
		lines = append(lines, "Heal, poison someone, or pass with advanceToDay.")
	}
	return strings.Join(lines, "\n"), nil
}

func living(s *models.Session, role models.Role) []models.Player {
	var out []models.Player
	for _, p := range s.Players {
		if p.Alive() && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}
