package game

import (
	"slices"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// NightOutcome reports how the witch's turn resolved the night
type NightOutcome struct {
	// Resolved is the poison target when poison resolved the night, otherwise the
	// wolves' victim. Empty when nobody died.
	Resolved string
	Healed   string
	Poisoned string
	Deaths   []string
}

func requirePhase(s *models.Session, want models.Phase, msg string) error {
	if s.Phase != want {
		return Errorf(KindPhaseViolation, "%s (current phase: %s).", msg, s.Phase)
	}
	return nil
}

var turnMessages = map[models.Phase]string{
	models.PhaseNightSeer:   "It is not the seer's turn",
	models.PhaseNightWolves: "It is not the wolves' turn",
	models.PhaseNightWitch:  "It is not the witch's turn",
}

// RequireTurn fails with a phase violation unless s is in the night sub-phase
// turn. Callers resolving target names check it first.
func RequireTurn(s *models.Session, turn models.Phase) error {
	return requirePhase(s, turn, turnMessages[turn])
}

func aliveTarget(s *models.Session, id string) (*models.Player, error) {
	p := s.Player(id)
	if p == nil {
		return nil, Errorf(KindPlayerNotFound, "Player not found.")
	}
	if !p.Alive() {
		return nil, Errorf(KindNotAlive, "%s is already dead.", p.Name)
	}
	return p, nil
}

// AddPlayer seats a new living villager in the lobby
func AddPlayer(s *models.Session, id, rawName string) (*models.Player, error) {
	if err := requirePhase(s, models.PhaseLobby, "Players can only join in the lobby"); err != nil {
		return nil, err
	}
	name, err := NormalizeName(rawName)
	if err != nil {
		return nil, err
	}
	if FindPlayerByName(s, name) != nil {
		return nil, Errorf(KindDuplicateName, "%s is already seated.", name)
	}
	s.Players = append(s.Players, models.Player{
		ID:     id,
		Name:   name,
		Role:   models.RoleVillager,
		Status: models.StatusAlive,
	})
	return &s.Players[len(s.Players)-1], nil
}

// RemovePlayer unseats a player from the lobby by name
func RemovePlayer(s *models.Session, name string) (models.Player, error) {
	if err := requirePhase(s, models.PhaseLobby, "Players can only leave in the lobby"); err != nil {
		return models.Player{}, err
	}
	p := FindPlayerByName(s, name)
	if p == nil {
		return models.Player{}, Errorf(KindPlayerNotFound, "No player named %s.", strings.TrimSpace(name))
	}
	removed := *p
	s.Players = slices.DeleteFunc(s.Players, func(q models.Player) bool { return q.ID == removed.ID })
	return removed, nil
}

// AssignRoles deals roles to every seated player and opens the first night
func AssignRoles(s *models.Session, seed *int64) (map[string]models.Role, error) {
	if err := requirePhase(s, models.PhaseLobby, "Roles can only be dealt in the lobby"); err != nil {
		return nil, err
	}
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	assignments, err := AssignRolesToIDs(ids, seed)
	if err != nil {
		return nil, err
	}
	for i := range s.Players {
		s.Players[i].Role = assignments[s.Players[i].ID]
		s.Players[i].Status = models.StatusAlive
	}
	s.Phase = models.PhaseNightSeer
	return assignments, nil
}

// SeerPeek reveals the target's role to the caller only
func SeerPeek(s *models.Session, targetID string) (models.Role, error) {
	if err := RequireTurn(s, models.PhaseNightSeer); err != nil {
		return "", err
	}
	target, err := aliveTarget(s, targetID)
	if err != nil {
		return "", err
	}
	s.Phase = models.PhaseNightWolves
	return target.Role, nil
}

// WolvesVote records the wolves' victim as the pending kill
func WolvesVote(s *models.Session, targetID string) (string, error) {
	if err := RequireTurn(s, models.PhaseNightWolves); err != nil {
		return "", err
	}
	target, err := aliveTarget(s, targetID)
	if err != nil {
		return "", err
	}
	id := target.ID
	s.LastKilled = &id
	s.Phase = models.PhaseNightWitch
	return id, nil
}

// WitchAction applies the witch's potions and closes the night. Every check runs
// before the session is touched. heal=false with no poison target is a pass.
func WitchAction(s *models.Session, heal bool, poisonTargetID string) (NightOutcome, error) {
	if err := RequireTurn(s, models.PhaseNightWitch); err != nil {
		return NightOutcome{}, err
	}

	pending := ""
	if s.LastKilled != nil {
		pending = *s.LastKilled
	}

	if heal {
		if s.Potions.HealUsed {
			return NightOutcome{}, Errorf(KindPotionAlreadyUsed, "The healing potion has already been used.")
		}
		if pending == "" {
			return NightOutcome{}, Errorf(KindNoPendingVictim, "There is nobody to save tonight.")
		}
	}

	var poisoned *models.Player
	if poisonTargetID != "" {
		if s.Potions.PoisonUsed {
			return NightOutcome{}, Errorf(KindPotionAlreadyUsed, "The poison potion has already been used.")
		}
		target, err := aliveTarget(s, poisonTargetID)
		if err != nil {
			return NightOutcome{}, err
		}
		if !heal && target.ID == pending {
			return NightOutcome{}, Errorf(KindDuplicateTarget, "%s is already the wolves' target tonight.", target.Name)
		}
		poisoned = target
	}

	var out NightOutcome
	if heal {
		s.Potions.HealUsed = true
		out.Healed = pending
		pending = ""
	}
	if pending != "" {
		if victim := s.Player(pending); victim != nil {
			victim.Status = models.StatusDead
			out.Deaths = append(out.Deaths, victim.ID)
			out.Resolved = victim.ID
		}
	}
	if poisoned != nil {
		poisoned.Status = models.StatusDead
		s.Potions.PoisonUsed = true
		out.Poisoned = poisoned.ID
		out.Deaths = append(out.Deaths, poisoned.ID)
		out.Resolved = poisoned.ID
	}

	s.LastKilled = nil
	s.Phase = models.PhaseDay
	return out, nil
}

// StartNextNight moves a finished day into the next night
func StartNextNight(s *models.Session) error {
	if err := requirePhase(s, models.PhaseDay, "A new night can only start after the day"); err != nil {
		return err
	}
	s.Phase = models.PhaseNightSeer
	return nil
}

// IsGameOver checks the win conditions. A tie between wolves and the rest of the
// village counts as a wolf win.
func IsGameOver(s *models.Session) (bool, models.Winner) {
	wolves, others := 0, 0
	for _, p := range s.Players {
		if !p.Alive() {
			continue
		}
		if p.Role == models.RoleWolf {
			wolves++
		} else {
			others++
		}
	}
	if wolves == 0 {
		return true, models.WinnerVillage
	}
	if wolves >= others {
		return true, models.WinnerWolves
	}
	return false, models.WinnerNone
}

// NightActor returns the role that acts in a night sub-phase and the sub-phase that
// follows when that role has no living member. ok is false for phases that are never
// skipped.
func NightActor(p models.Phase) (actor models.Role, next models.Phase, ok bool) {
	switch p {
	case models.PhaseNightSeer:
		return models.RoleSeer, models.PhaseNightWolves, true
	case models.PhaseNightWolves:
		return models.RoleWolf, models.PhaseNightWitch, true
	}
	return "", "", false
}
