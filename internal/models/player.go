package models

// Role is the hidden card dealt to a player
type Role string

const (
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleWolf     Role = "wolf"
	RoleVillager Role = "villager"
)

// Valid reports whether r is one of the four playable roles
func (r Role) Valid() bool {
	switch r {
	case RoleSeer, RoleWitch, RoleWolf, RoleVillager:
		return true
	}
	return false
}

// Status is a player's life state. Dead is terminal.
type Status string

const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"
)

// Player represents a player seated in a session
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`
}

// Alive reports whether the player is still in the game
func (p Player) Alive() bool {
	return p.Status == StatusAlive
}
