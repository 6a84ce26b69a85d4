package models

import (
	"maps"
	"slices"
	"time"
)

// Potions tracks the witch's single-use potions. Each flag flips once and never resets.
type Potions struct {
	HealUsed   bool `json:"healUsed"`
	PoisonUsed bool `json:"poisonUsed"`
}

// Session is the single source of truth for one game, keyed by Code
type Session struct {
	Code        string        `json:"code"`
	CreatedAt   time.Time     `json:"createdAt"`
	Phase       Phase         `json:"phase"`
	Players     []Player      `json:"players"`
	LastKilled  *string       `json:"lastKilled,omitempty"`
	Potions     Potions       `json:"potions"`
	History     []Event       `json:"history"`
	ChatHistory []ChatMessage `json:"chatHistory"`

	// Version is bumped by the store on every successful save
	Version int64 `json:"version"`
}

// NewSession returns an empty lobby for code
func NewSession(code string, now time.Time) *Session {
	return &Session{
		Code:        code,
		CreatedAt:   now.UTC(),
		Phase:       PhaseLobby,
		Players:     []Player{},
		History:     []Event{},
		ChatHistory: []ChatMessage{},
	}
}

// Player returns a pointer to the player with id, or nil
func (s *Session) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// AlivePlayers returns the living players in seating order
func (s *Session) AlivePlayers() []Player {
	alive := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// HasLiving reports whether at least one living player holds role
func (s *Session) HasLiving(role Role) bool {
	for _, p := range s.Players {
		if p.Alive() && p.Role == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without touching the original
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = slices.Clone(s.Players)
	if c.Players == nil {
		c.Players = []Player{}
	}
	if s.LastKilled != nil {
		id := *s.LastKilled
		c.LastKilled = &id
	}
	c.History = make([]Event, len(s.History))
	for i, e := range s.History {
		e.Payload = maps.Clone(e.Payload)
		c.History[i] = e
	}
	c.ChatHistory = slices.Clone(s.ChatHistory)
	if c.ChatHistory == nil {
		c.ChatHistory = []ChatMessage{}
	}
	return &c
}
