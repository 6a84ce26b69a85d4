package models

import "time"

// Event types appended to a session's history
const (
	EventGameCreated   = "game_created"
	EventPlayerAdded   = "player_added"
	EventPlayerRemoved = "player_removed"
	EventRolesAssigned = "roles_assigned"
	EventSeerPeek      = "seer_peek"
	EventWolvesVote    = "wolves_vote"
	EventWitchHeal     = "witch_heal"
	EventWitchPoison   = "witch_poison"
	EventPlayerKilled  = "player_killed"
	EventNightFinished = "night_finished"
	EventNightStarted  = "night_started"
	EventPhaseSkipped  = "phase_skipped"
	EventGameOver      = "game_over"
)

// Event is an immutable audit entry in a session's history
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// ChatRole identifies the speaker of a chat turn
type ChatRole string

const (
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
	ChatSystem    ChatRole = "system"
)

// ChatMessage is one dialogue turn between a moderator and the game master
type ChatMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
}
