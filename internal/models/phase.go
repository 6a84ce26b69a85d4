package models

// Phase represents the current step of a session's state machine
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseNightSeer   Phase = "night_seer"
	PhaseNightWolves Phase = "night_wolves"
	PhaseNightWitch  Phase = "night_witch"
	PhaseDay         Phase = "day"
	PhaseEnded       Phase = "ended"
)

// Valid reports whether p is one of the known phases
func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseNightSeer, PhaseNightWolves, PhaseNightWitch, PhaseDay, PhaseEnded:
		return true
	}
	return false
}

// IsNight reports whether p is one of the night sub-phases
func (p Phase) IsNight() bool {
	return p == PhaseNightSeer || p == PhaseNightWolves || p == PhaseNightWitch
}

// Winner names the side that won a finished game
type Winner string

const (
	WinnerNone    Winner = ""
	WinnerWolves  Winner = "wolves"
	WinnerVillage Winner = "village"
)
