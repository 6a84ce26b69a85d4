package game

const (
	// MinPlayers is the minimum number of players required to deal roles
	MinPlayers = 5

	// MaxNameLength bounds a player name, counted in runes
	MaxNameLength = 40

	// CodeLength is the length of session codes
	CodeLength = 6

	// CodeChars are the characters allowed in session codes
	CodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// RecentEvents is how many history entries a snapshot carries
	RecentEvents = 5
)
