package game

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// maxCodeAttempts bounds the search for an unused session code
const maxCodeAttempts = 64

// GenerateCode creates a random session code
func GenerateCode() string {
	code := make([]byte, CodeLength)
	for i := range CodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(CodeChars))))
		if err != nil {
			// fallback to math/rand if crypto fails
			code[i] = CodeChars[rand.Intn(len(CodeChars))]
			continue
		}
		code[i] = CodeChars[n.Int64()]
	}
	return string(code)
}

// UniqueCode generates codes until exists reports one as free
func UniqueCode(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for range maxCodeAttempts {
		code := GenerateCode()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free session code after %d attempts", maxCodeAttempts)
}

// NormalizeCode trims and upper-cases a user supplied code and validates it
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != CodeLength {
		return "", Errorf(KindInvalidCode, "Session codes are %d letters or digits.", CodeLength)
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeChars, rune(code[i])) {
			return "", Errorf(KindInvalidCode, "Session codes are %d letters or digits.", CodeLength)
		}
	}
	return code, nil
}

// NormalizeName trims a player name and enforces the length bounds
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", Errorf(KindInvalidName, "A player name is required.")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", Errorf(KindInvalidName, "Player names are limited to %d characters.", MaxNameLength)
	}
	return name, nil
}

// SameName compares two player names case-insensitively
func SameName(a, b string) bool {
	// Casers are stateful, so each comparison gets its own.
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// FindPlayerByName returns the player whose name matches, or nil
func FindPlayerByName(s *models.Session, name string) *models.Player {
	for i := range s.Players {
		if SameName(s.Players[i].Name, name) {
			return &s.Players[i]
		}
	}
	return nil
}

// ExpectedCommand names the command that moves a session out of its phase
func ExpectedCommand(p models.Phase) string {
	switch p {
	case models.PhaseLobby:
		return "addPlayer or assignRoles"
	case models.PhaseNightSeer:
		return "seerPeek"
	case models.PhaseNightWolves:
		return "wolvesVote"
	case models.PhaseNightWitch:
		return "witchAction or advanceToDay"
	case models.PhaseDay:
		return "startNextNight"
	case models.PhaseEnded:
		return "createSession"
	default:
		return "gameStatus"
	}
}
