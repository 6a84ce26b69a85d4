package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
)

// Command names accepted by the dispatcher
const (
	CmdCreateSession    = "createSession"
	CmdJoinSession      = "joinSession"
	CmdAddPlayer        = "addPlayer"
	CmdRemovePlayer     = "removePlayer"
	CmdListPlayers      = "listPlayers"
	CmdAssignRoles      = "assignRoles"
	CmdSeerPeek         = "seerPeek"
	CmdWolvesVote       = "wolvesVote"
	CmdWitchAction      = "witchAction"
	CmdStartNextNight   = "startNextNight"
	CmdGameStatus       = "gameStatus"
	CmdRunNightSequence = "runNightSequence"
	CmdAdvanceToDay     = "advanceToDay"
	CmdHistory          = "history"
)

// Command is one request to the game master
type Command struct {
	Name string `json:"name"`
	Args Args   `json:"args"`
}

// Args is the union of every command's arguments. Unused fields are ignored.
type Args struct {
	Code         string `json:"code,omitempty"`
	Name         string `json:"name,omitempty"`
	Seed         *int64 `json:"seed,omitempty"`
	TargetName   string `json:"targetName,omitempty"`
	Heal         bool   `json:"heal,omitempty"`
	PoisonTarget string `json:"poisonTarget,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// DecodeArgs parses a JSON argument object as produced by a tool call
func DecodeArgs(raw string) (Args, error) {
	var args Args
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Args{}, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

// Result reports the outcome of a single command. Domain failures are carried
// in Error and Kind; they never come back as Go errors.
type Result struct {
	Command string       `json:"command"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Kind    game.Kind    `json:"kind,omitempty"`
	Hint    string       `json:"hint,omitempty"`
	Code    string       `json:"code,omitempty"`
	Phase   models.Phase `json:"phase,omitempty"`
	Mutated bool         `json:"mutated"`

	// Role is the seer's private answer, set only by seerPeek
	Role models.Role `json:"role,omitempty"`
}

// OK reports whether the command succeeded
func (r Result) OK() bool {
	return r.Error == ""
}

// Text renders the result as a single line for chat replies and tool output
func (r Result) Text() string {
	if r.OK() {
		return r.Message
	}
	if r.Hint != "" {
		return r.Error + " " + r.Hint
	}
	return r.Error
}

// Exchange carries the session binding through one interaction. Callers own it
// and pass it explicitly to every Dispatch call.
type Exchange struct {
	// Code is the bound session, empty until createSession or joinSession succeeds
	Code string

	// Session is the latest persisted state of the bound session
	Session *models.Session

	Executed []Result
	Errors   []string
}

// NewExchange returns an exchange bound to code, which may be empty
func NewExchange(code string) *Exchange {
	return &Exchange{Code: code}
}
