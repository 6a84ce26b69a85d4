package mcpserver

import "github.com/aaronzipp/werewolf-gm/internal/dispatch"

// commandInput is implemented by every tool input type
type commandInput interface {
	args() dispatch.Args
}

// NoInput is the input of commands without arguments
type NoInput struct{}

func (NoInput) args() dispatch.Args { return dispatch.Args{} }

// CreateInput is the input of createSession
type CreateInput struct {
	Code string `json:"code,omitempty" jsonschema:"custom code of 6 letters or digits"`
}

func (in CreateInput) args() dispatch.Args { return dispatch.Args{Code: in.Code} }

// JoinInput is the input of joinSession
type JoinInput struct {
	Code string `json:"code" jsonschema:"session code of 6 letters or digits"`
}

func (in JoinInput) args() dispatch.Args { return dispatch.Args{Code: in.Code} }

// NameInput is the input of addPlayer and removePlayer
type NameInput struct {
	Name string `json:"name" jsonschema:"player name"`
}

func (in NameInput) args() dispatch.Args { return dispatch.Args{Name: in.Name} }

// DealInput is the input of assignRoles
type DealInput struct {
	Seed *int64 `json:"seed,omitempty" jsonschema:"seed to reproduce a deal"`
}

func (in DealInput) args() dispatch.Args { return dispatch.Args{Seed: in.Seed} }

// TargetInput is the input of seerPeek and wolvesVote
type TargetInput struct {
	TargetName string `json:"targetName" jsonschema:"name of the targeted player"`
}

func (in TargetInput) args() dispatch.Args { return dispatch.Args{TargetName: in.TargetName} }

// WitchInput is the input of witchAction
type WitchInput struct {
	Heal         bool   `json:"heal,omitempty" jsonschema:"use the heal potion on tonight's victim"`
	PoisonTarget string `json:"poisonTarget,omitempty" jsonschema:"name of the player to poison"`
}

func (in WitchInput) args() dispatch.Args {
	return dispatch.Args{Heal: in.Heal, PoisonTarget: in.PoisonTarget}
}

// HistoryInput is the input of history
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of events to return"`
}

func (in HistoryInput) args() dispatch.Args { return dispatch.Args{Limit: in.Limit} }
