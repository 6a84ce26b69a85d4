package dispatch

// Param describes one command argument
type Param struct {
	Name        string
	Type        string // JSON schema type
	Description string
	Required    bool
}

// Spec describes a command for tool-calling clients
type Spec struct {
	Name        string
	Description string
	Params      []Param
}

// Catalog lists every command in the order they are offered to clients
var Catalog = []Spec{
	{
		Name:        CmdCreateSession,
		Description: "Create a new session, optionally with a custom code, and bind it.",
		Params: []Param{
			{Name: "code", Type: "string", Description: "Custom code of 6 letters or digits (optional)."},
		},
	},
	{
		Name:        CmdJoinSession,
		Description: "Bind an existing session by its code.",
		Params: []Param{
			{Name: "code", Type: "string", Description: "Session code of 6 letters or digits.", Required: true},
		},
	},
	{
		Name:        CmdAddPlayer,
		Description: "Seat a new living player in the lobby.",
		Params: []Param{
			{Name: "name", Type: "string", Description: "Name of the player to add.", Required: true},
		},
	},
	{
		Name:        CmdRemovePlayer,
		Description: "Remove a player from the lobby.",
		Params: []Param{
			{Name: "name", Type: "string", Description: "Name of the player to remove.", Required: true},
		},
	},
	{
		Name:        CmdListPlayers,
		Description: "List the players and their status.",
	},
	{
		Name:        CmdAssignRoles,
		Description: "Deal the roles at random and start the first night.",
		Params: []Param{
			{Name: "seed", Type: "integer", Description: "Optional seed to reproduce a deal."},
		},
	},
	{
		Name:        CmdSeerPeek,
		Description: "The seer looks at a living player's role during the seer's turn.",
		Params: []Param{
			{Name: "targetName", Type: "string", Description: "Name of the player to inspect.", Required: true},
		},
	},
	{
		Name:        CmdWolvesVote,
		Description: "The wolves pick a living victim during their turn.",
		Params: []Param{
			{Name: "targetName", Type: "string", Description: "Name of the player attacked.", Required: true},
		},
	},
	{
		Name:        CmdWitchAction,
		Description: "The witch may save the wolves' victim and/or poison another player, then the night ends.",
		Params: []Param{
			{Name: "heal", Type: "boolean", Description: "True to use the healing potion on the wolves' victim."},
			{Name: "poisonTarget", Type: "string", Description: "Name of the player to poison (optional)."},
		},
	},
	{
		Name:        CmdRunNightSequence,
		Description: "Announce who wakes up next tonight and what they may do. Use this instead of guessing the night order.",
	},
	{
		Name:        CmdAdvanceToDay,
		Description: "End the night without a witch action, apply pending deaths and start the day.",
	},
	{
		Name:        CmdStartNextNight,
		Description: "Start a new night after the day.",
	},
	{
		Name:        CmdGameStatus,
		Description: "Summarize the phase, living and dead players and the potions.",
	},
	{
		Name:        CmdHistory,
		Description: "List the most recent events of the session.",
		Params: []Param{
			{Name: "limit", Type: "integer", Description: "Maximum number of events to return (optional)."},
		},
	},
}

// Lookup returns the catalog entry for name
func Lookup(name string) (Spec, bool) {
	for _, s := range Catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// JSONSchema returns the argument schema as a JSON schema object
func (s Spec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := []string{}
	for _, p := range s.Params {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
