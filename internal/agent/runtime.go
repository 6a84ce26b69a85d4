package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/narration"
	"github.com/aaronzipp/werewolf-gm/internal/render"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

// Request is one moderator message
type Request struct {
	Code    string               `json:"code,omitempty"`
	Message string               `json:"message"`
	History []models.ChatMessage `json:"history,omitempty"`
}

// Response is the game master's answer to a Request
type Response struct {
	Reply       string                `json:"reply"`
	Code        string                `json:"code,omitempty"`
	Executed    []dispatch.Result     `json:"executed"`
	Errors      []string              `json:"errors"`
	Snapshot    *render.PublicSession `json:"snapshot,omitempty"`
	ChatHistory []models.ChatMessage  `json:"chatHistory"`
}

// Runtime ties interpretation, dispatch and narration together for one
// conversational turn
type Runtime struct {
	dispatcher  *dispatch.Dispatcher
	interpreter Interpreter
	narrator    narration.Narrator
	store       store.Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewRuntime creates a runtime. A nil interpreter turns every message into a
// status narration.
func NewRuntime(d *dispatch.Dispatcher, in Interpreter, n narration.Narrator, st store.Store, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = narration.Template{}
	}
	return &Runtime{
		dispatcher:  d,
		interpreter: in,
		narrator:    n,
		store:       st,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle runs one turn: bind the session, interpret, dispatch, narrate and
// record the exchange in the session's chat history
func (r *Runtime) Handle(ctx context.Context, req Request) (Response, error) {
	ex := dispatch.NewExchange("")
	if strings.TrimSpace(req.Code) != "" {
		if _, err := r.dispatcher.Dispatch(ctx, ex, dispatch.Command{Name: dispatch.CmdJoinSession, Args: dispatch.Args{Code: req.Code}}); err != nil {
			return Response{}, err
		}
	}

	history := req.History
	if ex.Session != nil {
		history = ex.Session.ChatHistory
	}

	reply, err := r.reply(ctx, ex, history, req.Message)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		Reply:    reply,
		Code:     ex.Code,
		Executed: ex.Executed,
		Errors:   ex.Errors,
	}
	if resp.Executed == nil {
		resp.Executed = []dispatch.Result{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	now := r.now().UTC()
	turns := []models.ChatMessage{
		{Timestamp: now, Role: models.ChatUser, Content: req.Message},
		{Timestamp: now, Role: models.ChatAssistant, Content: reply},
	}
	if ex.Code == "" {
		resp.ChatHistory = append(append([]models.ChatMessage{}, req.History...), turns...)
		return resp, nil
	}

	if err := r.store.AppendChat(ctx, ex.Code, turns...); err != nil {
		return Response{}, fmt.Errorf("record chat for %s: %w", ex.Code, err)
	}
	s, err := r.store.Get(ctx, ex.Code)
	if err != nil {
		return Response{}, fmt.Errorf("reload session %s: %w", ex.Code, err)
	}
	view := render.PublicView(s)
	resp.Snapshot = &view
	resp.ChatHistory = s.ChatHistory
	return resp, nil
}

func (r *Runtime) reply(ctx context.Context, ex *dispatch.Exchange, history []models.ChatMessage, utterance string) (string, error) {
	if r.interpreter == nil {
		return r.narrate(ctx, ex), nil
	}

	cmd, text, err := r.interpreter.Interpret(ctx, history, utterance, ex.Code)
	if err != nil {
		r.logger.Warn("interpreter unavailable", "code", ex.Code, "error", err)
		ex.Errors = append(ex.Errors, "The game master could not understand the request right now.")
		return r.narrate(ctx, ex), nil
	}
	if cmd == nil {
		if text != "" {
			return text, nil
		}
		return r.narrate(ctx, ex), nil
	}

	res, err := r.dispatcher.Dispatch(ctx, ex, *cmd)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return res.Text(), nil
	}
	if !res.Mutated {
		return res.Message, nil
	}
	return res.Message + "\n\n" + r.narrate(ctx, ex), nil
}

func (r *Runtime) narrate(ctx context.Context, ex *dispatch.Exchange) string {
	return r.narrator.Narrate(ctx, narration.SnapshotOf(ex.Session))
}
