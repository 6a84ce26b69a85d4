package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/render"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

type createRequest struct {
	Code string `json:"code,omitempty"`
}

// commandResponse is the body returned for any dispatched command
type commandResponse struct {
	Result   dispatch.Result       `json:"result"`
	Snapshot *render.PublicSession `json:"snapshot,omitempty"`
}

type historyEntry struct {
	models.Event
	Text string `json:"text"`
}

type historyResponse struct {
	Code   string         `json:"code"`
	Events []historyEntry `json:"events"`
}

// HandleCreateSession creates a session, optionally with a requested code
func (ctx *Context) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ex := dispatch.NewExchange("")
	res, err := ctx.Dispatcher.Dispatch(r.Context(), ex, dispatch.Command{
		Name: dispatch.CmdCreateSession,
		Args: dispatch.Args{Code: req.Code},
	})
	if err != nil {
		ctx.Logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	status := statusFor(res.Kind)
	if res.OK() {
		status = http.StatusCreated
	}
	writeJSON(w, status, respond(res, ex))
}

// HandleSession routes /api/sessions/{code}[/history|/commands]
func (ctx *Context) HandleSession(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/api/sessions/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		ctx.HandleSnapshot(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		ctx.HandleHistory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "commands" && r.Method == http.MethodPost:
		ctx.HandleCommand(w, r, parts[0])
	case len(parts) == 1 || len(parts) == 2:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// HandleSnapshot returns the public view of a session
func (ctx *Context) HandleSnapshot(w http.ResponseWriter, r *http.Request, rawCode string) {
	s, ok := ctx.loadSession(w, r, rawCode)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, render.PublicView(s))
}

// HandleHistory returns a session's event log, optionally limited to the
// most recent ?limit= entries
func (ctx *Context) HandleHistory(w http.ResponseWriter, r *http.Request, rawCode string) {
	s, ok := ctx.loadSession(w, r, rawCode)
	if !ok {
		return
	}

	events := s.History
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		events = render.Recent(events, n)
	}

	resp := historyResponse{Code: s.Code, Events: make([]historyEntry, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, historyEntry{Event: e, Text: render.FormatEvent(e)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCommand dispatches one command against the session in the path
func (ctx *Context) HandleCommand(w http.ResponseWriter, r *http.Request, rawCode string) {
	code, err := game.NormalizeCode(rawCode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cmd dispatch.Command
	if err := decodeBody(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cmd.Name == "" {
		writeError(w, http.StatusBadRequest, "command name is required")
		return
	}

	ex := dispatch.NewExchange(code)
	res, err := ctx.Dispatcher.Dispatch(r.Context(), ex, cmd)
	if err != nil {
		ctx.Logger.Error("dispatch command", "code", code, "command", cmd.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "command failed")
		return
	}
	writeJSON(w, statusFor(res.Kind), respond(res, ex))
}

func (ctx *Context) loadSession(w http.ResponseWriter, r *http.Request, rawCode string) (*models.Session, bool) {
	code, err := game.NormalizeCode(rawCode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	s, err := ctx.Store.Get(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No session with code "+code+".")
		return nil, false
	}
	if err != nil {
		ctx.Logger.Error("load session", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return s, true
}

func respond(res dispatch.Result, ex *dispatch.Exchange) commandResponse {
	out := commandResponse{Result: res}
	if ex.Session != nil {
		view := render.PublicView(ex.Session)
		out.Snapshot = &view
	}
	return out
}
