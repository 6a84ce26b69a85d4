package handlers

import (
	"net/http"
	"strings"

	"github.com/aaronzipp/werewolf-gm/internal/agent"
)

// HandleChat runs one conversational turn with the game master
func (ctx *Context) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req agent.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := ctx.Runtime.Handle(r.Context(), req)
	if err != nil {
		ctx.Logger.Error("chat turn", "code", req.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "the game master could not answer")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
