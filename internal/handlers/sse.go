package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aaronzipp/werewolf-gm/internal/render"
	"github.com/aaronzipp/werewolf-gm/internal/sse"
)

// HandleSSE streams session-update events for one session
func (ctx *Context) HandleSSE(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/sse/")
	if len(parts) != 1 {
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}

	s, ok := ctx.loadSession(w, r, parts[0])
	if !ok {
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := ctx.Hub.Subscribe(s.Code)
	defer cancel()

	ctx.Logger.Debug("sse subscribed", "code", s.Code)

	data, err := json.Marshal(render.PublicView(s))
	if err != nil {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sse.EventErrorMessage, "could not encode session")
		flusher.Flush()
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sse.EventSessionUpdate, data)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			ctx.Logger.Debug("sse disconnected", "code", s.Code)
			return
		case msg, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}
