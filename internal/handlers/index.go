package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/agent"
	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/sse"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

// Context holds shared application dependencies
type Context struct {
	Store      store.Store
	Dispatcher *dispatch.Dispatcher
	Runtime    *agent.Runtime
	Hub        *sse.Hub
	Logger     *slog.Logger

	// PublicURL prefixes join links encoded in QR codes; empty encodes the bare code
	PublicURL string
}

// Routes returns the HTTP handler for the whole API
func (ctx *Context) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ctx.HandleIndex)
	mux.HandleFunc("/healthz", ctx.HandleHealth)
	mux.HandleFunc("/api/chat", ctx.HandleChat)
	mux.HandleFunc("/api/sessions", ctx.HandleCreateSession)
	mux.HandleFunc("/api/sessions/", ctx.HandleSession)
	mux.HandleFunc("/sse/", ctx.HandleSSE)
	mux.HandleFunc("/sessions/", ctx.HandleQR)
	return ctx.logRequests(mux)
}

// HandleIndex describes the API
func (ctx *Context) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "werewolf-gm",
		"routes": []string{
			"POST /api/chat",
			"POST /api/sessions",
			"GET /api/sessions/{code}",
			"GET /api/sessions/{code}/history",
			"POST /api/sessions/{code}/commands",
			"GET /sse/{code}",
			"GET /sessions/{code}/qr",
		},
	})
}

// HandleHealth reports liveness
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctx *Context) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		ctx.Logger.Info("request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Int("status", rw.status), slog.Duration("duration", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// Flush lets SSE streams through the wrapped writer
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
