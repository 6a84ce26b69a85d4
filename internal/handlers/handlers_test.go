package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aaronzipp/werewolf-gm/internal/agent"
	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/render"
	"github.com/aaronzipp/werewolf-gm/internal/sse"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	hub := sse.NewHub(logger)
	d := dispatch.New(st, logger, dispatch.WithNotifier(hub), dispatch.WithRetry(3, time.Millisecond))
	return &Context{
		Store:      st,
		Dispatcher: d,
		Runtime:    agent.NewRuntime(d, nil, nil, st, logger),
		Hub:        hub,
		Logger:     logger,
		PublicURL:  "https://gm.example.test/",
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func command(t *testing.T, h http.Handler, code, name string, args dispatch.Args) (*httptest.ResponseRecorder, commandResponse) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions/"+code+"/commands", dispatch.Command{Name: name, Args: args})
	return rec, decode[commandResponse](t, rec)
}

// seat creates ABCDEF and seats five players
func seat(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", createRequest{Code: "abcdef"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{"Ana", "Bruno", "Chloe", "Dario", "Eve"} {
		if rec, _ := command(t, h, "ABCDEF", dispatch.CmdAddPlayer, dispatch.Args{Name: name}); rec.Code != http.StatusOK {
			t.Fatalf("add %s: status %d body %s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestContext(t).Routes()
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Fatalf("status field = %q", got)
	}
}

func TestCreateAndSnapshot(t *testing.T) {
	h := newTestContext(t).Routes()

	rec := do(t, h, http.MethodPost, "/api/sessions", createRequest{Code: "abcdef"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[commandResponse](t, rec)
	if created.Result.Code != "ABCDEF" || created.Snapshot == nil || created.Snapshot.Phase != "lobby" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/api/sessions/abcdef", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	view := decode[render.PublicSession](t, rec)
	if view.Code != "ABCDEF" || len(view.Players) != 0 {
		t.Fatalf("unexpected snapshot: %+v", view)
	}

	rec = do(t, h, http.MethodPost, "/api/sessions", createRequest{Code: "ABCDEF"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d", rec.Code)
	}
}

func TestCreateWithoutBodyGeneratesCode(t *testing.T) {
	h := newTestContext(t).Routes()
	rec := do(t, h, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[commandResponse](t, rec).Result.Code; len(got) != 6 {
		t.Fatalf("generated code = %q", got)
	}
}

func TestCommandsMapKindsToStatus(t *testing.T) {
	h := newTestContext(t).Routes()
	seat(t, h)

	seed := int64(42)
	rec, resp := command(t, h, "ABCDEF", dispatch.CmdAssignRoles, dispatch.Args{Seed: &seed})
	if rec.Code != http.StatusOK || resp.Snapshot.Phase != "night_seer" {
		t.Fatalf("assign: status %d resp %+v", rec.Code, resp)
	}
	for _, p := range resp.Snapshot.Players {
		if p.Role != render.HiddenRole {
			t.Fatalf("role of living %s leaked: %s", p.Name, p.Role)
		}
	}

	rec, resp = command(t, h, "ABCDEF", dispatch.CmdWolvesVote, dispatch.Args{TargetName: "Ana"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("out of phase vote status = %d", rec.Code)
	}
	if resp.Result.Kind != "phase_violation" || resp.Result.Hint == "" {
		t.Fatalf("unexpected rejection: %+v", resp.Result)
	}

	rec, resp = command(t, h, "ABCDEF", dispatch.CmdSeerPeek, dispatch.Args{TargetName: "Nobody"})
	if rec.Code != http.StatusNotFound || resp.Result.Kind != "player_not_found" {
		t.Fatalf("unknown target: status %d result %+v", rec.Code, resp.Result)
	}

	rec, resp = command(t, h, "ABCDEF", "dance", dispatch.Args{})
	if rec.Code != http.StatusBadRequest || resp.Result.Kind != "unknown_command" {
		t.Fatalf("unknown command: status %d result %+v", rec.Code, resp.Result)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestContext(t).Routes()
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid code", http.MethodGet, "/api/sessions/ab", nil, http.StatusBadRequest},
		{"missing session", http.MethodGet, "/api/sessions/ZZZZZZ", nil, http.StatusNotFound},
		{"missing history", http.MethodGet, "/api/sessions/ZZZZZZ/history", nil, http.StatusNotFound},
		{"command without name", http.MethodPost, "/api/sessions/ZZZZZZ/commands", map[string]string{}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/sessions", map[string]string{"room": "x"}, http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/sessions/ZZZZZZ", nil, http.StatusMethodNotAllowed},
		{"deep path", http.MethodGet, "/api/sessions/ZZZZZZ/a/b", nil, http.StatusNotFound},
		{"chat without message", http.MethodPost, "/api/chat", agent.Request{}, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, tt.method, tt.path, tt.body); rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHistory(t *testing.T) {
	h := newTestContext(t).Routes()
	seat(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/ABCDEF/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	all := decode[historyResponse](t, rec)
	if len(all.Events) != 6 || all.Events[0].Type != "game_created" {
		t.Fatalf("unexpected history: %+v", all.Events)
	}
	if !strings.HasPrefix(all.Events[1].Text, "player_added") {
		t.Fatalf("unexpected event text %q", all.Events[1].Text)
	}

	rec = do(t, h, http.MethodGet, "/api/sessions/ABCDEF/history?limit=2", nil)
	if got := decode[historyResponse](t, rec).Events; len(got) != 2 || got[1].Payload["name"] != "Eve" {
		t.Fatalf("limited history: %+v", got)
	}

	if rec := do(t, h, http.MethodGet, "/api/sessions/ABCDEF/history?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d", rec.Code)
	}
}

func TestChatRecordsTurns(t *testing.T) {
	h := newTestContext(t).Routes()
	seat(t, h)

	rec := do(t, h, http.MethodPost, "/api/chat", agent.Request{Code: "abcdef", Message: "Where are we?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[agent.Response](t, rec)
	if resp.Code != "ABCDEF" || !strings.Contains(resp.Reply, "Phase: lobby") {
		t.Fatalf("unexpected reply: %+v", resp)
	}
	if len(resp.ChatHistory) != 2 || resp.ChatHistory[0].Content != "Where are we?" {
		t.Fatalf("chat history = %+v", resp.ChatHistory)
	}
}

func TestQR(t *testing.T) {
	c := newTestContext(t)
	h := c.Routes()
	seat(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/abcdef/qr", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("body is not a PNG")
	}
	if got := c.joinLink("ABCDEF"); got != "https://gm.example.test/api/sessions/ABCDEF" {
		t.Fatalf("join link = %q", got)
	}
	if rec := do(t, h, http.MethodGet, "/sessions/ZZZZZZ/qr", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing session status = %d", rec.Code)
	}
}

func readEvent(t *testing.T, r *bufio.Reader) sse.Message {
	t.Helper()
	var msg sse.Message
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			msg.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			msg.Data = strings.TrimPrefix(line, "data: ")
		case line == "" && msg.Event != "":
			return msg
		}
	}
}

func TestSSEStreamsUpdates(t *testing.T) {
	c := newTestContext(t)
	srv := httptest.NewServer(c.Routes())
	defer srv.Close()
	seat(t, srv.Config.Handler)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/abcdef", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	stream := bufio.NewReader(resp.Body)

	first := readEvent(t, stream)
	if first.Event != sse.EventSessionUpdate || !strings.Contains(first.Data, `"phase":"lobby"`) {
		t.Fatalf("unexpected initial event: %+v", first)
	}

	seed := int64(7)
	if rec, _ := command(t, srv.Config.Handler, "ABCDEF", dispatch.CmdAssignRoles, dispatch.Args{Seed: &seed}); rec.Code != http.StatusOK {
		t.Fatalf("assign status = %d", rec.Code)
	}
	next := readEvent(t, stream)
	var view render.PublicSession
	if err := json.Unmarshal([]byte(next.Data), &view); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if view.Phase != "night_seer" {
		t.Fatalf("update phase = %s", view.Phase)
	}
}

func TestSSEMissingSession(t *testing.T) {
	h := newTestContext(t).Routes()
	if rec := do(t, h, http.MethodGet, "/sse/ZZZZZZ", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
