package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/render"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

const (
	serverName = "werewolf-gm"

	// Transports accepted by Run
	TransportNone  = "none"
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	sessionURIPrefix = "werewolf://sessions/"
)

// ToolOutput is the structured result of every tool
type ToolOutput struct {
	Result   dispatch.Result       `json:"result"`
	Snapshot *render.PublicSession `json:"snapshot,omitempty"`
}

// binding is the session bound to one MCP connection
type binding struct {
	mu sync.Mutex
	ex *dispatch.Exchange
}

// Server exposes the dispatcher's commands as MCP tools
type Server struct {
	dispatcher *dispatch.Dispatcher
	store      store.Store
	logger     *slog.Logger
	mcp        *mcp.Server

	mu       sync.Mutex
	bindings map[*mcp.ServerSession]*binding
}

// New builds the MCP server and registers every command
func New(d *dispatch.Dispatcher, st store.Store, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: d,
		store:      st,
		logger:     logger,
		mcp:        mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil),
		bindings:   make(map[*mcp.ServerSession]*binding),
	}

	addCommand[CreateInput](s, dispatch.CmdCreateSession)
	addCommand[JoinInput](s, dispatch.CmdJoinSession)
	addCommand[NameInput](s, dispatch.CmdAddPlayer)
	addCommand[NameInput](s, dispatch.CmdRemovePlayer)
	addCommand[NoInput](s, dispatch.CmdListPlayers)
	addCommand[DealInput](s, dispatch.CmdAssignRoles)
	addCommand[TargetInput](s, dispatch.CmdSeerPeek)
	addCommand[TargetInput](s, dispatch.CmdWolvesVote)
	addCommand[WitchInput](s, dispatch.CmdWitchAction)
	addCommand[NoInput](s, dispatch.CmdStartNextNight)
	addCommand[NoInput](s, dispatch.CmdGameStatus)
	addCommand[NoInput](s, dispatch.CmdRunNightSequence)
	addCommand[NoInput](s, dispatch.CmdAdvanceToDay)
	addCommand[HistoryInput](s, dispatch.CmdHistory)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "session",
		Title:       "Werewolf session",
		Description: "Public snapshot of a session. URI format: werewolf://sessions/{code}",
		MIMEType:    "application/json",
		URITemplate: sessionURIPrefix + "{code}",
	}, s.readSession)

	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves MCP on the given transport until ctx ends
func (s *Server) Run(ctx context.Context, transport, addr string) error {
	switch transport {
	case "", TransportNone:
		return nil
	case TransportStdio:
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case TransportHTTP:
		return s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("transport %q is not supported", transport)
	}
}

// Handler returns a streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve mcp http: %w", err)
	}
}

func addCommand[In commandInput](s *Server, name string) {
	spec, ok := dispatch.Lookup(name)
	if !ok {
		panic("mcpserver: no catalog entry for " + name)
	}
	mcp.AddTool(s.mcp, &mcp.Tool{Name: spec.Name, Description: spec.Description},
		func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, ToolOutput, error) {
			return s.call(ctx, req, dispatch.Command{Name: name, Args: in.args()})
		})
}

func (s *Server) call(ctx context.Context, req *mcp.CallToolRequest, cmd dispatch.Command) (*mcp.CallToolResult, ToolOutput, error) {
	b := s.bindingFor(req)
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := s.dispatcher.Dispatch(ctx, b.ex, cmd)
	if err != nil {
		return nil, ToolOutput{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}

	out := ToolOutput{Result: res}
	if b.ex.Session != nil {
		view := render.PublicView(b.ex.Session)
		out.Snapshot = &view
	}
	return &mcp.CallToolResult{
		IsError: !res.OK(),
		Content: []mcp.Content{&mcp.TextContent{Text: res.Text()}},
	}, out, nil
}

// bindingFor returns the exchange of the connection that sent req. A binding
// lives as long as its MCP session.
func (s *Server) bindingFor(req *mcp.CallToolRequest) *binding {
	var ss *mcp.ServerSession
	if req != nil {
		ss = req.Session
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[ss]
	if !ok {
		b = &binding{ex: dispatch.NewExchange("")}
		s.bindings[ss] = b
		if ss != nil {
			go s.release(ss)
		}
	}
	return b
}

// release forgets the binding of ss once its connection has ended
func (s *Server) release(ss *mcp.ServerSession) {
	err := ss.Wait()
	s.mu.Lock()
	delete(s.bindings, ss)
	remaining := len(s.bindings)
	s.mu.Unlock()
	s.logger.Debug("mcp session closed", "session", ss.ID(), "bindings", remaining, "error", err)
}

func (s *Server) bindingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

func (s *Server) readSession(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req == nil || req.Params == nil || req.Params.URI == "" {
		return nil, fmt.Errorf("session URI is required; use %s{code}", sessionURIPrefix)
	}
	uri := req.Params.URI

	code, err := game.NormalizeCode(strings.TrimPrefix(uri, sessionURIPrefix))
	if err != nil || !strings.HasPrefix(uri, sessionURIPrefix) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	sess, err := s.store.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}

	data, err := json.MarshalIndent(render.PublicView(sess), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", code, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
