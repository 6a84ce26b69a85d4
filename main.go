package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/aaronzipp/werewolf-gm/internal/agent"
	"github.com/aaronzipp/werewolf-gm/internal/config"
	"github.com/aaronzipp/werewolf-gm/internal/dispatch"
	"github.com/aaronzipp/werewolf-gm/internal/handlers"
	"github.com/aaronzipp/werewolf-gm/internal/mcpserver"
	"github.com/aaronzipp/werewolf-gm/internal/narration"
	"github.com/aaronzipp/werewolf-gm/internal/sse"
	"github.com/aaronzipp/werewolf-gm/internal/store"
	"github.com/aaronzipp/werewolf-gm/internal/telemetry"
)

const serviceName = "werewolf-gm"

var version = "dev"

func main() {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "session store (memory or sqlite)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.MCPTransport, "mcp", cfg.MCPTransport, "MCP transport (none, stdio or http)")
	flag.StringVar(&cfg.MCPAddr, "mcp-addr", cfg.MCPAddr, "MCP HTTP listen address")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	// stdout carries the protocol when MCP runs on stdio
	var out io.Writer = os.Stdout
	if cfg.MCPTransport == mcpserver.TransportStdio {
		out = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{AddSource: true, Level: level}))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	hub := sse.NewHub(logger)
	d := dispatch.New(st, logger, dispatch.WithNotifier(hub))

	var interpreter agent.Interpreter
	if cfg.LLM().Enabled() {
		interpreter = agent.NewOpenAIInterpreter(cfg.LLM(), logger)
	} else {
		logger.Info("no OpenAI key configured, chat replies narrate the table state only")
	}
	runtime := agent.NewRuntime(d, interpreter, narration.New(cfg.LLM(), logger), st, logger)

	app := &handlers.Context{
		Store:      st,
		Dispatcher: d,
		Runtime:    runtime,
		Hub:        hub,
		Logger:     logger,
		PublicURL:  cfg.PublicURL,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	mcpSrv := mcpserver.New(d, st, logger, version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return mcpSrv.Run(gctx, cfg.MCPTransport, cfg.MCPAddr)
	})
	return g.Wait()
}

func openStore(cfg config.Config) (store.Store, func() error, error) {
	if cfg.Store != config.StoreSQLite {
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
	st, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return st, st.Close, nil
}
