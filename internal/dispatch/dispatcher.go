package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/werewolf-gm/internal/game"
	"github.com/aaronzipp/werewolf-gm/internal/models"
	"github.com/aaronzipp/werewolf-gm/internal/store"
)

const tracerName = "github.com/aaronzipp/werewolf-gm/internal/dispatch"

// Notifier is told about every session state that was successfully persisted
type Notifier interface {
	SessionChanged(ctx context.Context, s *models.Session)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, s *models.Session)

func (f NotifierFunc) SessionChanged(ctx context.Context, s *models.Session) { f(ctx, s) }

// Dispatcher validates commands, runs them against the state machine and
// persists the outcome. Commands on the same code never interleave.
type Dispatcher struct {
	store    store.Store
	logger   *slog.Logger
	notifier Notifier
	locks    *keyedMutex
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string

	maxTries     uint
	retryInitial time.Duration
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithNotifier registers a listener for persisted changes
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithClock overrides the time source used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDGenerator overrides how player ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

// WithRetry bounds how often a command is replayed after a version conflict
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(d *Dispatcher) {
		d.maxTries = maxTries
		d.retryInitial = initial
	}
}

// New creates a dispatcher over st
func New(st store.Store, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		store:        st,
		logger:       logger,
		locks:        newKeyedMutex(),
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		newID:        newPlayerID,
		maxTries:     3,
		retryInitial: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func newPlayerID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Dispatch runs cmd within ex. Domain failures are reported in the Result and
// leave the stored session untouched; the returned error is reserved for
// storage and other infrastructure faults.
func (d *Dispatcher) Dispatch(ctx context.Context, ex *Exchange, cmd Command) (Result, error) {
	started := time.Now()
	ctx, span := d.tracer.Start(ctx, "dispatch."+cmd.Name, trace.WithAttributes(
		attribute.String("werewolf.command", cmd.Name),
		attribute.String("werewolf.code", ex.Code),
	))
	defer span.End()

	res, err := d.dispatch(ctx, ex, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("command failed", "command", cmd.Name, "code", ex.Code, "error", err, "duration", time.Since(started))
		return res, err
	}

	ex.Executed = append(ex.Executed, res)
	if !res.OK() {
		ex.Errors = append(ex.Errors, res.Text())
		span.SetAttributes(attribute.String("werewolf.rejected", string(res.Kind)))
		d.logger.Info("command rejected", "command", cmd.Name, "code", ex.Code, "kind", res.Kind, "error", res.Error, "duration", time.Since(started))
		return res, nil
	}
	span.SetAttributes(attribute.String("werewolf.phase", string(res.Phase)))
	d.logger.Info("command executed", "command", cmd.Name, "code", ex.Code, "phase", res.Phase, "mutated", res.Mutated, "duration", time.Since(started))
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, ex *Exchange, cmd Command) (Result, error) {
	switch cmd.Name {
	case CmdCreateSession:
		return d.createSession(ctx, ex, cmd.Args)
	case CmdJoinSession:
		return d.joinSession(ctx, ex, cmd.Args)
	}

	spec, ok := commands[cmd.Name]
	if !ok {
		return reject(cmd.Name, ex.Session, game.Errorf(game.KindUnknownCommand, "Unknown command %q.", cmd.Name)), nil
	}
	if ex.Code == "" {
		return reject(cmd.Name, nil, game.Errorf(game.KindNoActiveSession, "No active session. Create or join one first.")), nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryInitial

	unlock := d.locks.Lock(ex.Code)
	res, err := backoff.Retry(ctx, func() (Result, error) {
		return d.apply(ctx, ex, cmd, spec)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.maxTries))
	unlock()

	// listeners run outside the lock; the hub drops out-of-order versions
	if err == nil && res.Mutated && ex.Session != nil {
		d.notify(ctx, ex.Session)
	}
	return res, err
}

// apply loads the bound session, runs one command on a private copy and saves
// it. A version conflict is returned as a retryable error; everything else
// that is not a domain failure stops the retry loop.
func (d *Dispatcher) apply(ctx context.Context, ex *Exchange, cmd Command, spec commandSpec) (Result, error) {
	s, err := d.store.Get(ctx, ex.Code)
	if errors.Is(err, store.ErrNotFound) {
		return reject(cmd.Name, nil, game.Errorf(game.KindSessionNotFound, "Session %s no longer exists.", ex.Code)), nil
	}
	if err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("load session %s: %w", ex.Code, err))
	}
	loaded := s.Clone()

	c := &call{d: d, s: s, args: cmd.Args}
	if spec.night {
		c.normalizeNight()
	}
	msg, err := spec.run(ctx, c)
	if err != nil {
		if game.IsDomainError(err) {
			ex.Session = loaded
			return reject(cmd.Name, loaded, err), nil
		}
		return Result{}, backoff.Permanent(err)
	}

	res := Result{Command: cmd.Name, Message: msg, Code: s.Code, Role: c.role}
	if c.mutated {
		if ended := c.finalize(); ended != "" {
			res.Message = strings.TrimSpace(res.Message + " " + ended)
		}
		if err := d.store.Save(ctx, s); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				d.logger.Warn("session changed concurrently, replaying command", "command", cmd.Name, "code", s.Code)
				return Result{}, err
			}
			return Result{}, backoff.Permanent(fmt.Errorf("save session %s: %w", s.Code, err))
		}
		fresh, err := d.store.Get(ctx, s.Code)
		if err != nil {
			return Result{}, backoff.Permanent(fmt.Errorf("reload session %s: %w", s.Code, err))
		}
		s = fresh
		res.Mutated = true
	}
	ex.Session = s
	res.Phase = s.Phase
	return res, nil
}

func (d *Dispatcher) createSession(ctx context.Context, ex *Exchange, args Args) (Result, error) {
	var (
		code string
		err  error
	)
	if strings.TrimSpace(args.Code) != "" {
		code, err = game.NormalizeCode(args.Code)
		if err != nil {
			return reject(CmdCreateSession, ex.Session, err), nil
		}
	} else {
		code, err = game.UniqueCode(ctx, d.store.Exists)
		if err != nil {
			return Result{}, fmt.Errorf("generate session code: %w", err)
		}
	}

	s, err := d.insert(ctx, code)
	if errors.Is(err, store.ErrDuplicateCode) {
		return reject(CmdCreateSession, ex.Session, game.Errorf(game.KindDuplicateCode, "Session %s already exists.", code)), nil
	}
	if err != nil {
		return Result{}, err
	}

	ex.Code = code
	ex.Session = s
	d.notify(ctx, s)
	return Result{
		Command: CmdCreateSession,
		Message: fmt.Sprintf("Session %s created. Seat at least %d players, then deal the roles.", code, game.MinPlayers),
		Code:    code,
		Phase:   s.Phase,
		Mutated: true,
	}, nil
}

// insert stores a new session whose history already opens with game_created,
// so the session and its first event are written together
func (d *Dispatcher) insert(ctx context.Context, code string) (*models.Session, error) {
	now := d.now().UTC()
	s := models.NewSession(code, now)
	s.History = append(s.History, models.Event{Timestamp: now, Type: models.EventGameCreated, Payload: map[string]string{"code": code}})
	if err := d.store.Create(ctx, s); err != nil {
		if errors.Is(err, store.ErrDuplicateCode) {
			return nil, err
		}
		return nil, fmt.Errorf("create session %s: %w", code, err)
	}
	created, err := d.store.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}
	return created, nil
}

func (d *Dispatcher) joinSession(ctx context.Context, ex *Exchange, args Args) (Result, error) {
	code, err := game.NormalizeCode(args.Code)
	if err != nil {
		return reject(CmdJoinSession, ex.Session, err), nil
	}
	s, err := d.store.Get(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return reject(CmdJoinSession, ex.Session, game.Errorf(game.KindSessionNotFound, "No session with code %s.", code)), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load session %s: %w", code, err)
	}

	ex.Code = code
	ex.Session = s
	return Result{
		Command: CmdJoinSession,
		Message: fmt.Sprintf("Joined session %s (phase: %s, %d players).", code, s.Phase, len(s.Players)),
		Code:    code,
		Phase:   s.Phase,
	}, nil
}

func (d *Dispatcher) notify(ctx context.Context, s *models.Session) {
	if d.notifier == nil {
		return
	}
	d.notifier.SessionChanged(ctx, s.Clone())
}

func reject(command string, s *models.Session, err error) Result {
	res := Result{Command: command, Error: err.Error(), Kind: game.KindOf(err)}
	if s != nil {
		res.Code = s.Code
		res.Phase = s.Phase
		if errors.Is(err, game.ErrPhaseViolation) {
			res.Hint = "Expected: " + game.ExpectedCommand(s.Phase) + "."
		}
	}
	return res
}
