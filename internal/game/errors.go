package game

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Domain failures are recoverable: they reject
// one command and leave the session untouched.
type Kind string

const (
	KindPhaseViolation      Kind = "phase_violation"
	KindPlayerNotFound      Kind = "player_not_found"
	KindSessionNotFound     Kind = "session_not_found"
	KindDuplicateCode       Kind = "duplicate_code"
	KindDuplicateName       Kind = "duplicate_name"
	KindNotAlive            Kind = "not_alive"
	KindInsufficientPlayers Kind = "insufficient_players"
	KindPotionAlreadyUsed   Kind = "potion_already_used"
	KindNoPendingVictim     Kind = "no_pending_victim"
	KindDuplicateTarget     Kind = "duplicate_target"
	KindNoActiveSession     Kind = "no_active_session"
	KindInvalidCode         Kind = "invalid_code"
	KindInvalidName         Kind = "invalid_name"
	KindUnknownCommand      Kind = "unknown_command"
)

// Error is a typed domain failure carrying user-facing text
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrPhaseViolation      = &Error{Kind: KindPhaseViolation}
	ErrPlayerNotFound      = &Error{Kind: KindPlayerNotFound}
	ErrSessionNotFound     = &Error{Kind: KindSessionNotFound}
	ErrDuplicateCode       = &Error{Kind: KindDuplicateCode}
	ErrDuplicateName       = &Error{Kind: KindDuplicateName}
	ErrNotAlive            = &Error{Kind: KindNotAlive}
	ErrInsufficientPlayers = &Error{Kind: KindInsufficientPlayers}
	ErrPotionAlreadyUsed   = &Error{Kind: KindPotionAlreadyUsed}
	ErrNoPendingVictim     = &Error{Kind: KindNoPendingVictim}
	ErrDuplicateTarget     = &Error{Kind: KindDuplicateTarget}
	ErrNoActiveSession     = &Error{Kind: KindNoActiveSession}
	ErrInvalidCode         = &Error{Kind: KindInvalidCode}
	ErrInvalidName         = &Error{Kind: KindInvalidName}
	ErrUnknownCommand      = &Error{Kind: KindUnknownCommand}
)

// Errorf builds a domain error of the given kind with a formatted message
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsDomainError reports whether err is a recoverable domain failure rather than
// an infrastructure fault.
func IsDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// KindOf returns the kind of a domain error, or "" for anything else
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
