// internal/engine/errors.go
package engine

import "errors"

// Rejection sentinels. Every rejected command returns one of these (possibly
// wrapped with detail) and leaves the match state untouched. They describe
// player errors; ErrInvariant is the exception and marks an engine bug.
var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrUnknownSeat  = errors.New("unknown seat")
	ErrUnknownCard  = errors.New("card not found")
	ErrIllegalMove  = errors.New("illegal move")
	ErrWrongPhase   = errors.New("action not valid in this phase")
	ErrMatchPaused  = errors.New("match paused for penalty collection")
	ErrNoPenalty    = errors.New("no penalty in progress")
	ErrMatchOver    = errors.New("match is over")
	ErrDeclareState = errors.New("declare requires exactly one card in hand")

	// ErrInvariant indicates corrupted engine state (card conservation broken,
	// trump undeterminable, and similar). The match freezes: every further
	// command is rejected with this error rather than mutating bad state.
	ErrInvariant = errors.New("invariant violation")
)
