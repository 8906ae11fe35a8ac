// internal/engine/seat.go
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// Per-seat stage markers. Stage 2 and 3 share one rule set; stage 3 only
// records that the seat has activated its stub.
const (
	StageOne      = 1
	StageTwo      = 2
	StageThree    = 3
	StageFinished = 4
)

// SeatInfo is the opaque identity supplied by the host at match creation.
type SeatInfo struct {
	ID    uuid.UUID
	Name  string
	IsBot bool
}

// Seat is one chair at the table. Hand order matters: the last card is the
// exposed top card. Stub holds the two face-down cards dealt at the start,
// emptied exactly once on activation or never.
type Seat struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsBot     bool      `json:"isBot"`
	Connected bool      `json:"connected"`

	Hand deck.Pile `json:"hand"`
	Stub deck.Pile `json:"stub"`

	Stage      int        `json:"stage"`
	IsWinner   bool       `json:"isWinner"`
	FinishTime *time.Time `json:"finishTime,omitempty"`
}

// Active reports whether the seat still participates in the turn rotation.
func (s *Seat) Active() bool {
	return !s.IsWinner && (len(s.Hand) > 0 || len(s.Stub) > 0)
}

// TopCard returns the exposed top card of the seat's hand, or nil.
func (s *Seat) TopCard() *deck.Card {
	return s.Hand.Top()
}
