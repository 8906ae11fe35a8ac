// internal/engine/events.go
package engine

import (
	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// MatchEventType is an enum-like type for broadcasting engine events.
type MatchEventType string

const (
	EventMatchTurn        MatchEventType = "match_turn"         // whose turn it is now
	EventStageTransition  MatchEventType = "stage_transition"   // match moved to a new stage
	EventCardPlayed       MatchEventType = "card_played"        // a card landed on a stack (hand or deck origin)
	EventDeckRevealed     MatchEventType = "deck_revealed"      // stage 1 deck card turned face up
	EventCardTaken        MatchEventType = "card_taken"         // deck card taken not by rule, or table bottom card taken
	EventCircleClosed     MatchEventType = "circle_closed"      // table stack flushed to discard
	EventStubActivated    MatchEventType = "stub_activated"     // a seat's stub cards opened into its hand
	EventOneCardDeclared  MatchEventType = "one_card_declared"  // seat announced its last card
	EventCardCountAnswer  MatchEventType = "card_count_answer"  // reply to a "how many cards" query
	EventPenaltyStarted   MatchEventType = "penalty_started"    // match paused, contributions required
	EventPenaltyCard      MatchEventType = "penalty_card"       // one contribution landed
	EventPenaltyEnded     MatchEventType = "penalty_ended"      // all contributions collected, match resumed
	EventSeatWon          MatchEventType = "seat_won"           // seat exhausted hand and stub
	EventMatchEnd         MatchEventType = "match_end"          // final places and rewards
	EventMoveRejected     MatchEventType = "move_rejected"      // private: command refused with a reason
	EventPrivateSyncState MatchEventType = "private_sync_state" // private: full per-seat view on (re)connect
)

// EventSeat identifies a seat inside an event payload.
type EventSeat struct {
	ID uuid.UUID `json:"id"`
}

// EventCard carries card details inside an event payload. Closed cards are
// reported by id only.
type EventCard struct {
	ID   uuid.UUID `json:"id"`
	Rank int       `json:"rank,omitempty"`
	Suit deck.Suit `json:"suit,omitempty"`
}

// MatchEvent holds data about one engine event in a broadcast-friendly shape.
type MatchEvent struct {
	Type   MatchEventType `json:"type"`
	Seat   *EventSeat     `json:"seat,omitempty"`   // acting seat
	Target *EventSeat     `json:"target,omitempty"` // target seat, where one exists
	Card   *EventCard     `json:"card,omitempty"`
	Reason string         `json:"reason,omitempty"` // rejection reason codes

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *MatchView `json:"state,omitempty"` // only on private_sync_state
}

func eventCard(c *deck.Card) *EventCard {
	if c == nil {
		return nil
	}
	if !c.Open {
		return &EventCard{ID: c.ID}
	}
	return &EventCard{ID: c.ID, Rank: c.Rank, Suit: c.Suit}
}

func eventSeat(id uuid.UUID) *EventSeat {
	return &EventSeat{ID: id}
}

// ActionRecord is the durable form of one accepted command, pushed by the
// host onto the history queue for the external historian/accounting worker.
type ActionRecord struct {
	MatchID     uuid.UUID              `json:"match_id"`
	ActionIndex int                    `json:"action_index"`
	SeatID      uuid.UUID              `json:"seat_id"`
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}
