// internal/sync/message.go
//
// Wire format for the moves peers exchange. Every message carries the acting
// seat and a per-seat sequence number; the engine state machine is
// deterministic, so applying the same ordered move stream on every peer
// yields the same match.
package sync

import (
	"fmt"

	"github.com/google/uuid"
)

// MoveType tags one kind of move message. The set is closed: an unknown tag
// is a protocol error, not a silent skip.
type MoveType string

const (
	// MoveCardPlayed plays a hand card: a stage-1 chain placement or a
	// stage-2/3 table play. The engine derives the kind from its own state.
	MoveCardPlayed MoveType = "card_played"
	// MoveDeckRevealed turns the stage-1 deck's top card face up.
	MoveDeckRevealed MoveType = "deck_revealed"
	// MoveDeckPlaced resolves a revealed deck card onto TargetSeat. When
	// TargetSeat equals Seat this is the by-rule self placement.
	MoveDeckPlaced MoveType = "deck_placed"
	// MoveCardTaken takes a card into the hand. Origin says which pile it
	// comes from: a revealed deck card that fits nowhere, or the table
	// stack's bottom card.
	MoveCardTaken MoveType = "card_taken"
	// MoveOneCardDeclared announces a one-card hand.
	MoveOneCardDeclared MoveType = "one_card_declared"
	// MoveHowManyAsked queries TargetSeat's hand size, possibly starting a
	// penalty episode on every peer.
	MoveHowManyAsked MoveType = "how_many_asked"
	// MovePenaltyCardContributed donates CardID to penalty target TargetSeat.
	MovePenaltyCardContributed MoveType = "penalty_card_contributed"
)

// Origins for MoveCardTaken.
const (
	OriginDeck  = "deck"
	OriginTable = "table"
)

// MoveMessage is one peer-originated move. Seq is strictly increasing per
// seat within a match; retransmits reuse the original Seq so receivers can
// drop duplicates.
type MoveMessage struct {
	MatchID uuid.UUID `json:"matchId"`
	SeatID  uuid.UUID `json:"seatId"`
	Seq     uint64    `json:"seq"`

	Type       MoveType  `json:"type"`
	CardID     uuid.UUID `json:"cardId,omitempty"`
	TargetSeat uuid.UUID `json:"targetSeat,omitempty"`
	Origin     string    `json:"origin,omitempty"` // card_taken only
}

// Validate checks the shape of the message against its tag. Engine-level
// legality is checked later, on apply.
func (m *MoveMessage) Validate() error {
	if m.MatchID == uuid.Nil || m.SeatID == uuid.Nil {
		return fmt.Errorf("move %q: missing match or seat id", m.Type)
	}
	if m.Seq == 0 {
		return fmt.Errorf("move %q: sequence numbers start at 1", m.Type)
	}
	switch m.Type {
	case MoveCardPlayed:
		if m.CardID == uuid.Nil {
			return fmt.Errorf("move %q: missing card id", m.Type)
		}
	case MoveDeckPlaced:
		if m.TargetSeat == uuid.Nil {
			return fmt.Errorf("move %q: missing target seat", m.Type)
		}
	case MovePenaltyCardContributed:
		if m.CardID == uuid.Nil || m.TargetSeat == uuid.Nil {
			return fmt.Errorf("move %q: missing card or target seat", m.Type)
		}
	case MoveHowManyAsked:
		if m.TargetSeat == uuid.Nil {
			return fmt.Errorf("move %q: missing target seat", m.Type)
		}
	case MoveCardTaken:
		if m.Origin != OriginDeck && m.Origin != OriginTable {
			return fmt.Errorf("move %q: origin must be %q or %q", m.Type, OriginDeck, OriginTable)
		}
	case MoveDeckRevealed, MoveOneCardDeclared:
		// No extra fields.
	default:
		return fmt.Errorf("unknown move type %q", m.Type)
	}
	return nil
}
