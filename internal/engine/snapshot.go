// internal/engine/snapshot.go
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// Snapshot is the full-fidelity serialized form of a match, used for
// resume-after-reload. Pause and modal visibility are not state here: the
// pause is derived from the pending penalty, and anything visual belongs to
// the calling layer, so a restored match can never re-enter a stale paused
// visual state.
type Snapshot struct {
	MatchID          uuid.UUID       `json:"matchId"`
	Stage            int             `json:"stage"`
	ActiveSeatIndex  int             `json:"activeSeatIndex"`
	TurnCounter      int             `json:"turnCounter"`
	Seats            []SeatSnapshot  `json:"seats"`
	Deck             []*deck.Card    `json:"deck"`
	Discard          []*deck.Card    `json:"discard"`
	TableStack       []*deck.Card    `json:"tableStack"`
	RevealedDeckCard *deck.Card      `json:"revealedDeckCard,omitempty"`
	RevealHistory    []*deck.Card    `json:"revealHistory"`
	DeckActionOpen   bool            `json:"deckActionOpen"`
	TrumpSuit        deck.Suit       `json:"trumpSuit,omitempty"`
	RoundInitiatorID uuid.UUID       `json:"roundInitiatorId"`
	RoundFinisherID  uuid.UUID       `json:"roundFinisherId"`
	FinisherPassed   bool            `json:"finisherHasPassed"`
	OneCardDeclared  map[string]bool `json:"oneCardDeclared"`
	Pending          *PendingPenalty `json:"pendingPenalty,omitempty"`
	EliminationOrder []uuid.UUID     `json:"eliminationOrder"`
}

// SeatSnapshot serializes one seat with full card detail.
type SeatSnapshot struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	IsBot      bool         `json:"isBot"`
	Stage      int          `json:"stage"`
	IsWinner   bool         `json:"isWinner"`
	FinishTime *time.Time   `json:"finishTime,omitempty"`
	Hand       []*deck.Card `json:"hand"`
	Stub       []*deck.Card `json:"stub"`
}

// Snapshot captures the current state. The caller owns serialization of the
// returned value; MarshalSnapshot is a convenience for the common JSON case.
func (s *MatchSession) Snapshot() Snapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	snap := Snapshot{
		MatchID:          s.ID,
		Stage:            s.Stage,
		ActiveSeatIndex:  s.ActiveSeatIndex,
		TurnCounter:      s.TurnCounter,
		Deck:             append([]*deck.Card(nil), s.Deck...),
		Discard:          append([]*deck.Card(nil), s.Discard...),
		TableStack:       append([]*deck.Card(nil), s.TableStack...),
		RevealedDeckCard: s.RevealedDeckCard,
		RevealHistory:    append([]*deck.Card(nil), s.revealHistory...),
		DeckActionOpen:   s.turnState == turnDeckRevealed,
		TrumpSuit:        s.TrumpSuit,
		RoundInitiatorID: s.RoundInitiatorID,
		RoundFinisherID:  s.RoundFinisherID,
		FinisherPassed:   s.FinisherHasPassed,
		OneCardDeclared:  make(map[string]bool, len(s.OneCardDeclared)),
		Pending:          s.Pending,
		EliminationOrder: append([]uuid.UUID(nil), s.EliminationOrder...),
	}
	for id, declared := range s.OneCardDeclared {
		snap.OneCardDeclared[id.String()] = declared
	}
	for _, seat := range s.Seats {
		snap.Seats = append(snap.Seats, SeatSnapshot{
			ID:         seat.ID,
			Name:       seat.Name,
			IsBot:      seat.IsBot,
			Stage:      seat.Stage,
			IsWinner:   seat.IsWinner,
			FinishTime: seat.FinishTime,
			Hand:       append([]*deck.Card(nil), seat.Hand...),
			Stub:       append([]*deck.Card(nil), seat.Stub...),
		})
	}
	return snap
}

// MarshalSnapshot returns the snapshot as JSON.
func (s *MatchSession) MarshalSnapshot() ([]byte, error) {
	snap := s.Snapshot()
	return json.Marshal(snap)
}

// RestoreSession rebuilds a session from a snapshot. A finished match is not
// resumable: the caller should treat it as "no active match".
func RestoreSession(snap Snapshot) (*MatchSession, error) {
	if snap.Stage == StageFinished {
		return nil, fmt.Errorf("%w: finished matches do not resume", ErrMatchOver)
	}
	if len(snap.Seats) < MinSeats || len(snap.Seats) > MaxSeats {
		return nil, fmt.Errorf("snapshot has %d seats", len(snap.Seats))
	}

	s := &MatchSession{
		ID:                snap.MatchID,
		Stage:             snap.Stage,
		ActiveSeatIndex:   snap.ActiveSeatIndex,
		TurnCounter:       snap.TurnCounter,
		Deck:              append(deck.Pile(nil), snap.Deck...),
		Discard:           append(deck.Pile(nil), snap.Discard...),
		TableStack:        append(deck.Pile(nil), snap.TableStack...),
		RevealedDeckCard:  snap.RevealedDeckCard,
		revealHistory:     append([]*deck.Card(nil), snap.RevealHistory...),
		TrumpSuit:         snap.TrumpSuit,
		RoundInitiatorID:  snap.RoundInitiatorID,
		RoundFinisherID:   snap.RoundFinisherID,
		FinisherHasPassed: snap.FinisherPassed,
		OneCardDeclared:   make(map[uuid.UUID]bool, len(snap.OneCardDeclared)),
		Pending:           snap.Pending,
		EliminationOrder:  append([]uuid.UUID(nil), snap.EliminationOrder...),
		Log:               logrus.StandardLogger(),
		BotDelay:          800 * time.Millisecond,
	}
	if snap.DeckActionOpen {
		s.turnState = turnDeckRevealed
	}
	for idStr, declared := range snap.OneCardDeclared {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad seat id in snapshot: %w", err)
		}
		s.OneCardDeclared[id] = declared
	}
	for _, ss := range snap.Seats {
		s.Seats = append(s.Seats, &Seat{
			ID:         ss.ID,
			Name:       ss.Name,
			IsBot:      ss.IsBot,
			Connected:  false,
			Stage:      ss.Stage,
			IsWinner:   ss.IsWinner,
			FinishTime: ss.FinishTime,
			Hand:       append(deck.Pile(nil), ss.Hand...),
			Stub:       append(deck.Pile(nil), ss.Stub...),
		})
	}

	if n := s.cardCount(); n != deck.DeckSize {
		return nil, fmt.Errorf("%w: snapshot holds %d cards", ErrInvariant, n)
	}
	return s, nil
}
