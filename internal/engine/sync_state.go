// internal/engine/sync_state.go
package engine

import (
	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// ViewCard is a card as one particular seat is allowed to see it. Closed
// cards carry only their id.
type ViewCard struct {
	ID    uuid.UUID `json:"id"`
	Known bool      `json:"known"`
	Rank  int       `json:"rank,omitempty"`
	Suit  deck.Suit `json:"suit,omitempty"`
}

// ViewSeat is one seat from the perspective of the requesting seat. During
// stage 1 every stack is face up, so full hands are visible to everyone;
// from stage 2 on, only the requesting seat sees its own cards.
type ViewSeat struct {
	SeatID        uuid.UUID  `json:"seatId"`
	Name          string     `json:"name"`
	IsBot         bool       `json:"isBot"`
	Connected     bool       `json:"connected"`
	Stage         int        `json:"stage"`
	IsWinner      bool       `json:"isWinner"`
	HandSize      int        `json:"handSize"`
	StubSize      int        `json:"stubSize"`
	TopCard       *ViewCard  `json:"topCard,omitempty"`
	Hand          []ViewCard `json:"hand,omitempty"`
	Declared      bool       `json:"declaredOneCard"`
	IsCurrentTurn bool       `json:"isCurrentTurn"`
}

// MatchView is the obfuscated snapshot sent to a seat on connect/reconnect.
type MatchView struct {
	MatchID      uuid.UUID       `json:"matchId"`
	Stage        int             `json:"stage"`
	ActiveSeatID uuid.UUID       `json:"activeSeatId"`
	DeckSize     int             `json:"deckSize"`
	DiscardSize  int             `json:"discardSize"`
	TrumpSuit    deck.Suit       `json:"trumpSuit,omitempty"`
	RevealedCard *ViewCard       `json:"revealedCard,omitempty"`
	TableStack   []ViewCard      `json:"tableStack"`
	Seats        []ViewSeat      `json:"seats"`
	Pending      *PendingPenalty `json:"pendingPenalty,omitempty"`
}

func viewCard(c *deck.Card, known bool) *ViewCard {
	if c == nil {
		return nil
	}
	if !known || !c.Open {
		return &ViewCard{ID: c.ID}
	}
	return &ViewCard{ID: c.ID, Known: true, Rank: c.Rank, Suit: c.Suit}
}

// ViewFor generates the obfuscated game state for the requesting seat.
func (s *MatchSession) ViewFor(forSeat uuid.UUID) MatchView {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	view := MatchView{
		MatchID:     s.ID,
		Stage:       s.Stage,
		DeckSize:    len(s.Deck),
		DiscardSize: len(s.Discard),
		TrumpSuit:   s.TrumpSuit,
	}
	if active := s.activeSeat(); active != nil && s.Stage != StageFinished {
		view.ActiveSeatID = active.ID
	}
	view.RevealedCard = viewCard(s.RevealedDeckCard, true)
	for _, c := range s.TableStack {
		view.TableStack = append(view.TableStack, *viewCard(c, true))
	}
	if s.Pending != nil {
		view.Pending = s.Pending
	}

	for i, seat := range s.Seats {
		vs := ViewSeat{
			SeatID:        seat.ID,
			Name:          seat.Name,
			IsBot:         seat.IsBot,
			Connected:     seat.Connected,
			Stage:         seat.Stage,
			IsWinner:      seat.IsWinner,
			HandSize:      len(seat.Hand),
			StubSize:      len(seat.Stub),
			Declared:      s.OneCardDeclared[seat.ID],
			IsCurrentTurn: i == s.ActiveSeatIndex && s.Stage != StageFinished,
		}
		// Stage 1 stacks are public; later the hand is private.
		revealAll := s.Stage == StageOne || seat.ID == forSeat
		if revealAll {
			for _, c := range seat.Hand {
				vs.Hand = append(vs.Hand, *viewCard(c, true))
			}
		}
		if s.Stage == StageOne {
			vs.TopCard = viewCard(seat.TopCard(), true)
		}
		view.Seats = append(view.Seats, vs)
	}
	return view
}

// SendSyncState pushes the seat's private view through the per-seat
// broadcast channel, typically on reconnect.
func (s *MatchSession) SendSyncState(seatID uuid.UUID) {
	view := s.ViewFor(seatID)
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.fireEventToSeat(seatID, MatchEvent{
		Type:  EventPrivateSyncState,
		State: &view,
	})
}
