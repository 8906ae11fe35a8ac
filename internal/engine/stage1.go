// internal/engine/stage1.go
//
// Stage 1 is the pyramid phase: the active seat chain-places its exposed top
// card onto opponents' tops for as long as a legal target exists, then
// reveals the deck's top card and resolves its placement. The phase ends the
// moment the shared deck runs out.
package engine

import (
	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/deck"
	"github.com/pidr-game/pidr-engine/internal/rules"
)

// opponentChainTargets returns seat indices (ascending) whose exposed top
// card legally accepts c. The acting seat itself is excluded.
func (s *MatchSession) opponentChainTargets(actingIdx int, c *deck.Card) []int {
	var targets []int
	for i, seat := range s.Seats {
		if i == actingIdx {
			continue
		}
		if rules.CanChainPlace(c, seat.TopCard()) {
			targets = append(targets, i)
		}
	}
	return targets
}

// LegalTargetsForActiveSeat reports which seats the active seat's exposed
// top card may chain onto right now. Empty during stage 2/3.
func (s *MatchSession) LegalTargetsForActiveSeat() []uuid.UUID {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	seat := s.activeSeat()
	if seat == nil || s.Stage != StageOne {
		return nil
	}
	var out []uuid.UUID
	for _, idx := range s.opponentChainTargets(s.ActiveSeatIndex, seat.TopCard()) {
		out = append(out, s.Seats[idx].ID)
	}
	return out
}

// PlayFromHand plays the identified card from the seat's hand. During stage 1
// this moves the exposed top card onto the lowest-indexed eligible opponent
// and the seat keeps analyzing; during stage 2/3 it plays onto the table
// stack under the beat rules.
func (s *MatchSession) PlayFromHand(seatID, cardID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage >= StageTwo {
		return s.playTrickCard(seat, cardID)
	}

	if s.turnState != turnAnalyzing {
		return s.reject(seatID, ErrWrongPhase, "resolve the revealed deck card first")
	}
	top := seat.TopCard()
	if top == nil {
		return s.reject(seatID, ErrIllegalMove, "hand is empty, reveal the deck")
	}
	if top.ID != cardID {
		return s.reject(seatID, ErrIllegalMove, "only the exposed top card can move")
	}
	targets := s.opponentChainTargets(s.ActiveSeatIndex, top)
	if len(targets) == 0 {
		return s.reject(seatID, ErrIllegalMove, "card has no chain target")
	}

	target := s.Seats[targets[0]]
	seat.Hand.MoveTop(&target.Hand)

	s.fireEvent(MatchEvent{
		Type:   EventCardPlayed,
		Seat:   eventSeat(seat.ID),
		Target: eventSeat(target.ID),
		Card:   eventCard(top),
		Payload: map[string]interface{}{
			"origin": "hand",
		},
	})
	s.logAction(seat.ID, string(EventCardPlayed), map[string]interface{}{
		"cardId": top.ID, "targetId": target.ID, "origin": "hand",
	})

	s.postMutationChecks()
	// The seat keeps analyzing: its new top card may chain again before any
	// deck action is offered.
	s.keepTurn()
	return nil
}

// RevealDeck turns the deck's top card face up. Legal only once the seat has
// no hand placement left.
func (s *MatchSession) RevealDeck(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage != StageOne {
		return s.reject(seatID, ErrWrongPhase, "deck reveals belong to stage 1")
	}
	if s.turnState != turnAnalyzing {
		return s.reject(seatID, ErrWrongPhase, "a deck card is already revealed")
	}
	if top := seat.TopCard(); top != nil && len(s.opponentChainTargets(s.ActiveSeatIndex, top)) > 0 {
		return s.reject(seatID, ErrIllegalMove, "a hand placement is available and must be played")
	}
	if len(s.Deck) == 0 {
		return s.reject(seatID, ErrWrongPhase, "deck is empty")
	}

	c := s.Deck.TakeTop()
	c.Open = true
	s.RevealedDeckCard = c
	s.revealHistory = append(s.revealHistory, c)
	s.turnState = turnDeckRevealed

	s.fireEvent(MatchEvent{
		Type: EventDeckRevealed,
		Seat: eventSeat(seat.ID),
		Card: eventCard(c),
		Payload: map[string]interface{}{
			"deckSize": len(s.Deck),
		},
	})
	s.logAction(seat.ID, string(EventDeckRevealed), map[string]interface{}{"cardId": c.ID})

	s.checkConservation()
	s.maybeScheduleBot()
	return nil
}

// PlaceDeckCardOnTarget places the revealed deck card onto an opponent's
// exposed top card. Mandatory whenever any opponent target exists; the
// choice among several is the revealer's. Ends the turn.
func (s *MatchSession) PlaceDeckCardOnTarget(seatID, targetSeatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage != StageOne || s.turnState != turnDeckRevealed {
		return s.reject(seatID, ErrWrongPhase, "no revealed deck card to place")
	}
	if targetSeatID == seatID {
		return s.reject(seatID, ErrIllegalMove, "use self placement for your own stack")
	}
	target := s.seatByID(targetSeatID)
	if target == nil {
		return s.reject(seatID, ErrUnknownSeat, "target seat not found")
	}
	c := s.RevealedDeckCard
	if !rules.CanChainPlace(c, target.TopCard()) {
		return s.reject(seatID, ErrIllegalMove, "card cannot chain onto that seat")
	}

	s.RevealedDeckCard = nil
	target.Hand.Push(c)

	s.fireEvent(MatchEvent{
		Type:   EventCardPlayed,
		Seat:   eventSeat(seat.ID),
		Target: eventSeat(target.ID),
		Card:   eventCard(c),
		Payload: map[string]interface{}{
			"origin": "deck",
		},
	})
	s.logAction(seat.ID, string(EventCardPlayed), map[string]interface{}{
		"cardId": c.ID, "targetId": target.ID, "origin": "deck",
	})

	s.postMutationChecks()
	s.endStage1Placement(false)
	return nil
}

// PlaceDeckCardOnSelf places the revealed deck card onto the seat's own top
// card by rule. Legal only when no opponent target exists. The seat keeps
// the turn and re-enters hand analysis with its new top card.
func (s *MatchSession) PlaceDeckCardOnSelf(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage != StageOne || s.turnState != turnDeckRevealed {
		return s.reject(seatID, ErrWrongPhase, "no revealed deck card to place")
	}
	c := s.RevealedDeckCard
	if len(s.opponentChainTargets(s.ActiveSeatIndex, c)) > 0 {
		return s.reject(seatID, ErrIllegalMove, "an opponent target exists and takes priority")
	}
	if !rules.CanChainPlace(c, seat.TopCard()) {
		return s.reject(seatID, ErrIllegalMove, "card cannot chain onto your own stack")
	}

	s.RevealedDeckCard = nil
	seat.Hand.Push(c)

	s.fireEvent(MatchEvent{
		Type:   EventCardPlayed,
		Seat:   eventSeat(seat.ID),
		Target: eventSeat(seat.ID),
		Card:   eventCard(c),
		Payload: map[string]interface{}{
			"origin": "deck",
			"byRule": true,
		},
	})
	s.logAction(seat.ID, string(EventCardPlayed), map[string]interface{}{
		"cardId": c.ID, "targetId": seat.ID, "origin": "deck", "byRule": true,
	})

	s.postMutationChecks()
	s.endStage1Placement(true)
	return nil
}

// TakeDeckCardNotByRule pushes the revealed deck card face up onto the
// seat's own stack when it fits nowhere. Ends the turn.
func (s *MatchSession) TakeDeckCardNotByRule(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage != StageOne || s.turnState != turnDeckRevealed {
		return s.reject(seatID, ErrWrongPhase, "no revealed deck card to take")
	}
	c := s.RevealedDeckCard
	if len(s.opponentChainTargets(s.ActiveSeatIndex, c)) > 0 {
		return s.reject(seatID, ErrIllegalMove, "an opponent target exists and takes priority")
	}
	if rules.CanChainPlace(c, seat.TopCard()) {
		return s.reject(seatID, ErrIllegalMove, "card places on your stack by rule")
	}

	s.RevealedDeckCard = nil
	seat.Hand.Push(c)

	s.fireEvent(MatchEvent{
		Type: EventCardTaken,
		Seat: eventSeat(seat.ID),
		Card: eventCard(c),
		Payload: map[string]interface{}{
			"origin": "deck",
			"byRule": false,
		},
	})
	s.logAction(seat.ID, string(EventCardTaken), map[string]interface{}{
		"cardId": c.ID, "origin": "deck", "byRule": false,
	})

	s.postMutationChecks()
	s.endStage1Placement(false)
	return nil
}

// endStage1Placement closes out a resolved deck placement: the stage ends
// the instant the shared deck is empty, otherwise the turn either stays with
// the seat (by-rule self placement) or advances.
func (s *MatchSession) endStage1Placement(keep bool) {
	if len(s.Deck) == 0 {
		s.transitionToStageTwo()
		return
	}
	if keep {
		s.keepTurn()
	} else {
		s.advanceTurn()
	}
}

// transitionToStageTwo runs once, at deck depletion: trump discovery, seat
// promotion, and immediate stub activation for already-empty hands.
func (s *MatchSession) transitionToStageTwo() {
	trump, err := rules.DetermineTrump(s.revealHistory)
	if err != nil {
		s.failInvariant(err.Error())
		return
	}
	s.TrumpSuit = trump
	s.Stage = StageTwo
	for _, seat := range s.Seats {
		seat.Stage = StageTwo
	}

	s.fireEvent(MatchEvent{
		Type: EventStageTransition,
		Payload: map[string]interface{}{
			"stage": StageTwo,
			"trump": trump,
		},
	})
	s.logAction(uuid.Nil, string(EventStageTransition), map[string]interface{}{
		"stage": StageTwo, "trump": string(trump),
	})

	// A seat may enter stage 2 with an empty hand; its stub opens right away
	// and the victory check covers the (impossible by deal) fully-empty case.
	s.postMutationChecks()
	s.advanceTurn()
}
