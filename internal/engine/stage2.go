// internal/engine/stage2.go
//
// Stage 2/3 is the trick phase. One shared rule set: a seat either plays one
// card onto the table stack (opening a circle or beating the current top) or
// takes the stack's bottom card when it cannot beat. Stage 3 only means a
// seat is playing cards that came from its stub.
package engine

import (
	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/rules"
)

// playTrickCard handles PlayFromHand once stage 2 has begun. Lock held,
// gate already passed.
func (s *MatchSession) playTrickCard(seat *Seat, cardID uuid.UUID) error {
	c := seat.Hand.Find(cardID)
	if c == nil {
		return s.reject(seat.ID, ErrUnknownCard, "card is not in your hand")
	}

	opensCircle := len(s.TableStack) == 0
	if !opensCircle && !rules.CanBeat(s.TableStack.Top(), c, s.TrumpSuit) {
		return s.reject(seat.ID, ErrIllegalMove, "card cannot beat")
	}

	if opensCircle {
		s.RoundInitiatorID = seat.ID
		s.RoundFinisherID = s.computeRoundFinisher(seat.ID)
		s.FinisherHasPassed = false
	}

	seat.Hand.Remove(c.ID)
	s.TableStack.Push(c)

	s.fireEvent(MatchEvent{
		Type: EventCardPlayed,
		Seat: eventSeat(seat.ID),
		Card: eventCard(c),
		Payload: map[string]interface{}{
			"origin":      "hand",
			"tableSize":   len(s.TableStack),
			"opensCircle": opensCircle,
		},
	})
	s.logAction(seat.ID, string(EventCardPlayed), map[string]interface{}{
		"cardId": c.ID, "origin": "hand", "opensCircle": opensCircle,
	})

	closed := !opensCircle && s.beatClosesCircle(seat.ID)
	if closed {
		s.closeCircle(seat.ID)
	}

	s.postMutationChecks()
	if closed {
		// Closing the circle earns the same seat the next turn.
		s.keepTurn()
	} else {
		s.advanceTurn()
	}
	return nil
}

// beatClosesCircle decides whether the beat that just landed closes the
// circle: the designated finisher's beat before any pass (ordinary close),
// any beat once the finisher has passed (overtime close), or any beat when
// no finisher exists. A finisher that left the rotation mid-circle (its last
// card donated during a penalty episode) counts as having passed.
func (s *MatchSession) beatClosesCircle(actorID uuid.UUID) bool {
	if s.RoundFinisherID == uuid.Nil {
		return true
	}
	if s.FinisherHasPassed {
		return true
	}
	if finisher := s.seatByID(s.RoundFinisherID); finisher == nil || !finisher.Active() {
		return true
	}
	return actorID == s.RoundFinisherID
}

// closeCircle flushes the accumulated table stack to the discard pile and
// resets the circle bookkeeping. Lock held.
func (s *MatchSession) closeCircle(actorID uuid.UUID) {
	flushed := len(s.TableStack)
	for s.TableStack.MoveTop(&s.Discard) {
	}
	s.RoundInitiatorID = uuid.Nil
	s.RoundFinisherID = uuid.Nil
	s.FinisherHasPassed = false

	s.fireEvent(MatchEvent{
		Type: EventCircleClosed,
		Seat: eventSeat(actorID),
		Payload: map[string]interface{}{
			"cards": flushed,
		},
	})
	s.logAction(actorID, string(EventCircleClosed), map[string]interface{}{"cards": flushed})
}

// TakeTableBottomCard is the "cannot beat" action: the seat takes only the
// bottom card of the table stack into its hand. A designated finisher's
// first inability starts overtime instead of closing the circle. The turn
// advances normally afterwards.
func (s *MatchSession) TakeTableBottomCard(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seat, err := s.gate(seatID)
	if err != nil {
		return err
	}
	if s.Stage < StageTwo {
		return s.reject(seatID, ErrWrongPhase, "no table stack in stage 1")
	}
	if len(s.TableStack) == 0 {
		return s.reject(seatID, ErrIllegalMove, "table is empty")
	}

	c := s.TableStack.TakeBottom()
	c.Open = true
	seat.Hand.Push(c)

	if seat.ID == s.RoundFinisherID && !s.FinisherHasPassed {
		s.FinisherHasPassed = true
	}

	s.fireEvent(MatchEvent{
		Type: EventCardTaken,
		Seat: eventSeat(seat.ID),
		Card: eventCard(c),
		Payload: map[string]interface{}{
			"origin":    "table",
			"tableSize": len(s.TableStack),
			"overtime":  s.FinisherHasPassed,
		},
	})
	s.logAction(seat.ID, string(EventCardTaken), map[string]interface{}{
		"cardId": c.ID, "origin": "table",
	})

	if len(s.TableStack) == 0 {
		// A take that drains the table is a circle close with zero cards.
		s.closeCircle(seat.ID)
	}

	s.postMutationChecks()
	s.advanceTurn()
	return nil
}
