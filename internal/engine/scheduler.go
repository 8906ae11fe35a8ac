// internal/engine/scheduler.go
package engine

import (
	"github.com/google/uuid"
)

// nextActiveIndex walks clockwise from the given index (exclusive) and
// returns the first seat still in the rotation, or -1 if none other than
// possibly the starting seat remains.
func (s *MatchSession) nextActiveIndex(from int) int {
	n := len(s.Seats)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if idx == from {
			break
		}
		if s.Seats[idx].Active() {
			return idx
		}
	}
	return -1
}

// countActiveSeats returns how many seats remain in the rotation.
func (s *MatchSession) countActiveSeats() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Active() {
			n++
		}
	}
	return n
}

// computeRoundFinisher walks counter-clockwise from the initiator and returns
// the first still-active seat: the one whose successful beat closes the
// circle under normal conditions. uuid.Nil means no finisher exists and any
// beat closes the circle ("overtime by default").
func (s *MatchSession) computeRoundFinisher(initiatorID uuid.UUID) uuid.UUID {
	start := s.seatIndex(initiatorID)
	if start < 0 {
		return uuid.Nil
	}
	n := len(s.Seats)
	for step := 1; step < n; step++ {
		idx := (start - step + n) % n
		if s.Seats[idx].Active() {
			return s.Seats[idx].ID
		}
	}
	return uuid.Nil
}

// advanceTurn moves the rotation exactly one active seat forward. Callers
// that grant an extra turn (stage-1 self placement, circle close) simply do
// not call it. Assumes lock is held and postMutationChecks already ran.
func (s *MatchSession) advanceTurn() {
	if s.Stage == StageFinished || s.frozen {
		return
	}
	if s.countActiveSeats() <= 1 {
		s.finishMatch()
		return
	}

	// The acting seat may have left the rotation this turn; if so the walk
	// naturally skips it.
	next := s.nextActiveIndex(s.ActiveSeatIndex)
	if next == -1 {
		s.finishMatch()
		return
	}
	s.ActiveSeatIndex = next
	s.TurnCounter++
	s.turnState = turnAnalyzing
	s.broadcastTurn()
	s.maybeScheduleBot()
}

// keepTurn re-announces the same seat after a keep-turn action so bots and
// remote peers see a fresh turn boundary.
func (s *MatchSession) keepTurn() {
	if s.Stage == StageFinished || s.frozen {
		return
	}
	seat := s.activeSeat()
	if seat == nil || !seat.Active() {
		// The seat that earned the extra turn just left the rotation.
		s.advanceTurn()
		return
	}
	s.turnState = turnAnalyzing
	s.broadcastTurn()
	s.maybeScheduleBot()
}

func (s *MatchSession) broadcastTurn() {
	seat := s.activeSeat()
	if seat == nil || s.Stage == StageFinished {
		return
	}
	s.fireEvent(MatchEvent{
		Type: EventMatchTurn,
		Seat: eventSeat(seat.ID),
		Payload: map[string]interface{}{
			"turn":  s.TurnCounter,
			"stage": s.Stage,
		},
	})
}
