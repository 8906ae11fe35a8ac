// internal/engine/victory.go
package engine

import (
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/rating"
)

// Reward is the coin/rating outcome for one final place.
type Reward struct {
	Coins       int `json:"coins"`
	RatingDelta int `json:"ratingDelta"`
}

// SeatResult pairs a seat with its final place and reward. Reported once per
// seat at match end.
type SeatResult struct {
	SeatID uuid.UUID `json:"seatId"`
	Place  int       `json:"place"`
	Reward Reward    `json:"reward"`
}

// rewardVersion tags the mid-table coin hash so every peer, in any
// implementation, derives bit-identical amounts for the same match.
const rewardVersion = "pidr-reward-v1"

// midTableCoins derives a deterministic pseudo-random coin amount for places
// 4..n-1 from stable ids, so all observers compute the identical value
// without exchanging it.
func midTableCoins(matchID, seatID uuid.UUID) int {
	h := fnv.New64a()
	h.Write([]byte(rewardVersion))
	h.Write([]byte{'|'})
	h.Write(matchID[:])
	h.Write([]byte{'|'})
	h.Write(seatID[:])
	return 10 + int(h.Sum64()%140)
}

// rewardForPlace looks up the reward schedule: fixed amounts for the podium
// and the loser, a deterministic hash amount for everyone in between.
func rewardForPlace(place, seatCount int, matchID, seatID uuid.UUID) Reward {
	delta := rating.DeltaForPlace(place, seatCount)
	if place == seatCount {
		return Reward{Coins: 5, RatingDelta: delta}
	}
	switch place {
	case 1:
		return Reward{Coins: 350, RatingDelta: delta}
	case 2:
		return Reward{Coins: 250, RatingDelta: delta}
	case 3:
		return Reward{Coins: 150, RatingDelta: delta}
	default:
		return Reward{Coins: midTableCoins(matchID, seatID), RatingDelta: delta}
	}
}

// checkVictory marks every newly exhausted seat as a winner. A seat wins the
// instant hand and stub are both empty, but only once stage 2 has begun;
// stage 1 has no win condition. FinishTime is recorded once and never
// overwritten; EliminationOrder keeps the detection order so two winners in
// the same pass still rank deterministically. Lock held.
func (s *MatchSession) checkVictory() {
	if s.Stage < StageTwo || s.Stage == StageFinished {
		return
	}
	now := time.Now()
	for _, seat := range s.Seats {
		if seat.IsWinner || len(seat.Hand) > 0 || len(seat.Stub) > 0 {
			continue
		}
		seat.IsWinner = true
		t := now
		seat.FinishTime = &t
		s.EliminationOrder = append(s.EliminationOrder, seat.ID)

		s.fireEvent(MatchEvent{
			Type: EventSeatWon,
			Seat: eventSeat(seat.ID),
			Payload: map[string]interface{}{
				"place": len(s.EliminationOrder),
			},
		})
		s.logAction(seat.ID, string(EventSeatWon), map[string]interface{}{
			"place": len(s.EliminationOrder),
		})
	}

	if s.countActiveSeats() <= 1 {
		s.finishMatch()
	}
}

// finishMatch computes the final ranking (winners by finish order, the lone
// survivor last), looks up rewards, and ends the match. Lock held, runs once.
func (s *MatchSession) finishMatch() {
	if s.Stage == StageFinished {
		return
	}
	s.Stage = StageFinished

	results := s.computeResults()
	summary := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		summary = append(summary, map[string]interface{}{
			"seatId":      r.SeatID,
			"place":       r.Place,
			"coins":       r.Reward.Coins,
			"ratingDelta": r.Reward.RatingDelta,
		})
	}

	s.fireEvent(MatchEvent{
		Type: EventMatchEnd,
		Payload: map[string]interface{}{
			"results": summary,
		},
	})
	s.logAction(uuid.Nil, string(EventMatchEnd), map[string]interface{}{"results": summary})

	if s.Tasks != nil {
		s.Tasks.CancelMatch(s.ID)
	}
	if s.OnMatchEnd != nil {
		cb := s.OnMatchEnd
		s.OnMatchEnd = nil
		// Run outside the lock; the callback persists results and may call
		// back into accessors.
		go cb(results)
	}
}

// FinalResults returns the (place, seat, reward) tuples for the match so
// far: winners ranked by finish order, remaining non-winners after them in
// seat order.
func (s *MatchSession) FinalResults() []SeatResult {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.computeResults()
}

func (s *MatchSession) computeResults() []SeatResult {
	n := len(s.Seats)
	results := make([]SeatResult, 0, n)
	place := 1
	for _, id := range s.EliminationOrder {
		results = append(results, SeatResult{
			SeatID: id,
			Place:  place,
			Reward: rewardForPlace(place, n, s.ID, id),
		})
		place++
	}
	for _, seat := range s.Seats {
		if seat.IsWinner {
			continue
		}
		results = append(results, SeatResult{
			SeatID: seat.ID,
			Place:  place,
			Reward: rewardForPlace(place, n, s.ID, seat.ID),
		})
		place++
	}
	return results
}
