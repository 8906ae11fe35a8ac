// internal/engine/penalty.go
//
// The one-card rule: a seat holding exactly one card must declare it. There
// is no timer; the only consequence comes when another seat asks "how many
// cards" and catches an undeclared single card. That starts a penalty
// episode: the match pauses and every other seat holding cards donates to
// the forgetful seat before ordinary play resumes.
package engine

import (
	"github.com/google/uuid"
)

// PendingPenalty tracks one in-flight penalty episode. While non-nil the
// match is paused: no ordinary turn-advancing command succeeds. There is no
// timeout; the pause holds until every required contribution lands.
type PendingPenalty struct {
	Targets []uuid.UUID `json:"targets"`

	// Quota is how many cards each required contributor owes in total:
	// min(hand size at episode start, number of targets).
	Quota map[uuid.UUID]int `json:"quota"`

	// Contributed records contributor -> target -> donated card.
	Contributed map[uuid.UUID]map[uuid.UUID]uuid.UUID `json:"contributed"`
}

// donated returns how many cards the contributor has already given.
func (p *PendingPenalty) donated(contributorID uuid.UUID) int {
	return len(p.Contributed[contributorID])
}

func (p *PendingPenalty) isTarget(id uuid.UUID) bool {
	for _, t := range p.Targets {
		if t == id {
			return true
		}
	}
	return false
}

// complete reports whether every contributor has met its quota.
func (p *PendingPenalty) complete() bool {
	for id, quota := range p.Quota {
		if p.donated(id) < quota {
			return false
		}
	}
	return true
}

// PendingPenaltyInfo returns a copy of the in-flight penalty, or nil.
func (s *MatchSession) PendingPenaltyInfo() *PendingPenalty {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Pending == nil {
		return nil
	}
	cp := &PendingPenalty{
		Targets: append([]uuid.UUID(nil), s.Pending.Targets...),
		Quota:   make(map[uuid.UUID]int, len(s.Pending.Quota)),
	}
	for id, q := range s.Pending.Quota {
		cp.Quota[id] = q
	}
	cp.Contributed = make(map[uuid.UUID]map[uuid.UUID]uuid.UUID, len(s.Pending.Contributed))
	for cid, m := range s.Pending.Contributed {
		inner := make(map[uuid.UUID]uuid.UUID, len(m))
		for tid, card := range m {
			inner[tid] = card
		}
		cp.Contributed[cid] = inner
	}
	return cp
}

// DeclareOneCard records the seat's announcement that exactly one card
// remains in its hand. Accepted out of turn and even during a penalty pause,
// since declaring never advances play. Rejected whenever hand size is not
// exactly one.
func (s *MatchSession) DeclareOneCard(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.frozen {
		return ErrInvariant
	}
	if s.Stage == StageFinished {
		return s.reject(seatID, ErrMatchOver, "match is over")
	}
	seat := s.seatByID(seatID)
	if seat == nil {
		return ErrUnknownSeat
	}
	if len(seat.Hand) != 1 {
		return s.reject(seatID, ErrDeclareState, "declare requires exactly one card")
	}
	if s.OneCardDeclared[seatID] {
		return nil // idempotent
	}

	s.OneCardDeclared[seatID] = true
	s.fireEvent(MatchEvent{
		Type: EventOneCardDeclared,
		Seat: eventSeat(seatID),
	})
	s.logAction(seatID, string(EventOneCardDeclared), nil)
	return nil
}

// AskHowManyCards answers a "how many cards" query about the target seat and
// starts a penalty episode when it catches an undeclared single card. During
// an existing episode the query is a no-op; an already-declared or
// multi-card target makes the answer purely informational.
func (s *MatchSession) AskHowManyCards(askerID, targetID uuid.UUID) (int, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.frozen {
		return 0, ErrInvariant
	}
	if s.Stage == StageFinished {
		return 0, s.reject(askerID, ErrMatchOver, "match is over")
	}
	if s.seatByID(askerID) == nil || askerID == targetID {
		return 0, ErrUnknownSeat
	}
	target := s.seatByID(targetID)
	if target == nil {
		return 0, ErrUnknownSeat
	}

	count := len(target.Hand)
	if s.Pending != nil {
		// One penalty resolves at a time.
		return count, nil
	}

	s.fireEvent(MatchEvent{
		Type:   EventCardCountAnswer,
		Seat:   eventSeat(askerID),
		Target: eventSeat(targetID),
		Payload: map[string]interface{}{
			"count": count,
		},
	})
	s.logAction(askerID, string(EventCardCountAnswer), map[string]interface{}{
		"targetId": targetID, "count": count,
	})

	if count == 1 && !s.OneCardDeclared[targetID] {
		s.startPenalty([]uuid.UUID{targetID})
	}
	return count, nil
}

// startPenalty pauses the match and opens a collection episode against the
// forgetful seats. Contributors are every other seat holding at least one
// card; each owes min(own hand size, number of targets) cards. Lock held.
func (s *MatchSession) startPenalty(targetIDs []uuid.UUID) {
	p := &PendingPenalty{
		Targets:     targetIDs,
		Quota:       make(map[uuid.UUID]int),
		Contributed: make(map[uuid.UUID]map[uuid.UUID]uuid.UUID),
	}
	for _, seat := range s.Seats {
		if p.isTarget(seat.ID) || len(seat.Hand) == 0 {
			continue
		}
		quota := len(targetIDs)
		if len(seat.Hand) < quota {
			quota = len(seat.Hand)
		}
		p.Quota[seat.ID] = quota
	}
	if len(p.Quota) == 0 {
		// Nobody can donate; the episode resolves before it starts.
		return
	}
	s.Pending = p

	s.fireEvent(MatchEvent{
		Type: EventPenaltyStarted,
		Payload: map[string]interface{}{
			"targets":      targetIDs,
			"contributors": len(p.Quota),
		},
	})
	s.logAction(uuid.Nil, string(EventPenaltyStarted), map[string]interface{}{
		"targets": targetIDs,
	})
	s.maybeScheduleBotContributions()
}

// ContributePenaltyCard transfers exactly one open card from the contributor
// to a penalty target. The episode ends, and the match resumes with the same
// active seat, the moment every required contributor has met its quota.
func (s *MatchSession) ContributePenaltyCard(contributorID, cardID, targetID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.frozen {
		return ErrInvariant
	}
	if s.Pending == nil {
		return s.reject(contributorID, ErrNoPenalty, "no penalty in progress")
	}
	p := s.Pending

	contributor := s.seatByID(contributorID)
	if contributor == nil {
		return ErrUnknownSeat
	}
	quota, required := p.Quota[contributorID]
	if !required {
		return s.reject(contributorID, ErrIllegalMove, "you are not a required contributor")
	}
	if p.donated(contributorID) >= quota {
		return s.reject(contributorID, ErrIllegalMove, "your contribution quota is met")
	}
	if !p.isTarget(targetID) {
		return s.reject(contributorID, ErrIllegalMove, "seat is not a penalty target")
	}
	if _, dup := p.Contributed[contributorID][targetID]; dup {
		return s.reject(contributorID, ErrIllegalMove, "already donated to that seat")
	}
	c := contributor.Hand.Find(cardID)
	if c == nil {
		return s.reject(contributorID, ErrUnknownCard, "card is not in your hand")
	}

	target := s.seatByID(targetID)
	contributor.Hand.Remove(c.ID)
	c.Open = true
	target.Hand.Push(c)

	if p.Contributed[contributorID] == nil {
		p.Contributed[contributorID] = make(map[uuid.UUID]uuid.UUID)
	}
	p.Contributed[contributorID][targetID] = c.ID

	s.fireEvent(MatchEvent{
		Type:   EventPenaltyCard,
		Seat:   eventSeat(contributorID),
		Target: eventSeat(targetID),
		Card:   eventCard(c),
	})
	s.logAction(contributorID, string(EventPenaltyCard), map[string]interface{}{
		"cardId": c.ID, "targetId": targetID,
	})

	// A contribution can empty the contributor's hand (stub activation) or
	// change one-card eligibility on either side.
	s.postMutationChecks()

	if p.complete() {
		s.Pending = nil
		s.fireEvent(MatchEvent{Type: EventPenaltyEnded})
		s.logAction(uuid.Nil, string(EventPenaltyEnded), nil)
		if s.Stage != StageFinished {
			// Resume with the seat that was active before the pause.
			s.maybeScheduleBot()
		}
	} else {
		s.maybeScheduleBotContributions()
	}
	return nil
}
