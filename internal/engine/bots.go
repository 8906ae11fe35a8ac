// internal/engine/bots.go
//
// Bot seats decide synchronously but act after a pacing delay. The delay
// never changes the decision: the callback re-derives it from the state at
// fire time, and no-ops when the world has moved on (turn changed, penalty
// started or resolved, match over).
package engine

import (
	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/deck"
	"github.com/pidr-game/pidr-engine/internal/rules"
)

// maybeScheduleBot queues the active seat's next action if it is a bot.
// Lock held.
func (s *MatchSession) maybeScheduleBot() {
	if s.Tasks == nil || s.frozen || s.Stage == StageFinished || s.Pending != nil {
		return
	}
	seat := s.activeSeat()
	if seat == nil || !seat.IsBot {
		return
	}
	turn := s.TurnCounter
	seatID := seat.ID
	s.Tasks.Schedule(s.ID, seatID, s.BotDelay, func() {
		s.botTurnStep(seatID, turn)
	})
}

// maybeScheduleBotContributions queues one contribution per bot seat that
// still owes penalty cards. Lock held.
func (s *MatchSession) maybeScheduleBotContributions() {
	if s.Tasks == nil || s.Pending == nil {
		return
	}
	for contributorID, quota := range s.Pending.Quota {
		seat := s.seatByID(contributorID)
		if seat == nil || !seat.IsBot || s.Pending.donated(contributorID) >= quota {
			continue
		}
		id := contributorID
		s.Tasks.Schedule(s.ID, id, s.BotDelay, func() {
			s.botContributionStep(id)
		})
	}
}

// botTurnStep re-validates and performs one turn action for a bot seat.
func (s *MatchSession) botTurnStep(seatID uuid.UUID, turn int) {
	s.Mu.Lock()

	if s.frozen || s.Stage == StageFinished || s.Pending != nil || s.TurnCounter != turn {
		s.Mu.Unlock()
		return // stale: the world changed while we were pacing
	}
	seat := s.activeSeat()
	if seat == nil || seat.ID != seatID {
		s.Mu.Unlock()
		return
	}

	if len(seat.Hand) == 1 && !s.OneCardDeclared[seatID] {
		// Bots never forget to declare.
		s.Mu.Unlock()
		_ = s.DeclareOneCard(seatID)
		s.Mu.Lock()
		if s.TurnCounter != turn || s.activeSeat() == nil || s.activeSeat().ID != seatID {
			s.Mu.Unlock()
			return
		}
	}

	var act func() error
	if s.Stage == StageOne {
		act = s.botStageOneAction(seat)
	} else {
		act = s.botTrickAction(seat)
	}
	s.Mu.Unlock()

	if act != nil {
		if err := act(); err != nil {
			s.Log.WithField("seat", seatID).WithError(err).Debug("bot action rejected")
		}
	}
}

// botStageOneAction picks the forced stage-1 action. Lock held; the returned
// closure runs without the lock.
func (s *MatchSession) botStageOneAction(seat *Seat) func() error {
	seatID := seat.ID
	if s.turnState == turnDeckRevealed {
		c := s.RevealedDeckCard
		if targets := s.opponentChainTargets(s.ActiveSeatIndex, c); len(targets) > 0 {
			targetID := s.Seats[targets[0]].ID
			return func() error { return s.PlaceDeckCardOnTarget(seatID, targetID) }
		}
		if rules.CanChainPlace(c, seat.TopCard()) {
			return func() error { return s.PlaceDeckCardOnSelf(seatID) }
		}
		return func() error { return s.TakeDeckCardNotByRule(seatID) }
	}

	if top := seat.TopCard(); top != nil && len(s.opponentChainTargets(s.ActiveSeatIndex, top)) > 0 {
		cardID := top.ID
		return func() error { return s.PlayFromHand(seatID, cardID) }
	}
	return func() error { return s.RevealDeck(seatID) }
}

// botTrickAction picks the cheapest legal stage-2/3 play, or takes the
// table's bottom card when nothing beats. Lock held; the returned closure
// runs without the lock.
func (s *MatchSession) botTrickAction(seat *Seat) func() error {
	seatID := seat.ID

	var pick *deck.Card
	if len(s.TableStack) == 0 {
		// Open the circle with the weakest card, saving trumps.
		for _, c := range seat.Hand {
			if pick == nil || botCardCost(c, s.TrumpSuit) < botCardCost(pick, s.TrumpSuit) {
				pick = c
			}
		}
	} else {
		top := s.TableStack.Top()
		for _, c := range seat.Hand {
			if !rules.CanBeat(top, c, s.TrumpSuit) {
				continue
			}
			if pick == nil || botCardCost(c, s.TrumpSuit) < botCardCost(pick, s.TrumpSuit) {
				pick = c
			}
		}
	}

	if pick == nil {
		return func() error { return s.TakeTableBottomCard(seatID) }
	}
	cardID := pick.ID
	return func() error { return s.PlayFromHand(seatID, cardID) }
}

// botCardCost orders cards for the bot: rank first, trumps last.
func botCardCost(c *deck.Card, trump deck.Suit) int {
	cost := c.Rank
	if c.Suit == trump {
		cost += 100
	}
	return cost
}

// botContributionStep re-validates and donates one penalty card for a bot
// contributor, then reschedules itself while the quota is unmet.
func (s *MatchSession) botContributionStep(seatID uuid.UUID) {
	s.Mu.Lock()
	if s.frozen || s.Pending == nil {
		s.Mu.Unlock()
		return
	}
	p := s.Pending
	seat := s.seatByID(seatID)
	quota, required := p.Quota[seatID]
	if seat == nil || !required || p.donated(seatID) >= quota {
		s.Mu.Unlock()
		return
	}

	// Next target in seat order that this contributor has not served yet.
	var targetID uuid.UUID
	for _, candidate := range s.Seats {
		if !p.isTarget(candidate.ID) {
			continue
		}
		if _, done := p.Contributed[seatID][candidate.ID]; done {
			continue
		}
		targetID = candidate.ID
		break
	}
	if targetID == uuid.Nil || len(seat.Hand) == 0 {
		s.Mu.Unlock()
		return
	}
	// Donate the weakest card.
	pick := seat.Hand[0]
	for _, c := range seat.Hand {
		if botCardCost(c, s.TrumpSuit) < botCardCost(pick, s.TrumpSuit) {
			pick = c
		}
	}
	cardID := pick.ID
	s.Mu.Unlock()

	if err := s.ContributePenaltyCard(seatID, cardID, targetID); err != nil {
		s.Log.WithField("seat", seatID).WithError(err).Debug("bot contribution rejected")
	}
}
