// internal/engine/session.go
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// Seat count bounds for one table.
const (
	MinSeats = 2
	MaxSeats = 9
)

// stubSize is the number of face-down cards dealt to every seat.
const stubSize = 2

// turnState tracks the stage-1 turn micro-state for the active seat.
type turnState int

const (
	// turnAnalyzing: the seat is placing from hand, or may reveal the deck
	// once no hand placement is legal.
	turnAnalyzing turnState = iota
	// turnDeckRevealed: a deck card is face up and waiting for its placement.
	turnDeckRevealed
)

// MatchSession holds the entire state for one match instance in memory.
// All mutation happens through the exported command methods while Mu is held;
// there is exactly one logical writer at a time.
type MatchSession struct {
	ID uuid.UUID
	Mu sync.Mutex

	Seats           []*Seat
	Stage           int // match stage: 1, 2 (covers per-seat 2/3), 4 finished
	ActiveSeatIndex int
	TurnCounter     int // increments on every seat change; stale-task guard

	Deck       deck.Pile
	Discard    deck.Pile
	TableStack deck.Pile

	// Stage 1 bookkeeping.
	RevealedDeckCard *deck.Card
	revealHistory    []*deck.Card
	turnState        turnState

	// Stage 2/3 circle bookkeeping. uuid.Nil means unset.
	TrumpSuit         deck.Suit
	RoundInitiatorID  uuid.UUID
	RoundFinisherID   uuid.UUID
	FinisherHasPassed bool

	OneCardDeclared  map[uuid.UUID]bool
	Pending          *PendingPenalty
	EliminationOrder []uuid.UUID

	frozen       bool
	frozenReason string
	actionIndex  int

	Log *logrus.Logger

	// BroadcastFn sends an event to every seat. Nil disables broadcasting.
	BroadcastFn func(ev MatchEvent)
	// BroadcastToSeatFn sends an event to a single seat.
	BroadcastToSeatFn func(seatID uuid.UUID, ev MatchEvent)
	// HistoryFn receives one record per accepted command, for the historian queue.
	HistoryFn func(rec ActionRecord)
	// OnMatchEnd is invoked once, with the final places and rewards.
	OnMatchEnd func(results []SeatResult)

	// Tasks paces bot decisions; nil runs a human-only match.
	Tasks    *TaskScheduler
	BotDelay time.Duration
}

// NewMatchSession deals a fresh match: every seat receives two closed stub
// cards and one open hand card; the rest stays in the shared deck. The first
// active seat is the one with the highest exposed card (lowest index wins a
// tie). A nil rng deals in deterministic construction order, which tests use.
func NewMatchSession(infos []SeatInfo, rng *rand.Rand) (*MatchSession, error) {
	if len(infos) < MinSeats || len(infos) > MaxSeats {
		return nil, fmt.Errorf("seat count %d outside %d..%d", len(infos), MinSeats, MaxSeats)
	}

	id, _ := uuid.NewRandom()
	s := &MatchSession{
		ID:               id,
		Stage:            StageOne,
		Deck:             deck.New(rng),
		OneCardDeclared:  make(map[uuid.UUID]bool),
		RoundInitiatorID: uuid.Nil,
		RoundFinisherID:  uuid.Nil,
		Log:              logrus.StandardLogger(),
		BotDelay:         800 * time.Millisecond,
	}

	for _, info := range infos {
		seat := &Seat{
			ID:        info.ID,
			Name:      info.Name,
			IsBot:     info.IsBot,
			Connected: true,
			Stage:     StageOne,
		}
		if seat.ID == uuid.Nil {
			seat.ID, _ = uuid.NewRandom()
		}
		for i := 0; i < stubSize; i++ {
			c := s.Deck.TakeTop()
			c.Open = false
			seat.Stub.Push(c)
		}
		s.Seats = append(s.Seats, seat)
	}
	// One open card each, dealt after all stubs so stub cards sit deepest.
	for _, seat := range s.Seats {
		c := s.Deck.TakeTop()
		c.Open = true
		seat.Hand.Push(c)
	}

	best := 0
	for i, seat := range s.Seats {
		if seat.TopCard().Rank > s.Seats[best].TopCard().Rank {
			best = i
		}
	}
	s.ActiveSeatIndex = best

	return s, nil
}

// Begin announces the opening turn and kicks off bot pacing. Call once after
// the broadcast callbacks are wired.
func (s *MatchSession) Begin() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.broadcastTurn()
	s.maybeScheduleBot()
}

// --- lookups, lock held ---

func (s *MatchSession) seatByID(id uuid.UUID) *Seat {
	for _, seat := range s.Seats {
		if seat.ID == id {
			return seat
		}
	}
	return nil
}

func (s *MatchSession) seatIndex(id uuid.UUID) int {
	for i, seat := range s.Seats {
		if seat.ID == id {
			return i
		}
	}
	return -1
}

func (s *MatchSession) activeSeat() *Seat {
	if s.ActiveSeatIndex < 0 || s.ActiveSeatIndex >= len(s.Seats) {
		return nil
	}
	return s.Seats[s.ActiveSeatIndex]
}

// --- events and history, lock held ---

func (s *MatchSession) fireEvent(ev MatchEvent) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

func (s *MatchSession) fireEventToSeat(seatID uuid.UUID, ev MatchEvent) {
	if s.BroadcastToSeatFn != nil {
		s.BroadcastToSeatFn(seatID, ev)
	}
}

func (s *MatchSession) logAction(seatID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.HistoryFn == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	s.HistoryFn(ActionRecord{
		MatchID:     s.ID,
		ActionIndex: s.actionIndex,
		SeatID:      seatID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	})
}

// reject notifies the acting seat why a command was refused and returns the
// sentinel for the caller. State is untouched by construction: reject is only
// called before any mutation.
func (s *MatchSession) reject(seatID uuid.UUID, err error, reason string) error {
	s.fireEventToSeat(seatID, MatchEvent{
		Type:   EventMoveRejected,
		Seat:   eventSeat(seatID),
		Reason: reason,
	})
	return fmt.Errorf("%w: %s", err, reason)
}

// gate performs the shared pre-checks for ordinary (turn-advancing) commands.
func (s *MatchSession) gate(seatID uuid.UUID) (*Seat, error) {
	if s.frozen {
		return nil, fmt.Errorf("%w: %s", ErrInvariant, s.frozenReason)
	}
	if s.Stage == StageFinished {
		return nil, s.reject(seatID, ErrMatchOver, "match is over")
	}
	if s.Pending != nil {
		return nil, s.reject(seatID, ErrMatchPaused, "penalty collection in progress")
	}
	seat := s.seatByID(seatID)
	if seat == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeat, seatID)
	}
	if s.activeSeat() == nil || s.activeSeat().ID != seatID {
		return nil, s.reject(seatID, ErrNotYourTurn, "not your turn")
	}
	return seat, nil
}

// --- invariants, lock held ---

// cardCount tallies every container that may own cards.
func (s *MatchSession) cardCount() int {
	n := len(s.Deck) + len(s.Discard) + len(s.TableStack)
	if s.RevealedDeckCard != nil {
		n++
	}
	for _, seat := range s.Seats {
		n += len(seat.Hand) + len(seat.Stub)
	}
	return n
}

func (s *MatchSession) checkConservation() {
	if n := s.cardCount(); n != deck.DeckSize {
		s.failInvariant(fmt.Sprintf("card conservation broken: %d cards reachable", n))
	}
}

// failInvariant freezes the match. Invariant violations are engine bugs, not
// player errors; they halt further mutation instead of attempting recovery.
func (s *MatchSession) failInvariant(reason string) {
	if s.frozen {
		return
	}
	s.frozen = true
	s.frozenReason = reason
	s.Log.WithFields(logrus.Fields{
		"match":  s.ID,
		"reason": reason,
	}).Error("invariant violation, freezing match")
}

// Frozen reports whether the match halted on an invariant violation.
func (s *MatchSession) Frozen() (bool, string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.frozen, s.frozenReason
}

// postMutationChecks re-runs the order-sensitive transition checks after any
// state-mutating action: stub activation for every seat, then victory, then
// one-card status. Penalty and overtime side effects can change seats other
// than the acting one, so every seat is inspected every time.
func (s *MatchSession) postMutationChecks() {
	s.checkStubActivation()
	s.checkVictory()
	s.checkOneCardStatus()
	s.checkConservation()
}

// checkStubActivation opens the stub into the hand for any stage>=2 seat
// whose hand has emptied while cards remain in its stub.
func (s *MatchSession) checkStubActivation() {
	if s.Stage < StageTwo {
		return
	}
	for _, seat := range s.Seats {
		s.activateStubIfDue(seat)
	}
}

func (s *MatchSession) activateStubIfDue(seat *Seat) {
	if len(seat.Hand) != 0 || len(seat.Stub) == 0 || seat.IsWinner {
		return
	}
	for seat.Stub.MoveTop(&seat.Hand) {
	}
	for _, c := range seat.Hand {
		c.Open = true
	}
	seat.Stage = StageThree
	s.fireEvent(MatchEvent{
		Type: EventStubActivated,
		Seat: eventSeat(seat.ID),
		Payload: map[string]interface{}{
			"handSize": len(seat.Hand),
		},
	})
	s.logAction(seat.ID, string(EventStubActivated), nil)
}

// checkOneCardStatus clears a seat's declaration whenever its hand size is
// anything other than exactly one card.
func (s *MatchSession) checkOneCardStatus() {
	for _, seat := range s.Seats {
		if len(seat.Hand) != 1 {
			s.OneCardDeclared[seat.ID] = false
		}
	}
}

// --- query accessors ---

// CurrentStage returns the match-level stage.
func (s *MatchSession) CurrentStage() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Stage
}

// ActiveSeatID returns the seat whose turn it is, or uuid.Nil after the end.
func (s *MatchSession) ActiveSeatID() uuid.UUID {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if seat := s.activeSeat(); seat != nil {
		return seat.ID
	}
	return uuid.Nil
}

// Trump returns the trump suit once stage 2 begins; ok is false during stage 1.
func (s *MatchSession) Trump() (deck.Suit, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.TrumpSuit, s.TrumpSuit != ""
}

// TableCards returns a copy of the current table stack, bottom first.
func (s *MatchSession) TableCards() []*deck.Card {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	out := make([]*deck.Card, len(s.TableStack))
	copy(out, s.TableStack)
	return out
}
