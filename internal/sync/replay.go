// internal/sync/replay.go
package sync

import (
	"errors"
	"fmt"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/engine"
)

// ErrStaleMove marks a message whose sequence number was already consumed.
// Duplicates are expected under retransmission and are not a fault.
var ErrStaleMove = errors.New("stale move sequence")

// Replayer feeds remote move messages into one match session exactly once
// each. A message's sequence number is consumed whether the engine accepted
// the move or rejected it: every peer runs the same engine, so a move
// rejected here was rejected everywhere, and replaying it again cannot
// change that.
type Replayer struct {
	mu      gosync.Mutex
	session *engine.MatchSession
	applied map[uuid.UUID]uint64 // seat -> highest consumed seq
	log     *logrus.Logger
}

// NewReplayer wraps a session for idempotent remote-move application.
func NewReplayer(session *engine.MatchSession, log *logrus.Logger) *Replayer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Replayer{
		session: session,
		applied: make(map[uuid.UUID]uint64),
		log:     log,
	}
}

// Apply validates and applies one remote move. Duplicate and out-of-date
// sequence numbers return ErrStaleMove without touching the session, so a
// message may be delivered any number of times. Engine rejections are
// returned to the caller after the sequence number is consumed.
func (r *Replayer) Apply(msg *MoveMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.MatchID != r.session.ID {
		return fmt.Errorf("move for match %s applied to match %s", msg.MatchID, r.session.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Seq <= r.applied[msg.SeatID] {
		r.log.WithFields(logrus.Fields{
			"match": msg.MatchID,
			"seat":  msg.SeatID,
			"seq":   msg.Seq,
		}).Debug("dropping duplicate move")
		return ErrStaleMove
	}
	r.applied[msg.SeatID] = msg.Seq

	return r.dispatch(msg)
}

func (r *Replayer) dispatch(msg *MoveMessage) error {
	switch msg.Type {
	case MoveCardPlayed:
		return r.session.PlayFromHand(msg.SeatID, msg.CardID)
	case MoveDeckRevealed:
		return r.session.RevealDeck(msg.SeatID)
	case MoveDeckPlaced:
		if msg.TargetSeat == msg.SeatID {
			return r.session.PlaceDeckCardOnSelf(msg.SeatID)
		}
		return r.session.PlaceDeckCardOnTarget(msg.SeatID, msg.TargetSeat)
	case MoveCardTaken:
		if msg.Origin == OriginDeck {
			return r.session.TakeDeckCardNotByRule(msg.SeatID)
		}
		return r.session.TakeTableBottomCard(msg.SeatID)
	case MoveOneCardDeclared:
		return r.session.DeclareOneCard(msg.SeatID)
	case MoveHowManyAsked:
		_, err := r.session.AskHowManyCards(msg.SeatID, msg.TargetSeat)
		return err
	case MovePenaltyCardContributed:
		return r.session.ContributePenaltyCard(msg.SeatID, msg.CardID, msg.TargetSeat)
	}
	return fmt.Errorf("unknown move type %q", msg.Type)
}

// LastApplied returns the highest consumed sequence number for a seat, for
// ack frames back to the sender.
func (r *Replayer) LastApplied(seatID uuid.UUID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied[seatID]
}
