// internal/engine/stage1_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

func TestStageOneChainLandsOnLowestIndexedTarget(t *testing.T) {
	s, mb := setupMatch(t, 3)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{9, deck.Clubs}, {5, deck.Hearts}},
			1: {{6, deck.Clubs}},
			2: {{6, deck.Diamonds}},
		},
		map[int]cardSpec{0: {12, deck.Spades}},
		map[int]int{0: 2, 1: 2, 2: 2},
	)
	acting := s.Seats[0]
	moved := acting.TopCard()

	err := s.PlayFromHand(acting.ID, moved.ID)
	require.NoError(t, err)

	// Both opponents could accept the 5; the lowest-indexed one receives it.
	assert.Same(t, moved, s.Seats[1].TopCard())
	assert.Len(t, s.Seats[2].Hand, 1)

	// A successful hand placement keeps the turn with the acting seat.
	assert.Equal(t, 0, s.ActiveSeatIndex)

	played := mb.eventsOfType(EventCardPlayed)
	require.Len(t, played, 1)
	assert.Equal(t, s.Seats[1].ID, played[0].Target.ID)
}

func TestStageOneOnlyTopCardMoves(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{9, deck.Clubs}, {5, deck.Hearts}},
			1: {{6, deck.Clubs}},
		},
		map[int]cardSpec{0: {12, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)
	buried := s.Seats[0].Hand[0]

	err := s.PlayFromHand(s.Seats[0].ID, buried.ID)
	require.ErrorIs(t, err, ErrIllegalMove)
	assert.Len(t, s.Seats[0].Hand, 2, "state untouched after rejection")
}

func TestStageOneTwoChainsOntoAceOnly(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{2, deck.Clubs}},
			1: {{14, deck.Diamonds}},
		},
		map[int]cardSpec{0: {12, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)

	err := s.PlayFromHand(s.Seats[0].ID, s.Seats[0].TopCard().ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Seats[1].TopCard().Rank)
}

func TestStageOneRevealBlockedWhileHandTargetExists(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{5, deck.Hearts}},
			1: {{6, deck.Clubs}},
		},
		map[int]cardSpec{0: {12, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)

	err := s.RevealDeck(s.Seats[0].ID)
	require.ErrorIs(t, err, ErrIllegalMove)
	assert.Nil(t, s.RevealedDeckCard)
}

func TestStageOneDeckCardPlacesOnOpponentWithPriority(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{9, deck.Clubs}},
			1: {{8, deck.Diamonds}},
		},
		map[int]cardSpec{0: {7, deck.Spades}, 1: {2, deck.Hearts}},
		map[int]int{0: 2, 1: 2},
	)
	acting := s.Seats[0]

	require.NoError(t, s.RevealDeck(acting.ID))
	require.NotNil(t, s.RevealedDeckCard)

	// The 7S fits the opponent's 8D; self placement is not offered.
	err := s.PlaceDeckCardOnSelf(acting.ID)
	require.ErrorIs(t, err, ErrIllegalMove)

	require.NoError(t, s.PlaceDeckCardOnTarget(acting.ID, s.Seats[1].ID))
	assert.Equal(t, 7, s.Seats[1].TopCard().Rank)
	assert.Nil(t, s.RevealedDeckCard)

	// Placement on an opponent ends the turn.
	assert.Equal(t, 1, s.ActiveSeatIndex)
}

func TestStageOneDeckCardSelfPlacementKeepsTurn(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{9, deck.Clubs}},
			1: {{3, deck.Diamonds}},
		},
		map[int]cardSpec{0: {8, deck.Spades}, 1: {2, deck.Hearts}},
		map[int]int{0: 2, 1: 2},
	)
	acting := s.Seats[0]

	require.NoError(t, s.RevealDeck(acting.ID))
	require.NoError(t, s.PlaceDeckCardOnSelf(acting.ID))

	assert.Equal(t, 8, acting.TopCard().Rank)
	assert.Equal(t, 0, s.ActiveSeatIndex, "by-rule self placement grants another turn")

	// The fresh top card re-enters analysis; here nothing chains, so a new
	// reveal is legal immediately.
	require.NoError(t, s.RevealDeck(acting.ID))
}

func TestStageOneTakeNotByRule(t *testing.T) {
	s, mb := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{3, deck.Clubs}},
			1: {{7, deck.Diamonds}},
		},
		map[int]cardSpec{0: {2, deck.Hearts}, 1: {13, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)
	acting := s.Seats[0]

	require.NoError(t, s.RevealDeck(acting.ID))

	// A 2 fits only on an ace; nobody shows one, so the card fits nowhere.
	err := s.PlaceDeckCardOnSelf(acting.ID)
	require.ErrorIs(t, err, ErrIllegalMove)

	require.NoError(t, s.TakeDeckCardNotByRule(acting.ID))
	assert.Equal(t, 2, acting.TopCard().Rank)
	assert.Equal(t, 1, s.ActiveSeatIndex)

	taken := mb.eventsOfType(EventCardTaken)
	require.Len(t, taken, 1)
	assert.Equal(t, false, taken[0].Payload["byRule"])
}

func TestStageOneDeckDepletionDeterminesTrump(t *testing.T) {
	s, mb := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{3, deck.Clubs}},
			1: {{9, deck.Diamonds}},
		},
		map[int]cardSpec{0: {5, deck.Hearts}, 1: {2, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)

	// Seat 0: reveal 5H, fits nowhere, take it. Turn passes.
	require.NoError(t, s.RevealDeck(s.Seats[0].ID))
	require.NoError(t, s.TakeDeckCardNotByRule(s.Seats[0].ID))
	require.Equal(t, 1, s.ActiveSeatIndex)

	// Seat 1: reveal 2S (the last deck card), fits nowhere, take it. The deck
	// is now empty, so stage 2 begins immediately.
	require.NoError(t, s.RevealDeck(s.Seats[1].ID))
	require.NoError(t, s.TakeDeckCardNotByRule(s.Seats[1].ID))

	assert.Equal(t, StageTwo, s.CurrentStage())

	// The final reveal was a spade, so trump comes from the reveal before it.
	trump, ok := s.Trump()
	require.True(t, ok)
	assert.Equal(t, deck.Hearts, trump)

	transitions := mb.eventsOfType(EventStageTransition)
	require.Len(t, transitions, 1)
	assert.Equal(t, deck.Hearts, transitions[0].Payload["trump"])
}

func TestStageOneAllSpadeRevealsFreezeMatch(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{3, deck.Clubs}},
			1: {{9, deck.Diamonds}},
		},
		map[int]cardSpec{0: {5, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)

	require.NoError(t, s.RevealDeck(s.Seats[0].ID))
	require.NoError(t, s.TakeDeckCardNotByRule(s.Seats[0].ID))

	frozen, reason := s.Frozen()
	assert.True(t, frozen, "an all-spade reveal history has no trump")
	assert.NotEmpty(t, reason)

	err := s.PlayFromHand(s.Seats[1].ID, s.Seats[1].TopCard().ID)
	require.ErrorIs(t, err, ErrInvariant)
}
