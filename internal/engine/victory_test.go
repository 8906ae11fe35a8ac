// internal/engine/victory_test.go
package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

func TestLastCardWinsHeadsUp(t *testing.T) {
	s, mb := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}},
		1: {{10, deck.Clubs}, {4, deck.Hearts}},
	}, nil, deck.Hearts)
	winner := s.Seats[0]

	done := make(chan []SeatResult, 1)
	s.OnMatchEnd = func(results []SeatResult) { done <- results }

	require.NoError(t, s.DeclareOneCard(winner.ID))
	require.NoError(t, s.PlayFromHand(winner.ID, winner.Hand[0].ID))

	assert.True(t, winner.IsWinner)
	require.NotNil(t, winner.FinishTime)
	assert.Equal(t, StageFinished, s.CurrentStage())

	var results []SeatResult
	select {
	case results = <-done:
	case <-time.After(time.Second):
		t.Fatal("OnMatchEnd never fired")
	}

	require.Len(t, results, 2)
	assert.Equal(t, winner.ID, results[0].SeatID)
	assert.Equal(t, 1, results[0].Place)
	assert.Equal(t, Reward{Coins: 350, RatingDelta: 50}, results[0].Reward)
	assert.Equal(t, 2, results[1].Place)
	assert.Equal(t, Reward{Coins: 5, RatingDelta: -25}, results[1].Reward)

	wonEvents := mb.eventsOfType(EventSeatWon)
	require.Len(t, wonEvents, 1)
	require.Len(t, mb.eventsOfType(EventMatchEnd), 1)

	// Nothing moves after match end.
	err := s.PlayFromHand(s.Seats[1].ID, s.Seats[1].Hand[0].ID)
	require.ErrorIs(t, err, ErrMatchOver)
}

func TestFinishOrderRanksPlaces(t *testing.T) {
	s, _ := setupMatch(t, 3)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{3, deck.Clubs}},
		1: {{10, deck.Clubs}},
		2: {{12, deck.Clubs}, {4, deck.Hearts}, {5, deck.Hearts}},
	}, nil, deck.Hearts)

	done := make(chan []SeatResult, 1)
	s.OnMatchEnd = func(results []SeatResult) { done <- results }
	require.NoError(t, s.DeclareOneCard(s.Seats[0].ID))
	require.NoError(t, s.DeclareOneCard(s.Seats[1].ID))

	// Seat 0 empties first and takes place 1. Its FinishTime must not move
	// when seat 1 finishes later.
	require.NoError(t, s.PlayFromHand(s.Seats[0].ID, s.Seats[0].Hand[0].ID))
	require.True(t, s.Seats[0].IsWinner)
	firstFinish := *s.Seats[0].FinishTime

	// Seat 1 beats with its last card and empties second. Two seats are now
	// out, so the match ends with seat 2 as the lone survivor.
	require.NoError(t, s.PlayFromHand(s.Seats[1].ID, s.Seats[1].Hand[0].ID))

	var results []SeatResult
	select {
	case results = <-done:
	case <-time.After(time.Second):
		t.Fatal("OnMatchEnd never fired")
	}

	assert.Equal(t, firstFinish, *s.Seats[0].FinishTime)
	assert.Equal(t, []uuid.UUID{s.Seats[0].ID, s.Seats[1].ID}, s.EliminationOrder)

	require.Len(t, results, 3)
	assert.Equal(t, s.Seats[0].ID, results[0].SeatID)
	assert.Equal(t, s.Seats[1].ID, results[1].SeatID)
	assert.Equal(t, s.Seats[2].ID, results[2].SeatID)
	assert.Equal(t, 250, results[1].Reward.Coins)
	assert.Equal(t, 25, results[1].Reward.RatingDelta)
	assert.Equal(t, 5, results[2].Reward.Coins)
}

func TestNoVictoryDuringStageOne(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigMatch(t, s,
		map[int][]cardSpec{
			0: {{5, deck.Hearts}},
			1: {{6, deck.Clubs}},
		},
		map[int]cardSpec{0: {12, deck.Spades}},
		map[int]int{0: 2, 1: 2},
	)
	// Seat 0 plays out its only hand card during stage 1.
	require.NoError(t, s.PlayFromHand(s.Seats[0].ID, s.Seats[0].TopCard().ID))

	assert.False(t, s.Seats[0].IsWinner, "stage 1 has no win condition")
	assert.Equal(t, StageOne, s.CurrentStage())
}

func TestMidTableCoinsDeterministic(t *testing.T) {
	matchID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	seatID := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

	a := midTableCoins(matchID, seatID)
	b := midTableCoins(matchID, seatID)
	assert.Equal(t, a, b, "same inputs, same coins, on every peer")
	assert.GreaterOrEqual(t, a, 10)
	assert.LessOrEqual(t, a, 149)

	other := uuid.MustParse("16fd2706-8baf-433b-82eb-8c7fada847da")
	assert.NotEqual(t, a, midTableCoins(matchID, other))
}

func TestRewardSchedule(t *testing.T) {
	matchID := uuid.New()
	seatID := uuid.New()

	assert.Equal(t, 350, rewardForPlace(1, 6, matchID, seatID).Coins)
	assert.Equal(t, 250, rewardForPlace(2, 6, matchID, seatID).Coins)
	assert.Equal(t, 150, rewardForPlace(3, 6, matchID, seatID).Coins)
	assert.Equal(t, 5, rewardForPlace(6, 6, matchID, seatID).Coins)
	assert.Equal(t, -25, rewardForPlace(6, 6, matchID, seatID).RatingDelta)

	mid := rewardForPlace(4, 6, matchID, seatID)
	assert.Equal(t, midTableCoins(matchID, seatID), mid.Coins)
	assert.Equal(t, 0, mid.RatingDelta)

	// Heads-up, second place is the loser even though place 2 normally pays.
	assert.Equal(t, 5, rewardForPlace(2, 2, matchID, seatID).Coins)
}
