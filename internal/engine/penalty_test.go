// internal/engine/penalty_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

func TestDeclareRequiresExactlyOneCard(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
	}, nil, deck.Hearts)

	err := s.DeclareOneCard(s.Seats[0].ID)
	require.ErrorIs(t, err, ErrDeclareState)

	require.NoError(t, s.DeclareOneCard(s.Seats[1].ID))
	assert.True(t, s.OneCardDeclared[s.Seats[1].ID])

	// Declaring twice is a harmless no-op.
	require.NoError(t, s.DeclareOneCard(s.Seats[1].ID))
}

func TestDeclarationClearsWhenHandGrows(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
	}, nil, deck.Hearts)
	declared := s.Seats[1]
	require.NoError(t, s.DeclareOneCard(declared.ID))

	// Seat 0 opens with the 9C; seat 1 takes the bottom card instead of
	// beating, growing its hand past one.
	require.NoError(t, s.PlayFromHand(s.Seats[0].ID, s.Seats[0].Hand[1].ID))
	require.NoError(t, s.TakeTableBottomCard(declared.ID))

	assert.Len(t, declared.Hand, 2)
	assert.False(t, s.OneCardDeclared[declared.ID], "a grown hand voids the declaration")
}

func TestAskCatchesUndeclaredSingleCard(t *testing.T) {
	s, mb := setupMatch(t, 3)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
		2: {{12, deck.Clubs}, {4, deck.Hearts}},
	}, nil, deck.Hearts)
	target := s.Seats[1]

	count, err := s.AskHowManyCards(s.Seats[0].ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NotNil(t, s.PendingPenaltyInfo(), "an undeclared single card starts a penalty")

	// The match is paused: the active seat's ordinary command is refused.
	err = s.PlayFromHand(s.Seats[0].ID, s.Seats[0].Hand[0].ID)
	require.ErrorIs(t, err, ErrMatchPaused)

	started := mb.eventsOfType(EventPenaltyStarted)
	require.Len(t, started, 1)

	// Both other seats owe exactly one card each.
	p := s.PendingPenaltyInfo()
	assert.Equal(t, 1, p.Quota[s.Seats[0].ID])
	assert.Equal(t, 1, p.Quota[s.Seats[2].ID])

	handBefore := len(target.Hand)
	require.NoError(t, s.ContributePenaltyCard(s.Seats[0].ID, s.Seats[0].Hand[0].ID, target.ID))
	require.NotNil(t, s.PendingPenaltyInfo(), "pause holds until every quota is met")

	require.NoError(t, s.ContributePenaltyCard(s.Seats[2].ID, s.Seats[2].Hand[0].ID, target.ID))
	require.Nil(t, s.PendingPenaltyInfo())
	assert.Equal(t, handBefore+2, len(target.Hand))

	// Play resumes with the seat that was active before the pause.
	assert.Equal(t, 0, s.ActiveSeatIndex)
	require.NoError(t, s.PlayFromHand(s.Seats[0].ID, s.Seats[0].Hand[0].ID))

	ended := mb.eventsOfType(EventPenaltyEnded)
	require.Len(t, ended, 1)
}

func TestAskDeclaredSeatIsInformational(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
	}, nil, deck.Hearts)
	require.NoError(t, s.DeclareOneCard(s.Seats[1].ID))

	count, err := s.AskHowManyCards(s.Seats[0].ID, s.Seats[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, s.PendingPenaltyInfo(), "a declared seat pays no penalty")
}

func TestAskMultiCardSeatIsInformational(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}, {4, deck.Hearts}},
	}, nil, deck.Hearts)

	count, err := s.AskHowManyCards(s.Seats[0].ID, s.Seats[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Nil(t, s.PendingPenaltyInfo())
}

func TestContributionValidation(t *testing.T) {
	s, _ := setupMatch(t, 3)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
		2: {{12, deck.Clubs}, {4, deck.Hearts}},
	}, nil, deck.Hearts)
	target := s.Seats[1]

	_, err := s.AskHowManyCards(s.Seats[0].ID, target.ID)
	require.NoError(t, err)
	require.NotNil(t, s.PendingPenaltyInfo())

	// The target itself is not a contributor.
	err = s.ContributePenaltyCard(target.ID, target.Hand[0].ID, target.ID)
	require.ErrorIs(t, err, ErrIllegalMove)

	// Donations go to penalty targets only.
	err = s.ContributePenaltyCard(s.Seats[0].ID, s.Seats[0].Hand[0].ID, s.Seats[2].ID)
	require.ErrorIs(t, err, ErrIllegalMove)

	// A card the contributor does not hold is refused.
	err = s.ContributePenaltyCard(s.Seats[0].ID, target.Hand[0].ID, target.ID)
	require.ErrorIs(t, err, ErrUnknownCard)

	// A met quota refuses further donations.
	require.NoError(t, s.ContributePenaltyCard(s.Seats[0].ID, s.Seats[0].Hand[0].ID, target.ID))
	err = s.ContributePenaltyCard(s.Seats[0].ID, s.Seats[0].Hand[0].ID, target.ID)
	require.ErrorIs(t, err, ErrIllegalMove)
}

func TestDeclareAllowedDuringPause(t *testing.T) {
	s, _ := setupMatch(t, 3)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
		2: {{12, deck.Clubs}, {4, deck.Hearts}},
	}, nil, deck.Hearts)
	target := s.Seats[1]

	_, err := s.AskHowManyCards(s.Seats[0].ID, target.ID)
	require.NoError(t, err)
	require.NotNil(t, s.PendingPenaltyInfo())

	// Seat 2 donates down to one card and may declare mid-pause.
	require.NoError(t, s.ContributePenaltyCard(s.Seats[2].ID, s.Seats[2].Hand[0].ID, target.ID))
	require.Len(t, s.Seats[2].Hand, 1)
	require.NoError(t, s.DeclareOneCard(s.Seats[2].ID))
	assert.True(t, s.OneCardDeclared[s.Seats[2].ID])
}

func TestAskDuringPauseIsCountOnly(t *testing.T) {
	s, _ := setupMatch(t, 3)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
		2: {{12, deck.Clubs}},
	}, nil, deck.Hearts)

	_, err := s.AskHowManyCards(s.Seats[0].ID, s.Seats[1].ID)
	require.NoError(t, err)
	p := s.PendingPenaltyInfo()
	require.NotNil(t, p)

	// Seat 2 also holds an undeclared single card, but one episode resolves
	// at a time: the second ask only reports the count.
	count, err := s.AskHowManyCards(s.Seats[0].ID, s.Seats[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, p.Targets, s.PendingPenaltyInfo().Targets)
}

func TestPenaltySkippedWhenNobodyCanDonate(t *testing.T) {
	s, _ := setupMatch(t, 2)
	rigStageTwo(t, s, map[int][]cardSpec{
		0: {{6, deck.Clubs}, {9, deck.Clubs}},
		1: {{10, deck.Clubs}},
	}, map[int]int{0: 2}, deck.Hearts)

	// Strip seat 0's hand so only its closed stub remains; conservation is
	// preserved by parking the cards on the discard.
	for len(s.Seats[0].Hand) > 0 {
		s.Seats[0].Hand.MoveTop(&s.Discard)
	}

	_, err := s.AskHowManyCards(s.Seats[0].ID, s.Seats[1].ID)
	require.NoError(t, err)
	assert.Nil(t, s.PendingPenaltyInfo(), "no contributor holds a card, so no pause")
}
