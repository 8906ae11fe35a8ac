// internal/rating/rating.go
//
// Place-based rating schedule for P.I.D.R. The delta depends only on the
// final place and table size, so every peer derives the same value locally.
package rating

// Podium and loser deltas.
const (
	firstDelta  = 50
	secondDelta = 25
	thirdDelta  = 10
	loserDelta  = -25
)

// DeltaForPlace returns the rating change for finishing at the given place
// on a table of seatCount seats. Mid-table places neither gain nor lose.
func DeltaForPlace(place, seatCount int) int {
	if place == seatCount {
		return loserDelta
	}
	switch place {
	case 1:
		return firstDelta
	case 2:
		return secondDelta
	case 3:
		return thirdDelta
	default:
		return 0
	}
}
