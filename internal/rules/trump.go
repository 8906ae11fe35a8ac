// internal/rules/trump.go
package rules

import (
	"errors"

	"github.com/pidr-game/pidr-engine/internal/deck"
)

// ErrAllSpadesHistory is returned when every revealed deck card was a spade,
// leaving no suit that may serve as trump. This is an engine-level invariant
// violation, not a player error: callers must freeze the match rather than
// default silently.
var ErrAllSpadesHistory = errors.New("trump undeterminable: every revealed card was a spade")

// DetermineTrump derives the trump suit from the full history of deck
// reveals, oldest first. Trump is the suit of the most recently revealed
// non-spade card; spades can never be trump.
func DetermineTrump(reveals []*deck.Card) (deck.Suit, error) {
	for i := len(reveals) - 1; i >= 0; i-- {
		if reveals[i] == nil {
			continue
		}
		if reveals[i].Suit != deck.Spades {
			return reveals[i].Suit, nil
		}
	}
	return "", ErrAllSpadesHistory
}
