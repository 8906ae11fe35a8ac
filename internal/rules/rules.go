// internal/rules/rules.go
//
// Pure legality predicates for both phases of P.I.D.R. play. These functions
// never mutate anything; callers that receive false must reject the move and
// leave the match state untouched.
package rules

import (
	"github.com/pidr-game/pidr-engine/internal/deck"
)

// CanChainPlace reports whether moving may be chain-placed onto ontoTop
// during stage 1. A card goes onto a card exactly one rank above it, with a
// single asymmetric exception: a 2 is legal only onto an Ace. A nil target
// (empty stack) accepts nothing by rule.
func CanChainPlace(moving, ontoTop *deck.Card) bool {
	if moving == nil || ontoTop == nil {
		return false
	}
	if moving.Rank == deck.MinRank {
		return ontoTop.Rank == deck.Ace
	}
	return moving.Rank == ontoTop.Rank-1
}

// CanBeat reports whether defender beats attacker during stage 2/3 play.
//
// Same suit: rank must be strictly higher. Off suit: only trump beats, and
// never against spades. Spades are a fixed non-trump suit with a hard rule:
// a spade attack is beaten only by a higher spade.
func CanBeat(attacker, defender *deck.Card, trump deck.Suit) bool {
	if attacker == nil || defender == nil {
		return false
	}
	if defender.Suit == attacker.Suit {
		return defender.Rank > attacker.Rank
	}
	if attacker.Suit == deck.Spades {
		return false
	}
	return defender.Suit == trump
}

// ChainTargets returns the indices of tops that moving may legally chain onto.
// Indices are returned in ascending order; the lowest-indexed target is the
// mandatory one during stage 1.
func ChainTargets(moving *deck.Card, tops []*deck.Card) []int {
	var targets []int
	for i, top := range tops {
		if CanChainPlace(moving, top) {
			targets = append(targets, i)
		}
	}
	return targets
}
