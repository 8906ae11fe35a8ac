// internal/deck/deck.go
package deck

import (
	"math/rand"

	"github.com/google/uuid"
)

// DeckSize is the number of cards in play for an entire match.
const DeckSize = 52

// Pile is an ordered sequence of cards. The last element is the top card:
// the one exposed for placement and beating. The first element is the bottom.
type Pile []*Card

// New builds a full 52-card deck, shuffled with the given source.
// A nil source leaves the deck in construction order (useful in tests).
func New(r *rand.Rand) Pile {
	cards := make(Pile, 0, DeckSize)
	for _, suit := range Suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	if r != nil {
		r.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
	}
	return cards
}

// Top returns the exposed top card, or nil for an empty pile.
func (p Pile) Top() *Card {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// TakeTop removes and returns the top card, or nil for an empty pile.
func (p *Pile) TakeTop() *Card {
	if len(*p) == 0 {
		return nil
	}
	c := (*p)[len(*p)-1]
	*p = (*p)[:len(*p)-1]
	return c
}

// TakeBottom removes and returns the bottom card, or nil for an empty pile.
func (p *Pile) TakeBottom() *Card {
	if len(*p) == 0 {
		return nil
	}
	c := (*p)[0]
	*p = (*p)[1:]
	return c
}

// Push appends a card on top.
func (p *Pile) Push(c *Card) {
	*p = append(*p, c)
}

// Remove takes the card with the given id out of the pile, preserving order.
// It returns nil if the card is not present.
func (p *Pile) Remove(id uuid.UUID) *Card {
	for i, c := range *p {
		if c.ID == id {
			*p = append((*p)[:i], (*p)[i+1:]...)
			return c
		}
	}
	return nil
}

// Find returns the card with the given id without removing it.
func (p Pile) Find(id uuid.UUID) *Card {
	for _, c := range p {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// MoveTop transfers the top card of p onto dst. It reports whether a card
// actually moved. The transfer removes the card from exactly one container
// and appends it to exactly one other; the pointer itself migrates.
func (p *Pile) MoveTop(dst *Pile) bool {
	c := p.TakeTop()
	if c == nil {
		return false
	}
	dst.Push(c)
	return true
}
