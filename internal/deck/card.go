// internal/deck/card.go
package deck

import (
	"fmt"

	"github.com/google/uuid"
)

// Suit is one of the four standard suits. Spades are special in stage 2/3
// play: a spade attack can only ever be beaten by a higher spade.
type Suit string

const (
	Spades   Suit = "S"
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
)

// Suits lists all four suits in a stable order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

var suitNames = map[Suit]string{
	Spades:   "Spades",
	Hearts:   "Hearts",
	Diamonds: "Diamonds",
	Clubs:    "Clubs",
}

func (s Suit) String() string {
	if name, ok := suitNames[s]; ok {
		return name
	}
	return string(s)
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	_, ok := suitNames[s]
	return ok
}

// Rank bounds. Jack=11, Queen=12, King=13, Ace=14.
const (
	MinRank = 2
	MaxRank = 14

	Jack  = 11
	Queen = 12
	King  = 13
	Ace   = 14
)

var rankNames = map[int]string{
	Jack: "J", Queen: "Q", King: "K", Ace: "A",
}

// RankName returns a short display name for a rank ("2".."10", "J", "Q", "K", "A").
func RankName(rank int) string {
	if n, ok := rankNames[rank]; ok {
		return n
	}
	return fmt.Sprintf("%d", rank)
}

// Card is a single playing card. Open is false only for stub cards before
// activation and deck cards before their reveal; every card on a stack or in
// an active hand is open.
//
// A Card is owned by exactly one container at a time. Moving a card between
// containers moves the pointer; a card is never copied.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Rank int       `json:"rank"`
	Suit Suit      `json:"suit"`
	Open bool      `json:"open"`
}

// NewCard builds a card with a fresh id.
func NewCard(rank int, suit Suit) *Card {
	id, _ := uuid.NewRandom()
	return &Card{ID: id, Rank: rank, Suit: suit}
}

func (c *Card) String() string {
	return RankName(c.Rank) + string(c.Suit)
}
