package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// CardKind is the type of a card
type CardKind string

const (
	Speed   CardKind = "speed"
	Upgrade CardKind = "upgrade"
	Heat    CardKind = "heat"
	Stress  CardKind = "stress"

	// HandSize is the number of cards a player holds after redrawing
	HandSize = 7
	MinGear  = 1
	MaxGear  = 4
)

// Card is a single card. Only speed and upgrade cards carry a value.
type Card struct {
	Kind  CardKind `json:"kind"`
	Value int      `json:"value"`
}

// SpeedCard returns a speed card with the given value
func SpeedCard(v int) Card { return Card{Kind: Speed, Value: v} }

// UpgradeCard returns an upgrade card with the given value
func UpgradeCard(v int) Card { return Card{Kind: Upgrade, Value: v} }

// HeatCard returns a heat card
func HeatCard() Card { return Card{Kind: Heat} }

// StressCard returns a stress card
func StressCard() Card { return Card{Kind: Stress} }

// Moves reports whether the card contributes movement when played
func (c Card) Moves() bool {
	return c.Kind == Speed || c.Kind == Upgrade
}

func (c Card) String() string {
	switch c.Kind {
	case Speed:
		return "s" + strconv.Itoa(c.Value)
	case Upgrade:
		return "u" + strconv.Itoa(c.Value)
	default:
		return string(c.Kind)
	}
}

// ParseCard parses the compact token form used in map files:
// "s<N>" speed, "u<N>" upgrade, "heat" and "stress".
func ParseCard(token string) (Card, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "heat":
		return HeatCard(), nil
	case "stress":
		return StressCard(), nil
	}
	if len(t) < 2 {
		return Card{}, fmt.Errorf("unknown card token %q", token)
	}
	v, err := strconv.Atoi(t[1:])
	if err != nil || v < 0 {
		return Card{}, fmt.Errorf("unknown card token %q", token)
	}
	switch t[0] {
	case 's':
		return SpeedCard(v), nil
	case 'u':
		return UpgradeCard(v), nil
	}
	return Card{}, fmt.Errorf("unknown card token %q", token)
}

// ParseCards parses a list of card tokens in order
func ParseCards(tokens []string) ([]Card, error) {
	cards := make([]Card, 0, len(tokens))
	for i, tok := range tokens {
		c, err := ParseCard(tok)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// ShuffleFunc returns the given cards in a new order. It may reorder in place.
type ShuffleFunc func(cards []Card) []Card

// IdentityShuffle keeps the card order. Used for deterministic games.
func IdentityShuffle(cards []Card) []Card {
	return cards
}

// RandomShuffle returns a ShuffleFunc backed by rng
func RandomShuffle(rng *rand.Rand) ShuffleFunc {
	return func(cards []Card) []Card {
		rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		return cards
	}
}

// sumSpeed adds the values of every card that moves
func sumSpeed(cards []Card) int {
	return lo.SumBy(cards, func(c Card) int {
		if c.Moves() {
			return c.Value
		}
		return 0
	})
}

func countKind(cards []Card, kind CardKind) int {
	return lo.CountBy(cards, func(c Card) bool { return c.Kind == kind })
}

func indexOfKind(cards []Card, kind CardKind) int {
	_, idx, ok := lo.FindIndexOf(cards, func(c Card) bool { return c.Kind == kind })
	if !ok {
		return -1
	}
	return idx
}
