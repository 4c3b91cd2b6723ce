package engine

import (
	"fmt"
	"slices"
)

// Reactions is the set of reactions a player may still use this resolution
type Reactions uint8

const (
	ReactionCooldown Reactions = 1 << iota
	ReactionBoost
)

// Has reports whether every reaction in r is in the set
func (s Reactions) Has(r Reactions) bool { return s&r == r }

// ReactChoice is a player's choice in the react sub-state
type ReactChoice string

const (
	ChoiceSkip     ReactChoice = "skip"
	ChoiceCooldown ReactChoice = "cooldown"
	ChoiceBoost    ReactChoice = "boost"
)

// PlayerInfo identifies a participant at game creation
type PlayerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Player holds one participant's card zones, car state and race progress.
// It is owned and mutated by Game only.
type Player struct {
	ID          string
	DisplayName string

	Gear       int
	Position   int
	OnRaceline bool

	Deck    []Card
	Hand    []Card
	Played  []Card
	Discard []Card
	Engine  []Card

	HasAdrenaline bool

	// Resolution scratch state
	StartPosition      int
	CardSpeed          int
	AvailableCooldowns int
	Reactions          Reactions

	Lap      int
	Finished bool

	// StartingCards is the card total once the game dealt the opening hand.
	// PenaltyStress counts stress cards added by spinouts since then.
	StartingCards int
	PenaltyStress int

	shuffle ShuffleFunc
}

// newPlayer builds a player with a shuffled copy of deck and heat cards in the engine
func newPlayer(info PlayerInfo, deck []Card, heat int, shuffle ShuffleFunc) *Player {
	own := make([]Card, len(deck))
	copy(own, deck)
	engine := make([]Card, heat)
	for i := range engine {
		engine[i] = HeatCard()
	}
	return &Player{
		ID:          info.ID,
		DisplayName: info.DisplayName,
		Gear:        MinGear,
		Deck:        shuffle(own),
		Engine:      engine,
		Lap:         1,
		shuffle:     shuffle,
	}
}

// CardCount returns the number of cards across all zones
func (p *Player) CardCount() int {
	return len(p.Deck) + len(p.Hand) + len(p.Played) + len(p.Discard) + len(p.Engine)
}

// Draw refills the hand to HandSize, reshuffling the discard pile into the
// deck when the deck runs out.
func (p *Player) Draw() error {
	for len(p.Hand) < HandSize {
		c, err := p.drawOne()
		if err != nil {
			return fmt.Errorf("%w: player %s holds %d cards", err, p.ID, len(p.Hand))
		}
		p.Hand = append(p.Hand, c)
	}
	return nil
}

func (p *Player) drawOne() (Card, error) {
	if len(p.Deck) == 0 {
		if len(p.Discard) == 0 {
			return Card{}, ErrOutOfCards
		}
		p.Deck = p.shuffle(p.Discard)
		p.Discard = nil
	}
	c := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	return c, nil
}

// ShiftGears moves to next. Shifting by two costs one heat from the engine.
func (p *Player) ShiftGears(next int) error {
	if next < MinGear || next > MaxGear {
		return fmt.Errorf("%w: gear %d is outside %d-%d", ErrIllegalShift, next, MinGear, MaxGear)
	}
	diff := abs(next - p.Gear)
	if diff > 2 {
		return fmt.Errorf("%w: %d to %d", ErrIllegalShift, p.Gear, next)
	}
	if diff == 2 {
		if p.PayHeat(1) == 0 {
			return ErrNoHeatForShift
		}
	}
	p.Gear = next
	return nil
}

// PlayCards moves the hand cards at indices to played. Exactly Gear cards must be chosen.
func (p *Player) PlayCards(indices []int) error {
	if len(indices) != p.Gear {
		return fmt.Errorf("%w: gear %d needs %d cards, got %d", ErrWrongCardCount, p.Gear, p.Gear, len(indices))
	}
	if err := p.checkIndices(indices); err != nil {
		return err
	}
	p.Played = append(p.Played, p.takeFromHand(indices)...)
	return nil
}

// DiscardCards discards the chosen hand cards together with everything played
func (p *Player) DiscardCards(indices []int) error {
	if err := p.checkIndices(indices); err != nil {
		return err
	}
	for _, i := range indices {
		switch p.Hand[i].Kind {
		case Heat:
			return fmt.Errorf("%w: index %d", ErrCannotDiscardHeat, i)
		case Stress:
			return fmt.Errorf("%w: index %d", ErrCannotDiscardStress, i)
		}
	}
	p.Discard = append(p.Discard, p.takeFromHand(indices)...)
	p.Discard = append(p.Discard, p.Played...)
	p.Played = nil
	return nil
}

func (p *Player) checkIndices(indices []int) error {
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(p.Hand) {
			return fmt.Errorf("%w: %d not in hand of %d", ErrInvalidIndex, i, len(p.Hand))
		}
		if seen[i] {
			return fmt.Errorf("%w: %d chosen twice", ErrInvalidIndex, i)
		}
		seen[i] = true
	}
	return nil
}

// takeFromHand removes the cards at indices and returns them in the given order.
// Removal runs from the highest index down so earlier removals don't shift later ones.
func (p *Player) takeFromHand(indices []int) []Card {
	taken := make([]Card, 0, len(indices))
	for _, i := range indices {
		taken = append(taken, p.Hand[i])
	}
	desc := slices.Clone(indices)
	slices.Sort(desc)
	slices.Reverse(desc)
	for _, i := range desc {
		p.Hand = slices.Delete(p.Hand, i, i+1)
	}
	return taken
}

// PayHeat moves up to amount heat cards from the engine to the discard pile
// and returns how many were paid.
func (p *Player) PayHeat(amount int) int {
	paid := 0
	for paid < amount && len(p.Engine) > 0 {
		last := len(p.Engine) - 1
		p.Discard = append(p.Discard, p.Engine[last])
		p.Engine = p.Engine[:last]
		paid++
	}
	return paid
}

// Cooldown moves up to amount heat cards from the hand back to the engine
func (p *Player) Cooldown(amount int) int {
	cooled := 0
	for cooled < amount {
		idx := indexOfKind(p.Hand, Heat)
		if idx < 0 {
			break
		}
		p.Engine = append(p.Engine, p.Hand[idx])
		p.Hand = slices.Delete(p.Hand, idx, idx+1)
		cooled++
	}
	return cooled
}

// cooldownsForGear is the number of cooldown reactions granted at gear
func cooldownsForGear(gear int) int {
	switch gear {
	case 1:
		return 3
	case 2:
		return 1
	default:
		return 0
	}
}

// BeginResolution stages this turn's movement: it snapshots the start
// position, grants reactions, replaces played stress cards and computes the
// card speed. Position is not changed until ConfirmMove.
func (p *Player) BeginResolution() {
	p.StartPosition = p.Position
	p.AvailableCooldowns = cooldownsForGear(p.Gear)
	p.Reactions = ReactionBoost
	if p.AvailableCooldowns > 0 {
		p.Reactions |= ReactionCooldown
	}
	p.resolveStress()
	p.CardSpeed = sumSpeed(p.Played)
}

// resolveStress draws a replacement for each played stress card. Heat and
// stress draws are discarded and drawing continues until a card that moves
// turns up or nothing is left to draw.
func (p *Player) resolveStress() {
	for range countKind(p.Played, Stress) {
		c, ok := p.drawUntil(Card.Moves)
		if !ok {
			return
		}
		p.Played = append(p.Played, c)
	}
}

// drawUntil draws until match accepts a card, discarding the rest. It gives up
// after one pass over the cards that were drawable when it started.
func (p *Player) drawUntil(match func(Card) bool) (Card, bool) {
	for budget := len(p.Deck) + len(p.Discard); budget > 0; budget-- {
		c, err := p.drawOne()
		if err != nil {
			return Card{}, false
		}
		if match(c) {
			return c, true
		}
		p.Discard = append(p.Discard, c)
	}
	return Card{}, false
}

// ConfirmMove applies the staged movement
func (p *Player) ConfirmMove() {
	p.Position = p.StartPosition + p.CardSpeed
}

// HasViableReaction reports whether a granted reaction can actually be used:
// cooldown needs a heat card in hand, boost needs a heat card in the engine.
func (p *Player) HasViableReaction() bool {
	return p.canCooldown() || p.canBoost()
}

func (p *Player) canCooldown() bool {
	return p.Reactions.Has(ReactionCooldown) && p.AvailableCooldowns > 0 && countKind(p.Hand, Heat) > 0
}

func (p *Player) canBoost() bool {
	return p.Reactions.Has(ReactionBoost) && len(p.Engine) > 0
}

// React applies a reaction and reports whether another viable reaction remains
func (p *Player) React(choice ReactChoice) (bool, error) {
	switch choice {
	case ChoiceSkip:
		p.Reactions = 0
		p.AvailableCooldowns = 0
		return false, nil

	case ChoiceCooldown:
		if !p.canCooldown() {
			return false, fmt.Errorf("%w: cooldown", ErrReactionUnavailable)
		}
		p.AvailableCooldowns--
		if p.AvailableCooldowns == 0 {
			p.Reactions &^= ReactionCooldown
		}
		p.Cooldown(1)

	case ChoiceBoost:
		if !p.Reactions.Has(ReactionBoost) {
			return false, fmt.Errorf("%w: boost", ErrReactionUnavailable)
		}
		if len(p.Engine) == 0 {
			return false, ErrNoHeatToBoost
		}
		p.PayHeat(1)
		p.Reactions &^= ReactionBoost
		if c, ok := p.drawUntil(func(c Card) bool { return c.Kind == Speed }); ok {
			p.Played = append(p.Played, c)
			p.Position += c.Value
			p.CardSpeed += c.Value
		}

	default:
		return false, fmt.Errorf("%w: unknown reaction %q", ErrInvalidAction, choice)
	}
	return p.HasViableReaction(), nil
}

// CheckCorners charges heat for every corner crossed this turn above its
// limit. A player who cannot pay in full spins out at that corner and no
// further corners are checked. It reports whether a spinout happened.
func (p *Player) CheckCorners(track Track) bool {
	for _, c := range track.CornersBetween(p.StartPosition, p.Position) {
		if p.CardSpeed <= c.Limit {
			continue
		}
		penalty := p.CardSpeed - c.Limit
		if p.PayHeat(penalty) < penalty {
			p.SpinOut(c.Position)
			return true
		}
	}
	return false
}

// SpinOut puts stress into the hand, drops to first gear and parks the car
// just before the corner.
func (p *Player) SpinOut(cornerPosition int) {
	stress := 1
	if p.Gear >= 3 {
		stress = 2
	}
	for range stress {
		p.Hand = append(p.Hand, StressCard())
	}
	p.PenaltyStress += stress
	p.Gear = MinGear
	p.Position = cornerPosition - 1
}

// ResolveCollision moves the player back to the highest cell at or below its
// position that holds fewer than two other cars and picks the free lane.
func (p *Player) ResolveCollision(others []*Player) {
	for cell := p.Position; ; cell-- {
		var occupant *Player
		count := 0
		for _, o := range others {
			if o.Position == cell {
				occupant = o
				count++
			}
		}
		if count >= 2 {
			continue
		}
		p.Position = cell
		p.OnRaceline = occupant == nil || !occupant.OnRaceline
		return
	}
}

// CanSlipstream reports whether another car sits on this cell or the next one
func (p *Player) CanSlipstream(others []*Player) bool {
	for _, o := range others {
		if o.Position == p.Position || o.Position == p.Position+1 {
			return true
		}
	}
	return false
}

// UpdateRaceProgress recomputes the lap and reports whether the player just finished
func (p *Player) UpdateRaceProgress(track Track, laps int) bool {
	p.Lap = track.Lap(p.Position)
	if !p.Finished && p.Position >= track.Length*laps {
		p.Finished = true
		return true
	}
	return false
}

// EndResolution clears the per-turn reaction scratch state
func (p *Player) EndResolution() {
	p.Reactions = 0
	p.AvailableCooldowns = 0
}

func (p *Player) clone() *Player {
	c := *p
	c.Deck = slices.Clone(p.Deck)
	c.Hand = slices.Clone(p.Hand)
	c.Played = slices.Clone(p.Played)
	c.Discard = slices.Clone(p.Discard)
	c.Engine = slices.Clone(p.Engine)
	return &c
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
