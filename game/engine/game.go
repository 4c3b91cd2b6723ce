package engine

import (
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"time"
)

// Phase is the coarse stage of a race
type Phase string

const (
	PhasePlanning   Phase = "planning"
	PhaseResolution Phase = "resolution"
	PhaseFinished   Phase = "finished"
)

// SubState is the step the game is waiting on. Each player-facing sub-state
// accepts exactly the action of the same name.
type SubState string

const (
	StatePlan       SubState = "plan"
	StateMove       SubState = "move"
	StateAdrenaline SubState = "adrenaline"
	StateReact      SubState = "react"
	StateSlipstream SubState = "slipstream"
	StateDiscard    SubState = "discard"
	StateFinished   SubState = "finished"
)

const (
	// SlipstreamDistance is the bonus movement for drafting
	SlipstreamDistance = 2
	// LargeFieldSize is the player count from which two adrenaline slots are handed out
	LargeFieldSize = 5
)

// Game is the aggregate root of one race. It owns all players and is the only
// place their state changes.
type Game struct {
	config  *MapConfig
	track   Track
	laps    int
	shuffle ShuffleFunc

	players map[string]*Player
	order   []string // creation order

	turn    int
	phase   Phase
	state   SubState
	pending map[string]bool

	turnOrder       []string
	current         int
	adrenalineSlots int

	finishOrder   []string
	raceFinishing bool
}

// Option configures a Game at construction
type Option func(*Game)

// WithLaps overrides the map's lap count
func WithLaps(laps int) Option {
	return func(g *Game) {
		if laps > 0 {
			g.laps = laps
		}
	}
}

// WithShuffle sets the shuffle used for every deck in the game
func WithShuffle(fn ShuffleFunc) Option {
	return func(g *Game) {
		if fn != nil {
			g.shuffle = fn
		}
	}
}

// NewGame creates a race on the given map. Players line up two per cell in
// the given order, draw their opening hands and the trailing players receive
// adrenaline for the first turn.
func NewGame(players []PlayerInfo, config *MapConfig, opts ...Option) (*Game, error) {
	if err := ValidateMapConfig(config); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	if len(players) > MaxPlayers {
		return nil, fmt.Errorf("%w: %d players, at most %d", ErrTooManyPlayers, len(players), MaxPlayers)
	}

	g := &Game{
		config:  config,
		track:   NewTrack(config),
		laps:    config.Laps,
		shuffle: RandomShuffle(rand.New(rand.NewSource(time.Now().UnixNano()))),
		players: make(map[string]*Player, len(players)),
		turn:    1,
		phase:   PhasePlanning,
		state:   StatePlan,
	}
	if g.laps <= 0 {
		g.laps = DefaultLaps
	}
	for _, opt := range opts {
		opt(g)
	}

	deck, err := ParseCards(config.Deck)
	if err != nil {
		return nil, err
	}

	for i, info := range players {
		if info.ID == "" {
			return nil, fmt.Errorf("%w: player %d has no id", ErrInvalidPlayerID, i+1)
		}
		if _, exists := g.players[info.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayerID, info.ID)
		}
		p := newPlayer(info, deck, config.Engine, g.shuffle)
		p.Position = -(i / 2)
		p.OnRaceline = i%2 == 0
		if err := p.Draw(); err != nil {
			return nil, err
		}
		p.StartingCards = p.CardCount()
		g.players[info.ID] = p
		g.order = append(g.order, info.ID)
	}

	g.adrenalineSlots = 1
	if len(players) >= LargeFieldSize {
		g.adrenalineSlots = 2
	}
	g.resetPending()
	g.turnOrder = g.RaceOrder()
	g.assignAdrenaline()

	return g, nil
}

// Dispatch validates and applies one action for playerID. On error the game
// is left exactly as it was before the call.
func (g *Game) Dispatch(playerID string, action Action) error {
	if action == nil {
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if g.phase == PhaseFinished {
		return ErrRaceFinished
	}
	p, ok := g.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if err := g.checkTurn(p, action.Type()); err != nil {
		return err
	}

	snapshot := g.clone()
	if err := g.apply(p, action); err != nil {
		*g = *snapshot
		return err
	}
	return nil
}

// checkTurn rejects actions for the wrong sub-state or the wrong player
func (g *Game) checkTurn(p *Player, t ActionType) error {
	if SubState(t) != g.state {
		return fmt.Errorf("%w: %s while waiting for %s", ErrWrongAction, t, g.state)
	}
	if g.state == StatePlan {
		if !g.pending[p.ID] {
			return fmt.Errorf("%w: %s", ErrAlreadyActed, p.ID)
		}
		return nil
	}
	if g.turnOrder[g.current] != p.ID {
		return fmt.Errorf("%w: waiting for %s", ErrNotYourTurn, g.turnOrder[g.current])
	}
	return nil
}

func (g *Game) apply(p *Player, action Action) error {
	switch a := action.(type) {
	case PlanAction:
		return g.plan(p, a)
	case MoveAction:
		return g.move(p)
	case AdrenalineAction:
		return g.adrenaline(p, a)
	case ReactAction:
		return g.react(p, a)
	case SlipstreamAction:
		return g.slipstream(p, a)
	case DiscardAction:
		return g.discard(p, a)
	default:
		return fmt.Errorf("%w: %T", ErrInvalidAction, action)
	}
}

func (g *Game) plan(p *Player, a PlanAction) error {
	if err := p.ShiftGears(a.Gear); err != nil {
		return err
	}
	if err := p.PlayCards(a.CardIndices); err != nil {
		return err
	}
	delete(g.pending, p.ID)
	if len(g.pending) == 0 {
		g.phase = PhaseResolution
		g.turnOrder = g.RaceOrder()
		g.current = 0
		g.enterMove()
	}
	return nil
}

// enterMove stages the current player's movement and waits for the acknowledgment
func (g *Game) enterMove() {
	g.state = StateMove
	g.players[g.turnOrder[g.current]].BeginResolution()
}

func (g *Game) move(p *Player) error {
	p.ConfirmMove()
	if p.HasAdrenaline {
		g.state = StateAdrenaline
		return nil
	}
	g.afterAdrenaline(p)
	return nil
}

func (g *Game) adrenaline(p *Player, a AdrenalineAction) error {
	if a.AcceptMove {
		p.Position++
		p.CardSpeed++
	}
	if a.AcceptCooldown {
		p.AvailableCooldowns++
		p.Reactions |= ReactionCooldown
	}
	g.afterAdrenaline(p)
	return nil
}

func (g *Game) afterAdrenaline(p *Player) {
	if p.HasViableReaction() {
		g.state = StateReact
		return
	}
	g.afterReactions(p)
}

func (g *Game) react(p *Player, a ReactAction) error {
	more, err := p.React(a.Choice)
	if err != nil {
		return err
	}
	if !more {
		g.afterReactions(p)
	}
	return nil
}

func (g *Game) afterReactions(p *Player) {
	p.Reactions = 0
	if p.CanSlipstream(g.others(p)) {
		g.state = StateSlipstream
		return
	}
	g.finishMovement(p)
}

func (g *Game) slipstream(p *Player, a SlipstreamAction) error {
	if a.Use {
		if !p.CanSlipstream(g.others(p)) {
			return ErrSlipstreamUnavailable
		}
		p.Position += SlipstreamDistance
	}
	g.finishMovement(p)
	return nil
}

// finishMovement settles the final cell: collisions, then corners, then race progress.
// A spinout moves the car again so collisions are resolved once more.
func (g *Game) finishMovement(p *Player) {
	others := g.others(p)
	p.ResolveCollision(others)
	if p.CheckCorners(g.track) {
		p.ResolveCollision(others)
	}
	if p.UpdateRaceProgress(g.track, g.laps) {
		g.finishOrder = append(g.finishOrder, p.ID)
		g.raceFinishing = true
	}
	g.state = StateDiscard
}

func (g *Game) discard(p *Player, a DiscardAction) error {
	if err := p.DiscardCards(a.CardIndices); err != nil {
		return err
	}
	if err := p.Draw(); err != nil {
		return err
	}
	p.EndResolution()

	g.current++
	if g.current < len(g.turnOrder) {
		g.enterMove()
		return nil
	}

	if g.raceFinishing {
		g.finishRace()
		return nil
	}

	g.assignAdrenaline()
	g.turn++
	g.phase = PhasePlanning
	g.state = StatePlan
	g.current = 0
	g.resetPending()
	return nil
}

func (g *Game) finishRace() {
	sort.SliceStable(g.finishOrder, func(i, j int) bool {
		return g.ahead(g.players[g.finishOrder[i]], g.players[g.finishOrder[j]])
	})
	g.phase = PhaseFinished
	g.state = StateFinished
}

// assignAdrenaline clears adrenaline and hands it to the trailing players in race order
func (g *Game) assignAdrenaline() {
	for _, p := range g.players {
		p.HasAdrenaline = false
	}
	order := g.RaceOrder()
	n := min(g.adrenalineSlots, len(order))
	for _, id := range order[len(order)-n:] {
		g.players[id].HasAdrenaline = true
	}
}

func (g *Game) resetPending() {
	g.pending = make(map[string]bool, len(g.order))
	for _, id := range g.order {
		g.pending[id] = true
	}
}

// ahead orders cars by position, the raceline car first on a shared cell
func (g *Game) ahead(a, b *Player) bool {
	if a.Position != b.Position {
		return a.Position > b.Position
	}
	return a.OnRaceline && !b.OnRaceline
}

// RaceOrder returns player ids from leader to last
func (g *Game) RaceOrder() []string {
	ids := slices.Clone(g.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return g.ahead(g.players[ids[i]], g.players[ids[j]])
	})
	return ids
}

// Winner returns the first finisher once the race is over
func (g *Game) Winner() (string, bool) {
	if g.phase != PhaseFinished || len(g.finishOrder) == 0 {
		return "", false
	}
	return g.finishOrder[0], true
}

// CurrentPlayer returns the id of the player resolving now, or "" while planning
func (g *Game) CurrentPlayer() string {
	if g.phase != PhaseResolution {
		return ""
	}
	return g.turnOrder[g.current]
}

// ValidActions returns the action types playerID may submit right now
func (g *Game) ValidActions(playerID string) []ActionType {
	p, ok := g.players[playerID]
	if !ok || g.phase == PhaseFinished {
		return nil
	}
	switch g.state {
	case StatePlan:
		if g.pending[p.ID] {
			return []ActionType{ActionPlan}
		}
		return nil
	default:
		if g.turnOrder[g.current] == p.ID {
			return []ActionType{ActionType(g.state)}
		}
		return nil
	}
}

func (g *Game) others(p *Player) []*Player {
	others := make([]*Player, 0, len(g.order)-1)
	for _, id := range g.order {
		if id != p.ID {
			others = append(others, g.players[id])
		}
	}
	return others
}

// clone deep-copies the mutable game state. Config and shuffle are shared.
func (g *Game) clone() *Game {
	c := *g
	c.players = make(map[string]*Player, len(g.players))
	for id, p := range g.players {
		c.players[id] = p.clone()
	}
	c.order = slices.Clone(g.order)
	c.pending = make(map[string]bool, len(g.pending))
	for id, v := range g.pending {
		c.pending[id] = v
	}
	c.turnOrder = slices.Clone(g.turnOrder)
	c.finishOrder = slices.Clone(g.finishOrder)
	return &c
}
