package engine

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, n int, opts ...Option) *Game {
	t.Helper()
	players := make([]PlayerInfo, n)
	for i := range players {
		players[i] = PlayerInfo{ID: fmt.Sprintf("p%d", i+1), DisplayName: fmt.Sprintf("Player %d", i+1)}
	}
	opts = append([]Option{WithShuffle(IdentityShuffle)}, opts...)
	g, err := NewGame(players, TestMap(), opts...)
	require.NoError(t, err)
	return g
}

// passiveAction declines every optional bonus for the current sub-state
func passiveAction(g *Game) Action {
	switch g.state {
	case StateMove:
		return MoveAction{}
	case StateAdrenaline:
		return AdrenalineAction{}
	case StateReact:
		return ReactAction{Choice: ChoiceSkip}
	case StateSlipstream:
		return SlipstreamAction{}
	case StateDiscard:
		return DiscardAction{}
	}
	return nil
}

// resolveCurrent plays out the current player's resolution without bonuses
func resolveCurrent(t *testing.T, g *Game) {
	t.Helper()
	id := g.CurrentPlayer()
	require.NotEmpty(t, id, "no player is resolving")
	for g.phase == PhaseResolution && g.CurrentPlayer() == id {
		require.NoError(t, g.Dispatch(id, passiveAction(g)))
	}
}

func planAll(t *testing.T, g *Game, plans map[string]PlanAction) {
	t.Helper()
	for _, id := range g.order {
		plan, ok := plans[id]
		if !ok {
			continue
		}
		require.NoError(t, g.Dispatch(id, plan), "plan for %s", id)
	}
}

// greedyAction is a simple scripted driver used by property tests. It climbs
// to third gear on straights, slows down before corners and takes every bonus offered.
func greedyAction(g *Game, id string) Action {
	p := g.players[id]
	switch g.state {
	case StatePlan:
		bySpeed := handBySpeed(p)
		gear := min(p.Gear+1, 3)
		fast := bySpeed[:len(bySpeed)-countKind(p.Hand, Heat)]
		if len(g.track.CornersBetween(p.Position, p.Position+5)) > 0 || len(fast) < gear {
			gear = max(p.Gear-1, MinGear)
			return PlanAction{Gear: gear, CardIndices: bySpeed[:gear]}
		}
		return PlanAction{Gear: gear, CardIndices: fast[len(fast)-gear:]}
	case StateMove:
		return MoveAction{}
	case StateAdrenaline:
		return AdrenalineAction{AcceptMove: true, AcceptCooldown: true}
	case StateReact:
		if p.canCooldown() {
			return ReactAction{Choice: ChoiceCooldown}
		}
		if p.canBoost() && len(p.Engine) > 2 {
			return ReactAction{Choice: ChoiceBoost}
		}
		return ReactAction{Choice: ChoiceSkip}
	case StateSlipstream:
		return SlipstreamAction{Use: true}
	case StateDiscard:
		var indices []int
		for i, c := range p.Hand {
			if c.Moves() && c.Value <= 1 {
				indices = append(indices, i)
			}
		}
		return DiscardAction{CardIndices: indices}
	}
	return nil
}

// nextActor returns who the game is waiting on
func nextActor(g *Game) string {
	if g.state == StatePlan {
		for _, id := range g.order {
			if g.pending[id] {
				return id
			}
		}
	}
	return g.CurrentPlayer()
}

// autoplay drives the game with greedyAction, calling check after every action
func autoplay(t *testing.T, g *Game, maxActions int, check func()) {
	t.Helper()
	for i := 0; i < maxActions && g.phase != PhaseFinished; i++ {
		id := nextActor(g)
		require.NoError(t, g.Dispatch(id, greedyAction(g, id)), "action %d by %s in %s", i, id, g.state)
		if check != nil {
			check()
		}
	}
}

// handBySpeed returns hand indices from slowest to fastest card, then stress,
// then heat.
func handBySpeed(p *Player) []int {
	indices := make([]int, len(p.Hand))
	for i := range indices {
		indices[i] = i
	}
	rank := func(c Card) int {
		switch c.Kind {
		case Stress:
			return 50
		case Heat:
			return 100
		}
		return c.Value
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return rank(p.Hand[indices[a]]) < rank(p.Hand[indices[b]])
	})
	return indices
}
