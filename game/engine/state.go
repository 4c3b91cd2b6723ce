package engine

import "slices"

// GameState is a read-only snapshot of a race
type GameState struct {
	Map             string        `json:"map"`
	Track           Track         `json:"track"`
	Laps            int           `json:"laps"`
	Turn            int           `json:"turn"`
	Phase           Phase         `json:"phase"`
	CurrentState    SubState      `json:"current_state"`
	CurrentPlayer   string        `json:"current_player,omitempty"`
	PendingPlayers  []string      `json:"pending_players"`
	TurnOrder       []string      `json:"turn_order"`
	AdrenalineSlots int           `json:"adrenaline_slots"`
	FinishOrder     []string      `json:"finish_order"`
	RaceFinishing   bool          `json:"race_finishing"`
	Players         []PlayerState `json:"players"`

	// Viewer is set on per-player views. ValidActions lists what the viewer may submit.
	Viewer       string       `json:"viewer,omitempty"`
	ValidActions []ActionType `json:"valid_actions,omitempty"`
}

// PlayerState is the visible part of a player. Hands of other players are
// reduced to card kinds, and so are their planned cards until resolution.
type PlayerState struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Gear          int    `json:"gear"`
	Position      int    `json:"position"`
	OnRaceline    bool   `json:"on_raceline"`
	Lap           int    `json:"lap"`
	Finished      bool   `json:"finished"`
	HasAdrenaline bool   `json:"has_adrenaline"`

	Hand         []Card     `json:"hand,omitempty"`
	HiddenHand   []CardKind `json:"hidden_hand,omitempty"`
	Played       []Card     `json:"played,omitempty"`
	HiddenPlayed []CardKind `json:"hidden_played,omitempty"`
	Discard      []Card     `json:"discard"`
	DeckSize     int        `json:"deck_size"`
	EngineSize   int        `json:"engine_size"`

	StartPosition      int           `json:"start_position"`
	CardSpeed          int           `json:"card_speed"`
	AvailableCooldowns int           `json:"available_cooldowns"`
	Reactions          []ReactChoice `json:"reactions,omitempty"`
	PenaltyStress      int           `json:"penalty_stress"`
}

// State returns the full snapshot with every hand visible
func (g *Game) State() *GameState {
	return g.snapshot("", true)
}

// StateFor returns the snapshot seen by viewerID
func (g *Game) StateFor(viewerID string) *GameState {
	s := g.snapshot(viewerID, false)
	s.Viewer = viewerID
	s.ValidActions = g.ValidActions(viewerID)
	return s
}

func (g *Game) snapshot(viewerID string, all bool) *GameState {
	s := &GameState{
		Map:             g.config.Name,
		Track:           NewTrack(g.config),
		Laps:            g.laps,
		Turn:            g.turn,
		Phase:           g.phase,
		CurrentState:    g.state,
		CurrentPlayer:   g.CurrentPlayer(),
		PendingPlayers:  []string{},
		TurnOrder:       slices.Clone(g.turnOrder),
		AdrenalineSlots: g.adrenalineSlots,
		FinishOrder:     append([]string{}, g.finishOrder...),
		RaceFinishing:   g.raceFinishing,
		Players:         make([]PlayerState, 0, len(g.order)),
	}
	for _, id := range g.order {
		if g.phase == PhasePlanning && g.pending[id] {
			s.PendingPlayers = append(s.PendingPlayers, id)
		}
		p := g.players[id]
		visible := all || id == viewerID
		s.Players = append(s.Players, playerState(p, visible, visible || g.phase != PhasePlanning))
	}
	return s
}

func playerState(p *Player, showHand, showPlayed bool) PlayerState {
	ps := PlayerState{
		ID:                 p.ID,
		DisplayName:        p.DisplayName,
		Gear:               p.Gear,
		Position:           p.Position,
		OnRaceline:         p.OnRaceline,
		Lap:                p.Lap,
		Finished:           p.Finished,
		HasAdrenaline:      p.HasAdrenaline,
		Discard:            append([]Card{}, p.Discard...),
		DeckSize:           len(p.Deck),
		EngineSize:         len(p.Engine),
		StartPosition:      p.StartPosition,
		CardSpeed:          p.CardSpeed,
		AvailableCooldowns: p.AvailableCooldowns,
		Reactions:          reactionChoices(p.Reactions),
		PenaltyStress:      p.PenaltyStress,
	}
	if showHand {
		ps.Hand = slices.Clone(p.Hand)
	} else {
		ps.HiddenHand = kinds(p.Hand)
	}
	if showPlayed {
		ps.Played = slices.Clone(p.Played)
	} else {
		ps.HiddenPlayed = kinds(p.Played)
	}
	return ps
}

func kinds(cards []Card) []CardKind {
	out := make([]CardKind, len(cards))
	for i, c := range cards {
		out[i] = c.Kind
	}
	return out
}

func reactionChoices(r Reactions) []ReactChoice {
	var out []ReactChoice
	if r.Has(ReactionCooldown) {
		out = append(out, ChoiceCooldown)
	}
	if r.Has(ReactionBoost) {
		out = append(out, ChoiceBoost)
	}
	return out
}
