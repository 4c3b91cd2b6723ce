package engine

// ActionType names an action and the sub-state that accepts it
type ActionType string

const (
	ActionPlan       ActionType = "plan"
	ActionMove       ActionType = "move"
	ActionAdrenaline ActionType = "adrenaline"
	ActionReact      ActionType = "react"
	ActionSlipstream ActionType = "slipstream"
	ActionDiscard    ActionType = "discard"
)

// Action is the closed set of player intents accepted by Game.Dispatch.
// Implementations live in this package only.
type Action interface {
	Type() ActionType
	isAction()
}

// PlanAction picks the gear and the hand cards to play this turn
type PlanAction struct {
	Gear        int   `json:"gear"`
	CardIndices []int `json:"card_indices"`
}

// MoveAction acknowledges the staged movement
type MoveAction struct{}

// AdrenalineAction accepts or declines the adrenaline bonuses
type AdrenalineAction struct {
	AcceptMove     bool `json:"accept_move"`
	AcceptCooldown bool `json:"accept_cooldown"`
}

// ReactAction uses one reaction or skips the rest
type ReactAction struct {
	Choice ReactChoice `json:"choice"`
}

// SlipstreamAction takes or declines the slipstream
type SlipstreamAction struct {
	Use bool `json:"use"`
}

// DiscardAction discards hand cards before redrawing
type DiscardAction struct {
	CardIndices []int `json:"card_indices"`
}

func (PlanAction) Type() ActionType       { return ActionPlan }
func (MoveAction) Type() ActionType       { return ActionMove }
func (AdrenalineAction) Type() ActionType { return ActionAdrenaline }
func (ReactAction) Type() ActionType      { return ActionReact }
func (SlipstreamAction) Type() ActionType { return ActionSlipstream }
func (DiscardAction) Type() ActionType    { return ActionDiscard }

func (PlanAction) isAction()       {}
func (MoveAction) isAction()       {}
func (AdrenalineAction) isAction() {}
func (ReactAction) isAction()      {}
func (SlipstreamAction) isAction() {}
func (DiscardAction) isAction()    {}
