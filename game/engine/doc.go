// Package engine provides the core rules of the Heat race game.
//
// The engine package implements the game mechanics including:
//   - The per-player card economy (deck, hand, played, discard, engine)
//   - Gear shifting, heat payment and stress card resolution
//   - Corner speed limits, spinouts and cell collisions with lanes
//   - Adrenaline and slipstream bonuses
//   - Lap tracking and race completion ordering
//
// Core Types:
//
// Game is the aggregate root. It exclusively owns every Player and drives the
// turn/phase state machine: a simultaneous planning phase followed by a
// sequential resolution phase in race order. Actions are submitted through
// Dispatch and the resulting state is read back with State or StateFor.
//
// Usage:
//
//	game, err := engine.NewGame(players, engine.TestMap(), engine.WithLaps(2))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = game.Dispatch("p1", engine.PlanAction{Gear: 1, CardIndices: []int{6}})
//	state := game.StateFor("p1")
//
// Determinism:
//
// The only source of randomness is the shuffle function passed with
// WithShuffle. With IdentityShuffle two games built from the same inputs
// produce identical states for identical action sequences.
//
// The engine is not safe for concurrent use. Callers serialize Dispatch calls
// per game instance.
package engine
