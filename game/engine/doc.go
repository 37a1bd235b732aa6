// Package engine provides the rule engine for Parqués, a four-player
// cross-track race game in the Ludo family.
//
// The engine package implements the game mechanics including:
//   - Track occupancy, blockades and safe squares (Board)
//   - Move resolution for jail exits, track moves, captures and the home lane
//   - Turn control: dice, doubles streaks, the three-doubles penalty and bonus steps
//   - Ruleset loading (JSON or YAML) and validation
//
// Core Types:
//
// GameState is the single mutable aggregate for a game; every operation
// takes it explicitly. GameEngine wraps a GameState with its GameConfig
// and records each action in the history. Moves never fail with an error:
// an illegal move returns an Outcome of kind Rejected with a reason.
// Errors are reserved for turn misuse such as spending a die that was not
// rolled.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	roll, err := gameEngine.Roll(engine.NewRandomDice(0))
//	outcome, err := gameEngine.PlayDie(0, roll.Die1)
//
// Game Rules:
//
// The track has 68 squares. Each player starts at square 0, 17, 34 or 51
// and enters a private home lane of 8 squares from the square just before
// its start. A token leaves jail only on a 5. Two tokens of one owner form
// a blockade that nobody may pass. Landing alone on an opponent outside a
// start square sends it to jail and carries the capturer 20 squares
// further. Entering the home lane or reaching its last square banks 10
// bonus steps. Three doubles in a row send a token back to jail.
package engine
