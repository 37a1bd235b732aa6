// Package config provides ruleset management for the Parqués server.
//
// The config package handles:
//   - Loading rulesets from JSON or YAML files
//   - Filling missing players and message templates from the classic defaults
//   - Default ruleset selection and discovery
//   - Reloading the cache when files in the directory change
//
// Configuration Format:
//
// A ruleset names the game, lists the four seats (name, color, start square
// and home entry square), toggles require_bonus_before_roll and supplies
// message templates. The board geometry is fixed; validation rejects any
// seat whose squares disagree with it.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ruleset, err := manager.LoadConfig("original")
//	defaultRuleset := manager.GetDefault()
//	infos, err := manager.ListConfigs()
//
//	go manager.Watch(ctx)
package config
