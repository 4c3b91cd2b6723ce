// Package config manages race map configurations.
//
// Maps are JSON files in the configs directory, one map per file, named by
// their config id (usa.json is loaded as "usa"). Each map defines:
//   - Track length in cells and the default lap count
//   - Corners as per-lap cell positions with a speed limit
//   - The starting deck as card tokens (s1..s9, u0, u5, heat, stress)
//   - The number of heat cards in each player's engine
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific map
//	mapConfig, err := manager.LoadConfig("italy")
//
//	// Default map ("usa" when present, else the first file, else the built-in test map)
//	defaultConfig := manager.GetDefault()
//
//	// List available maps
//	maps, err := manager.ListConfigs()
//
// Loaded maps are cached. Every map goes through engine.ValidateMapConfig
// before it is cached or saved.
package config
