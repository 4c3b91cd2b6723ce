package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Validation constants
	MinTrackLength = 8
	MaxTrackLength = 500
	MaxLaps        = 10
	MaxPlayers     = 6
	DefaultLaps    = 1
)

// Corner is a speed-limited cell on the track
type Corner struct {
	Position int `json:"position"`
	Limit    int `json:"limit"`
}

// MapConfig represents a race map loaded from JSON
type MapConfig struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Length      int      `json:"length"`
	Laps        int      `json:"laps"`
	Corners     []Corner `json:"corners"`
	// Deck lists the starting deck in order, bottom first. Drawing pops from the end.
	Deck []string `json:"deck"`
	// Engine is the number of heat cards each player starts with in the engine
	Engine int `json:"engine"`
}

// ValidateMapConfig validates a map configuration for correctness and playability
func ValidateMapConfig(config *MapConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Length < MinTrackLength || config.Length > MaxTrackLength {
		return fmt.Errorf("config validation: length must be between %d and %d, got %d", MinTrackLength, MaxTrackLength, config.Length)
	}
	if config.Laps < 0 || config.Laps > MaxLaps {
		return fmt.Errorf("config validation: laps must be between 0 and %d, got %d", MaxLaps, config.Laps)
	}

	prev := -1
	for i, c := range config.Corners {
		if c.Position <= prev {
			return fmt.Errorf("config validation: corner %d at %d is not after previous corner %d", i+1, c.Position, prev)
		}
		if c.Position < 1 || c.Position >= config.Length {
			return fmt.Errorf("config validation: corner %d position must be between 1 and %d, got %d", i+1, config.Length-1, c.Position)
		}
		if c.Limit < 1 {
			return fmt.Errorf("config validation: corner %d limit must be positive, got %d", i+1, c.Limit)
		}
		prev = c.Position
	}

	cards, err := ParseCards(config.Deck)
	if err != nil {
		return fmt.Errorf("config validation: deck: %w", err)
	}
	playable := 0
	for _, c := range cards {
		if c.Kind != Heat {
			playable++
		}
	}
	if playable < HandSize {
		return fmt.Errorf("config validation: deck must hold at least %d non-heat cards, got %d", HandSize, playable)
	}
	if config.Engine < 0 {
		return fmt.Errorf("config validation: engine must not be negative, got %d", config.Engine)
	}

	return nil
}

// LoadMapConfig loads a map configuration from a JSON file
func LoadMapConfig(filename string) (*MapConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config MapConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse map file '%s': %w", filepath.Base(filename), err)
	}

	if err := ValidateMapConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid map '%s': %w", strings.TrimSuffix(filepath.Base(filename), ".json"), err)
	}

	return &config, nil
}

// TestMap returns the built-in "Test" map. With IdentityShuffle its deck deals
// the opening hand [s1 s1 s1 s2 s2 s3 s4].
func TestMap() *MapConfig {
	return &MapConfig{
		Name:        "Test",
		Description: "Short oval used for rules tests",
		Length:      24,
		Laps:        1,
		Corners: []Corner{
			{Position: 6, Limit: 4},
			{Position: 14, Limit: 3},
			{Position: 20, Limit: 5},
		},
		Deck: []string{
			"stress", "u5", "s4", "s3", "s2", "stress", "u0", "s3", "s4", "stress",
			"s4", "s3", "s2", "s2", "s1", "s1", "s1",
		},
		Engine: 6,
	}
}
