// Command validate provides a small CLI that validates race map JSON files in
// the ../configs directory (or the directory given as the first argument).
// It checks:
//   - JSON structure, rejecting unknown fields
//   - The engine's own map rules (name, length, laps, corners, deck, engine)
//   - Every deck token, reporting each bad one
//   - Playability hints: corners no single card can take, an empty engine
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/wricardo/heat-race/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "⚠️  "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single map file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.MapConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateMapConfig(&config); err != nil {
		result.fail("%v", err)
	}

	var cards []engine.Card
	for i, token := range config.Deck {
		card, err := engine.ParseCard(token)
		if err != nil {
			result.fail("Deck card %d: %v", i, err)
			continue
		}
		cards = append(cards, card)
	}
	if !result.Valid {
		return result
	}

	checkPlayability(&config, cards, &result)

	laps := config.Laps
	if laps == 0 {
		laps = engine.DefaultLaps
	}
	result.info("Name: %s", config.Name)
	result.info("Track: %d cells, %d laps, %d corners", config.Length, laps, len(config.Corners))
	if len(config.Corners) > 0 {
		tightest := lo.MinBy(config.Corners, func(a, b engine.Corner) bool { return a.Limit < b.Limit })
		result.info("Tightest corner: limit %d at cell %d", tightest.Limit, tightest.Position)
	}
	result.info("Deck: %d cards (%d speed, %d upgrade, %d heat, %d stress)", len(cards),
		countKind(cards, engine.Speed), countKind(cards, engine.Upgrade),
		countKind(cards, engine.Heat), countKind(cards, engine.Stress))
	result.info("Engine: %d heat", config.Engine)

	return result
}

// checkPlayability adds warnings for maps that load but race badly.
func checkPlayability(config *engine.MapConfig, cards []engine.Card, result *ValidationResult) {
	moving := lo.Filter(cards, func(c engine.Card, _ int) bool { return c.Kind == engine.Speed })
	if len(moving) == 0 {
		result.warn("Deck has no speed cards; only upgrades and stress move cars")
	} else {
		slowest := lo.MinBy(moving, func(a, b engine.Card) bool { return a.Value < b.Value })
		for _, c := range config.Corners {
			if c.Limit < slowest.Value {
				result.warn("Corner at cell %d (limit %d) is slower than every speed card", c.Position, c.Limit)
			}
		}
	}
	if config.Engine == 0 && len(config.Corners) > 0 {
		result.warn("Engine is empty: every overspeed spins out and gear shifts cannot be paid")
	}
}

func countKind(cards []engine.Card, kind engine.CardKind) int {
	return lo.CountBy(cards, func(c engine.Card) bool { return c.Kind == kind })
}

// main scans the config directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No map files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
