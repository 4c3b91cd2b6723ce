// Command analyze prints quick, human-readable heuristics about the race maps
// in the project's configs directory. It summarizes track shape, corner
// spacing, deck speed, and how hard the corners press on the engine when a
// car runs flat out in third gear.
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/wricardo/heat-race/game/engine"
)

// cruiseGear is the gear used for the pace and heat estimates.
const cruiseGear = 3

// CornerReport describes one corner and the straight that follows it.
type CornerReport struct {
	Position int
	Limit    int
	// Gap is the distance to the next corner, wrapping into the next lap.
	Gap int
	// Overspeed is the expected excess at cruise pace, zero when under the limit.
	Overspeed float64
}

// Analysis is the summary printed for one map.
type Analysis struct {
	Name          string
	Length        int
	Laps          int
	Corners       []CornerReport
	DeckSize      int
	Engine        int
	AverageSpeed  float64
	TurnsEstimate int
	HeatPerLap    float64
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding map files: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		if err := analyzeConfig(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func analyzeConfig(w io.Writer, path string) error {
	config, err := engine.LoadMapConfig(path)
	if err != nil {
		return err
	}
	a, err := analyze(config)
	if err != nil {
		return err
	}
	printAnalysis(w, a)
	return nil
}

func analyze(config *engine.MapConfig) (*Analysis, error) {
	cards, err := engine.ParseCards(config.Deck)
	if err != nil {
		return nil, err
	}
	speeds := lo.FilterMap(cards, func(c engine.Card, _ int) (int, bool) {
		return c.Value, c.Kind == engine.Speed
	})

	laps := config.Laps
	if laps == 0 {
		laps = engine.DefaultLaps
	}
	a := &Analysis{
		Name:     config.Name,
		Length:   config.Length,
		Laps:     laps,
		DeckSize: len(cards),
		Engine:   config.Engine,
	}
	if len(speeds) > 0 {
		a.AverageSpeed = float64(lo.Sum(speeds)) / float64(len(speeds))
	}

	pace := a.AverageSpeed * cruiseGear
	if pace > 0 {
		a.TurnsEstimate = int(math.Ceil(float64(config.Length*laps) / pace))
	}

	for i, c := range config.Corners {
		next := config.Corners[(i+1)%len(config.Corners)].Position
		gap := next - c.Position
		if gap <= 0 {
			gap += config.Length
		}
		r := CornerReport{Position: c.Position, Limit: c.Limit, Gap: gap}
		if over := pace - float64(c.Limit); over > 0 {
			r.Overspeed = over
		}
		a.Corners = append(a.Corners, r)
	}
	a.HeatPerLap = lo.SumBy(a.Corners, func(r CornerReport) float64 { return r.Overspeed })

	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Track: %d cells x %d laps\n", a.Length, a.Laps)
	fmt.Fprintf(w, "Deck: %d cards, average speed card %.1f\n", a.DeckSize, a.AverageSpeed)
	fmt.Fprintf(w, "Engine: %d heat\n", a.Engine)

	for _, c := range a.Corners {
		fmt.Fprintf(w, "Corner %d: limit %d, next corner in %d cells", c.Position, c.Limit, c.Gap)
		if c.Overspeed > 0 {
			fmt.Fprintf(w, ", ~%.1f heat at gear %d", c.Overspeed, cruiseGear)
		}
		fmt.Fprintln(w)
	}

	if a.TurnsEstimate > 0 {
		fmt.Fprintf(w, "Pace at gear %d: ~%d turns to finish\n", cruiseGear, a.TurnsEstimate)
	}
	if a.HeatPerLap > float64(a.Engine) {
		fmt.Fprintf(w, "⚠️  WARNING: cruising costs ~%.1f heat per lap but the engine holds %d\n", a.HeatPerLap, a.Engine)
	} else {
		fmt.Fprintf(w, "✅ Engine covers a lap at gear %d (~%.1f heat)\n", cruiseGear, a.HeatPerLap)
	}
}
