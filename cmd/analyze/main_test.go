package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wricardo/heat-race/game/engine"
)

func TestAnalyze_TestMap(t *testing.T) {
	a, err := analyze(engine.TestMap())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if a.AverageSpeed != 2.5 {
		t.Errorf("Expected average speed 2.5, got %v", a.AverageSpeed)
	}
	if a.TurnsEstimate != 4 {
		t.Errorf("Expected 4 turns, got %d", a.TurnsEstimate)
	}

	want := []CornerReport{
		{Position: 6, Limit: 4, Gap: 8, Overspeed: 3.5},
		{Position: 14, Limit: 3, Gap: 6, Overspeed: 4.5},
		{Position: 20, Limit: 5, Gap: 10, Overspeed: 2.5},
	}
	if diff := cmp.Diff(want, a.Corners); diff != "" {
		t.Errorf("corners mismatch (-want +got):\n%s", diff)
	}
	if a.HeatPerLap != 10.5 {
		t.Errorf("Expected 10.5 heat per lap, got %v", a.HeatPerLap)
	}
}

func TestAnalyze_NoCorners(t *testing.T) {
	config := engine.TestMap()
	config.Corners = nil
	config.Laps = 0

	a, err := analyze(config)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Laps != engine.DefaultLaps {
		t.Errorf("Expected default laps, got %d", a.Laps)
	}
	if len(a.Corners) != 0 || a.HeatPerLap != 0 {
		t.Errorf("Expected no corner pressure, got %+v", a)
	}
}

func TestAnalyzeConfig_ValidFile(t *testing.T) {
	config := `{
		"name": "Gentle Oval",
		"length": 20,
		"laps": 1,
		"corners": [{ "position": 10, "limit": 9 }],
		"deck": ["s1", "s1", "s2", "s2", "s3", "s3", "s4"],
		"engine": 4
	}`
	path := filepath.Join(t.TempDir(), "gentle.json")
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var out bytes.Buffer
	if err := analyzeConfig(&out, path); err != nil {
		t.Fatalf("analyzeConfig: %v", err)
	}

	for _, want := range []string{
		"Name: Gentle Oval",
		"Track: 20 cells x 1 laps",
		"Corner 10: limit 9, next corner in 20 cells\n",
		"✅ Engine covers a lap at gear 3",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestAnalyzeConfig_HeatWarning(t *testing.T) {
	var out bytes.Buffer
	printAnalysis(&out, &Analysis{Name: "Hot", Length: 24, Laps: 1, Engine: 2, HeatPerLap: 5})

	if !strings.Contains(out.String(), "WARNING: cruising costs ~5.0 heat per lap but the engine holds 2") {
		t.Errorf("Expected heat warning, got:\n%s", out.String())
	}
}

func TestAnalyzeConfig_InvalidFile(t *testing.T) {
	var out bytes.Buffer
	if err := analyzeConfig(&out, "/non/existent/file.json"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestAnalyzeConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"name": "test", invalid json}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var out bytes.Buffer
	if err := analyzeConfig(&out, path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestAnalyzeConfig_ShippedMaps(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "configs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, file := range files {
		var out bytes.Buffer
		if err := analyzeConfig(&out, file); err != nil {
			t.Errorf("%s: %v", filepath.Base(file), err)
		}
	}
}
