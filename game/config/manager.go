package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/heat-race/game/engine"
	"github.com/wricardo/heat-race/game/service"
)

var (
	ErrConfigNotFound = errors.New("map not found")
	ErrInvalidConfig  = errors.New("invalid map")
)

// BuiltinMapID is the id of the rules test map, available even without a file on disk
const BuiltinMapID = "test"

// Manager handles map configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.MapConfig
	defaultID     string
	configs       map[string]*engine.MapConfig
	mu            sync.RWMutex
}

// NewManager creates a new map configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.MapConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default map: %w", err)
	}

	return m, nil
}

// LoadConfig loads a map by id (the file name without .json)
func (m *Manager) LoadConfig(name string) (*engine.MapConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	config, err := engine.LoadMapConfig(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if id == BuiltinMapID {
				config = engine.TestMap()
				m.configs[id] = config
				return config, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about every valid map in the directory plus the built-in map
func (m *Manager) ListConfigs() ([]*service.MapInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	if !slices.Contains(ids, BuiltinMapID) {
		ids = append(ids, BuiltinMapID)
	}
	sort.Strings(ids)

	var maps []*service.MapInfo
	for _, id := range ids {
		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid maps
			continue
		}
		maps = append(maps, service.NewMapInfo(id, config))
	}

	return maps, nil
}

// GetDefault returns the default map
func (m *Manager) GetDefault() *engine.MapConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// DefaultID returns the id of the default map
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default map by id
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	m.defaultID = configID(name)
	return nil
}

// RefreshCache drops every cached map and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.MapConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers usa.json, then the first valid map, then the built-in map
func (m *Manager) loadDefaultConfig() error {
	id := "usa"
	config, err := m.LoadConfig(id)
	if err != nil {
		maps, listErr := m.ListConfigs()
		if listErr != nil || len(maps) == 0 {
			id, config = BuiltinMapID, engine.TestMap()
		} else {
			id = maps[0].ConfigID
			if config, err = m.LoadConfig(id); err != nil {
				id, config = BuiltinMapID, engine.TestMap()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	m.defaultID = id
	return nil
}

// SaveConfig validates and writes a map to disk
func (m *Manager) SaveConfig(name string, config *engine.MapConfig) error {
	if err := engine.ValidateMapConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad map id %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// configID normalizes a map name to its file id
func configID(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), ".json"))
}
