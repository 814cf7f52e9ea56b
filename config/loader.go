package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"inspectra/internal/models"
)

// ScoringTables is the static configuration handed to the risk engine at startup
type ScoringTables struct {
	Defects         []models.DefectCatalogEntry `json:"defects"`
	RoomImportance  map[string]float64          `json:"room_importance"`
	PropertyLayouts map[string]map[string]int   `json:"property_layouts"`
}

// DefaultScoringTables returns a copy of the built-in tables
func DefaultScoringTables() *ScoringTables {
	tables := &ScoringTables{
		Defects:         make([]models.DefectCatalogEntry, len(DefectTypes)),
		RoomImportance:  make(map[string]float64, len(RoomImportance)),
		PropertyLayouts: make(map[string]map[string]int, len(PropertyLayouts)),
	}
	copy(tables.Defects, DefectTypes)
	for roomType, weight := range RoomImportance {
		tables.RoomImportance[roomType] = weight
	}
	for propertyType, layout := range PropertyLayouts {
		rooms := make(map[string]int, len(layout))
		for roomType, count := range layout {
			rooms[roomType] = count
		}
		tables.PropertyLayouts[propertyType] = rooms
	}
	return tables
}

// LoadScoringTables reads tables from a JSON file. Each table present in the file
// replaces the built-in one; absent tables keep their defaults. An empty path
// returns the defaults.
func LoadScoringTables(path string) (*ScoringTables, error) {
	tables := DefaultScoringTables()
	if path == "" {
		return tables, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring tables: %w", err)
	}

	var override ScoringTables
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse scoring tables: %w", err)
	}

	if override.Defects != nil {
		tables.Defects = override.Defects
	}
	if override.RoomImportance != nil {
		tables.RoomImportance = override.RoomImportance
	}
	if override.PropertyLayouts != nil {
		tables.PropertyLayouts = override.PropertyLayouts
	}
	return tables, nil
}

// PropertyTypes returns the property types with a known layout, sorted
func (t *ScoringTables) PropertyTypes() []string {
	names := make([]string, 0, len(t.PropertyLayouts))
	for name := range t.PropertyLayouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
