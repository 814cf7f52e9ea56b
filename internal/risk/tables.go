package risk

import (
	"math"

	"inspectra/internal/models"
)

// Fixed scoring constants. Changing any of them changes pinned regression values.
const (
	// SaturationScale controls how quickly the raw score approaches 100
	SaturationScale = 0.25
	// TopContributors is the number of defects cited per room
	TopContributors = 5
	// CoverageThreshold is exclusive: coverage below it marks the property under-inspected
	CoverageThreshold = 0.6
	// CoveragePenaltyFactor scales the upward adjustment for missing rooms
	CoveragePenaltyFactor = 0.2
	// MinRoomImportance keeps a zero-weight room from vanishing from the average
	MinRoomImportance = 0.05
	// DefaultRoomImportance applies to room types missing from the importance table
	DefaultRoomImportance = 1.0
	// TrendEpsilon absorbs floating point noise in the trend slope; any strictly rising
	// sequence of scores reads as worsening
	TrendEpsilon = 1e-6
)

// SeverityScale maps categorical severities onto [0,1]
var SeverityScale = map[models.Severity]float64{
	models.SeverityLow:      0.25,
	models.SeverityMedium:   0.5,
	models.SeverityHigh:     0.75,
	models.SeverityCritical: 1.0,
}

// CategoryWeights combine per-category sums into the raw room score
var CategoryWeights = map[models.Category]float64{
	models.CategoryStructural: 0.5,
	models.CategoryElectrical: 0.3,
	models.CategoryFinishing:  0.2,
}

// Tables bundles the process-wide static configuration used by every component.
// Build it once with NewTables and share it; nothing mutates it afterwards.
type Tables struct {
	Catalog        *Catalog
	roomImportance map[string]float64
	layouts        map[string]map[string]int
}

// NewTables validates the catalog, room importance weights and property layouts
func NewTables(defects []models.DefectCatalogEntry, roomImportance map[string]float64, layouts map[string]map[string]int) (*Tables, error) {
	catalog, err := NewCatalog(defects)
	if err != nil {
		return nil, err
	}

	importance := make(map[string]float64, len(roomImportance))
	for roomType, weight := range roomImportance {
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, &ConfigurationError{Table: "room importance", Key: roomType, Reason: "weight must be a non-negative number"}
		}
		importance[roomType] = weight
	}

	frozen := make(map[string]map[string]int, len(layouts))
	for propertyType, expected := range layouts {
		if err := validateExpectedRooms("layout "+propertyType, expected); err != nil {
			return nil, err
		}
		copied := make(map[string]int, len(expected))
		for roomType, count := range expected {
			copied[roomType] = count
		}
		frozen[propertyType] = copied
	}

	return &Tables{Catalog: catalog, roomImportance: importance, layouts: frozen}, nil
}

// RoomImportance returns the aggregation weight for a room type, never below MinRoomImportance
func (t *Tables) RoomImportance(roomType string) float64 {
	weight, ok := t.roomImportance[roomType]
	if !ok {
		weight = DefaultRoomImportance
	}
	return math.Max(weight, MinRoomImportance)
}

// ExpectedRooms returns a copy of the layout for a property type
func (t *Tables) ExpectedRooms(propertyType string) (map[string]int, bool) {
	layout, ok := t.layouts[propertyType]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(layout))
	for roomType, count := range layout {
		out[roomType] = count
	}
	return out, true
}

func validateExpectedRooms(table string, expected map[string]int) *ConfigurationError {
	if len(expected) == 0 {
		return &ConfigurationError{Table: table, Reason: "no room types listed"}
	}
	for roomType, count := range expected {
		if count <= 0 {
			return &ConfigurationError{Table: table, Key: roomType, Reason: "expected room count must be positive"}
		}
	}
	return nil
}
