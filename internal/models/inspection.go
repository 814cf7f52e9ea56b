package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Category groups defect types for weighting
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryElectrical Category = "electrical"
	CategoryFinishing  Category = "finishing"
)

// Categories lists every category in a fixed order
var Categories = []Category{CategoryStructural, CategoryElectrical, CategoryFinishing}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryStructural, CategoryElectrical, CategoryFinishing:
		return true
	}
	return false
}

// Severity holds either a categorical label or a numeric value in [0,1] written as text.
// Numeric JSON values are accepted and stored in their shortest decimal form.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// NumericSeverity wraps a raw severity value
func NumericSeverity(v float64) Severity {
	return Severity(strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*s = Severity(label)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = NumericSeverity(v)
	return nil
}

// DefectObservation is a single recorded finding in a room. Manual entries and
// classifier output share this shape.
type DefectObservation struct {
	RoomID     string   `json:"room_id"`
	DefectType string   `json:"defect_type"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// DefectCatalogEntry describes how much a defect type weighs and where it belongs
type DefectCatalogEntry struct {
	DefectType  string   `json:"defect_type"`
	BaseWeight  float64  `json:"base_weight"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

// RoomInspection carries all observations recorded for one room
type RoomInspection struct {
	RoomID       string              `json:"room_id"`
	RoomType     string              `json:"room_type"`
	Observations []DefectObservation `json:"observations"`
}

// Inspection is one inspection event for a property.
// ExpectedRooms overrides the layout for PropertyType when set.
type Inspection struct {
	PropertyID    string           `json:"property_id"`
	PropertyType  string           `json:"property_type"`
	ExpectedRooms map[string]int   `json:"expected_rooms,omitempty"`
	InspectedAt   time.Time        `json:"inspected_at"`
	Rooms         []RoomInspection `json:"rooms"`
}
