package models

import "time"

// Property is the metadata the data-loading side provides for an inspected building.
type Property struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	PropertyType string    `json:"property_type"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	YearBuilt    *int      `json:"year_built"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCoordinates reports whether the property can be placed on a map
func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// BankSignal is one row of the lender-facing view
type BankSignal struct {
	PropertyID     string         `json:"property_id"`
	SnapshotID     string         `json:"snapshot_id"`
	InspectedAt    time.Time      `json:"inspected_at"`
	PropertyScore  float64        `json:"property_score"`
	RiskTier       RiskTier       `json:"risk_tier"`
	Coverage       float64        `json:"coverage"`
	UnderInspected bool           `json:"under_inspected"`
	DecisionSignal DecisionSignal `json:"decision_signal"`
}
