package models

import "time"

// RiskTier is the discrete bucket derived from a property score
type RiskTier string

const (
	RiskTierLow      RiskTier = "low"
	RiskTierModerate RiskTier = "moderate"
	RiskTierHigh     RiskTier = "high"
	RiskTierCritical RiskTier = "critical"
)

// RiskTiers lists every tier from least to most severe
var RiskTiers = []RiskTier{RiskTierLow, RiskTierModerate, RiskTierHigh, RiskTierCritical}

// Rank orders tiers from 0 (low) to 3 (critical); unknown tiers rank -1
func (t RiskTier) Rank() int {
	for i, tier := range RiskTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// DecisionSignal is the lender-facing recommendation
type DecisionSignal string

const (
	DecisionApprove       DecisionSignal = "approve"
	DecisionConditional   DecisionSignal = "conditional"
	DecisionDeclineReview DecisionSignal = "decline_review"
)

// TrendDirection describes how a property's score moves across inspections
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendWorsening        TrendDirection = "worsening"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// DefectContribution is how much one observation added to a room's raw score
type DefectContribution struct {
	DefectType   string   `json:"defect_type"`
	Category     Category `json:"category"`
	Contribution float64  `json:"contribution"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// RoomScore is the bounded risk estimate for one room
type RoomScore struct {
	RoomID                 string               `json:"room_id"`
	RoomType               string               `json:"room_type"`
	Score                  float64              `json:"score"`
	TopContributingDefects []DefectContribution `json:"top_contributing_defects"`
	Confidence             float64              `json:"confidence"`
	ObservationCount       int                  `json:"observation_count"`
}

// Band returns the heatmap label for the room score
func (r RoomScore) Band() string {
	switch {
	case r.Score >= 80:
		return "high"
	case r.Score >= 60:
		return "medium"
	case r.Score >= 30:
		return "low"
	default:
		return "safe"
	}
}

// PropertySnapshot is the immutable result of one inspection event
type PropertySnapshot struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	PropertyID     string         `json:"property_id" gorm:"index"`
	Timestamp      time.Time      `json:"timestamp" gorm:"index"`
	RoomScores     []RoomScore    `json:"room_scores" gorm:"serializer:json"`
	Coverage       float64        `json:"coverage"`
	UnderInspected bool           `json:"under_inspected"`
	PropertyScore  float64        `json:"property_score"`
	RiskTier       RiskTier       `json:"risk_tier"`
	Explanation    string         `json:"explanation"`
	DecisionSignal DecisionSignal `json:"decision_signal"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TrendResult is the direction of travel across a property's snapshots
type TrendResult struct {
	PropertyID  string         `json:"property_id,omitempty"`
	Direction   TrendDirection `json:"direction"`
	Slope       float64        `json:"slope"`
	Note        string         `json:"note"`
	Inspections int            `json:"inspections"`
}
