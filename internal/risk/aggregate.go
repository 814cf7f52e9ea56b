package risk

import (
	"math"
	"sort"

	"inspectra/internal/models"
)

// Aggregate is the property-level result before it is packaged into a snapshot
type Aggregate struct {
	BaseScore     float64
	PropertyScore float64
	RiskTier      models.RiskTier
}

// AggregateProperty combines room scores into a coverage-adjusted property score.
// Lower coverage only ever raises the score: missing rooms must not read as safety.
func AggregateProperty(tables *Tables, roomScores []models.RoomScore, coverage float64) (Aggregate, error) {
	if len(roomScores) == 0 {
		return Aggregate{}, &EmptyPropertyError{}
	}

	ordered := make([]models.RoomScore, len(roomScores))
	copy(ordered, roomScores)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RoomID < ordered[j].RoomID })

	weightedSum, weightTotal := 0.0, 0.0
	for _, room := range ordered {
		weight := tables.RoomImportance(room.RoomType)
		weightedSum += weight * ClampScore(room.Score)
		weightTotal += weight
	}
	base := ClampScore(weightedSum / weightTotal)

	if math.IsNaN(coverage) {
		coverage = 0
	}
	coverage = math.Min(math.Max(coverage, 0), 1)

	final := ClampScore(base * (1 + CoveragePenaltyFactor*(1-coverage)))
	return Aggregate{
		BaseScore:     base,
		PropertyScore: final,
		RiskTier:      TierForScore(final),
	}, nil
}

// TierForScore buckets a score with inclusive lower bounds: [0,25) low, [25,50) moderate,
// [50,75) high, [75,100] critical
func TierForScore(score float64) models.RiskTier {
	switch {
	case score >= 75:
		return models.RiskTierCritical
	case score >= 50:
		return models.RiskTierHigh
	case score >= 25:
		return models.RiskTierModerate
	default:
		return models.RiskTierLow
	}
}
