package risk

import "inspectra/internal/models"

type decisionRow struct {
	Covered        models.DecisionSignal
	UnderInspected models.DecisionSignal
}

var decisionTable = map[models.RiskTier]decisionRow{
	models.RiskTierLow:      {Covered: models.DecisionApprove, UnderInspected: models.DecisionApprove},
	models.RiskTierModerate: {Covered: models.DecisionApprove, UnderInspected: models.DecisionConditional},
	models.RiskTierHigh:     {Covered: models.DecisionConditional, UnderInspected: models.DecisionConditional},
	models.RiskTierCritical: {Covered: models.DecisionDeclineReview, UnderInspected: models.DecisionDeclineReview},
}

// DecideSignal maps a tier and coverage onto the lender signal.
// A tier outside the table falls through to decline_review.
func DecideSignal(tier models.RiskTier, coverage float64) models.DecisionSignal {
	row, ok := decisionTable[tier]
	if !ok {
		return models.DecisionDeclineReview
	}
	if coverage >= CoverageThreshold {
		return row.Covered
	}
	return row.UnderInspected
}
