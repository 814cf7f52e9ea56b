package risk

import (
	"fmt"
	"sort"

	"inspectra/internal/models"
)

// ComputeTrend fits a least-squares line through property scores against inspection
// index (0, 1, 2, ...). The slope is in points per inspection.
func ComputeTrend(snapshots []models.PropertySnapshot) models.TrendResult {
	ordered := make([]models.PropertySnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	result := models.TrendResult{Inspections: len(ordered)}
	if len(ordered) > 0 {
		result.PropertyID = ordered[0].PropertyID
	}
	if len(ordered) < 2 {
		result.Direction = models.TrendInsufficientData
		result.Note = "At least two inspections are needed to establish a trend."
		return result
	}

	n := float64(len(ordered))
	meanX := (n - 1) / 2
	numerator, denominator := 0.0, 0.0
	for i, snap := range ordered {
		dx := float64(i) - meanX
		numerator += dx * snap.PropertyScore
		denominator += dx * dx
	}
	result.Slope = numerator / denominator

	first := ordered[0].PropertyScore
	last := ordered[len(ordered)-1].PropertyScore
	switch {
	case result.Slope > TrendEpsilon:
		result.Direction = models.TrendWorsening
		result.Note = fmt.Sprintf("Risk is worsening by %.1f points per inspection (%.1f to %.1f over %d inspections); treat the current tier as a floor until the cause is addressed.",
			result.Slope, first, last, len(ordered))
	case result.Slope < -TrendEpsilon:
		result.Direction = models.TrendImproving
		result.Note = fmt.Sprintf("Risk is improving by %.1f points per inspection (%.1f to %.1f over %d inspections).",
			-result.Slope, first, last, len(ordered))
	default:
		result.Direction = models.TrendStable
		result.Note = fmt.Sprintf("Risk is stable across %d inspections (%.1f to %.1f).", len(ordered), first, last)
	}
	return result
}
