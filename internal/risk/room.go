package risk

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"inspectra/internal/models"
)

type weightedObservation struct {
	defectType   string
	category     models.Category
	contribution float64
	confidence   float64
	imageURL     string
}

// SeverityValue normalizes a categorical label or numeric text into [0,1]
func SeverityValue(severity models.Severity) (float64, error) {
	normalized := models.Severity(strings.ToLower(strings.TrimSpace(string(severity))))
	if normalized == "" {
		return 0, fmt.Errorf("is missing")
	}
	if v, ok := SeverityScale[normalized]; ok {
		return v, nil
	}

	v, err := strconv.ParseFloat(string(normalized), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a known label nor a number", string(severity))
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%v is outside [0,1]", v)
	}
	return v, nil
}

// ScoreRoom turns a room's observations into a bounded, order-independent RoomScore.
// An empty observation set is valid and scores 0 with confidence 0.
func ScoreRoom(catalog *Catalog, roomID, roomType string, observations []models.DefectObservation) (models.RoomScore, error) {
	weighted := make([]weightedObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.RoomID != "" && obs.RoomID != roomID {
			return models.RoomScore{}, &InvalidObservationError{
				RoomID: roomID, DefectType: obs.DefectType, Field: "room_id",
				Reason: fmt.Sprintf("refers to room %q", obs.RoomID),
			}
		}

		entry, err := catalog.Lookup(obs.DefectType)
		if err != nil {
			return models.RoomScore{}, err
		}

		severity, err := SeverityValue(obs.Severity)
		if err != nil {
			return models.RoomScore{}, &InvalidObservationError{
				RoomID: roomID, DefectType: obs.DefectType, Field: "severity", Reason: err.Error(),
			}
		}

		if math.IsNaN(obs.Confidence) || obs.Confidence < 0 || obs.Confidence > 1 {
			return models.RoomScore{}, &InvalidObservationError{
				RoomID: roomID, DefectType: obs.DefectType, Field: "confidence",
				Reason: fmt.Sprintf("%v is outside [0,1]", obs.Confidence),
			}
		}

		weighted = append(weighted, weightedObservation{
			defectType:   entry.DefectType,
			category:     entry.Category,
			contribution: entry.BaseWeight * severity * obs.Confidence,
			confidence:   obs.Confidence,
			imageURL:     obs.ImageURL,
		})
	}

	// Summing in a canonical order keeps floating point results independent of input order.
	sort.Slice(weighted, func(i, j int) bool {
		a, b := weighted[i], weighted[j]
		if a.contribution != b.contribution {
			return a.contribution > b.contribution
		}
		if a.defectType != b.defectType {
			return a.defectType < b.defectType
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		return a.imageURL < b.imageURL
	})

	perCategory := make(map[models.Category]float64, len(models.Categories))
	confidenceSum := 0.0
	for _, w := range weighted {
		perCategory[w.category] += w.contribution
		confidenceSum += w.confidence
	}

	raw := 0.0
	for _, category := range models.Categories {
		raw += CategoryWeights[category] * perCategory[category]
	}

	confidence := 0.0
	if len(weighted) > 0 {
		confidence = confidenceSum / float64(len(weighted))
	}

	top := make([]models.DefectContribution, 0, TopContributors)
	for i := 0; i < len(weighted) && i < TopContributors; i++ {
		top = append(top, models.DefectContribution{
			DefectType:   weighted[i].defectType,
			Category:     weighted[i].category,
			Contribution: weighted[i].contribution,
			ImageURL:     weighted[i].imageURL,
		})
	}

	return models.RoomScore{
		RoomID:                 roomID,
		RoomType:               roomType,
		Score:                  Saturate(raw),
		TopContributingDefects: top,
		Confidence:             confidence,
		ObservationCount:       len(weighted),
	}, nil
}

// Saturate maps a non-negative raw score onto [0,100] with 100*(1-e^(-raw/SaturationScale))
func Saturate(raw float64) float64 {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	return ClampScore(100 * (1 - math.Exp(-raw/SaturationScale)))
}

// ClampScore bounds a score to [0,100]; NaN becomes 0
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
