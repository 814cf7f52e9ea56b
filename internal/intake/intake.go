package intake

import (
	"sort"
	"strings"

	"inspectra/internal/models"
)

const (
	SourceManual = "manual"
	SourceImage  = "image"
)

// ImageFinding is what the image classifier reports for one photo
type ImageFinding struct {
	RoomID      string          `json:"room_id"`
	RoomType    string          `json:"room_type"`
	DefectLabel string          `json:"defect_label"`
	Confidence  float64         `json:"confidence"`
	Severity    models.Severity `json:"severity,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// NormalizeLabel turns classifier labels like "Exposed Wiring" into catalog form
func NormalizeLabel(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}

// FromImageFinding converts a classifier finding into an ordinary observation.
// Findings without a severity are recorded as medium.
func FromImageFinding(finding ImageFinding) models.DefectObservation {
	severity := finding.Severity
	if strings.TrimSpace(string(severity)) == "" {
		severity = models.SeverityMedium
	}
	return models.DefectObservation{
		RoomID:     finding.RoomID,
		DefectType: NormalizeLabel(finding.DefectLabel),
		Severity:   severity,
		Confidence: finding.Confidence,
		Source:     SourceImage,
		ImageURL:   finding.ImageURL,
	}
}

// MergeFindings folds classifier findings into the manually recorded rooms.
// Rooms seen only by the classifier are added; the result is ordered by room id.
// Manual rooms sharing an id stay separate so the assessment can reject them.
func MergeFindings(rooms []models.RoomInspection, findings []ImageFinding) []models.RoomInspection {
	merged := make([]models.RoomInspection, 0, len(rooms))
	first := make(map[string]int, len(rooms))
	for _, room := range rooms {
		copied := room
		copied.Observations = make([]models.DefectObservation, 0, len(room.Observations))
		for _, obs := range room.Observations {
			if obs.Source == "" {
				obs.Source = SourceManual
			}
			copied.Observations = append(copied.Observations, obs)
		}
		if _, ok := first[room.RoomID]; !ok {
			first[room.RoomID] = len(merged)
		}
		merged = append(merged, copied)
	}

	for _, finding := range findings {
		idx, ok := first[finding.RoomID]
		if !ok {
			idx = len(merged)
			first[finding.RoomID] = idx
			merged = append(merged, models.RoomInspection{RoomID: finding.RoomID, RoomType: finding.RoomType})
		}
		room := &merged[idx]
		if room.RoomType == "" {
			room.RoomType = finding.RoomType
		}
		room.Observations = append(room.Observations, FromImageFinding(finding))
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].RoomID < merged[j].RoomID })
	return merged
}
