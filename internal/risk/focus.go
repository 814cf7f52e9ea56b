package risk

import "inspectra/internal/models"

// HighRiskRoomScore is the cut-off used when only high-risk rooms are requested
const HighRiskRoomScore = 60

// FocusRooms narrows room scores for display. A non-empty category keeps only that
// category's contributors; highRiskOnly drops rooms scoring below HighRiskRoomScore.
// Scores themselves are never recomputed.
func FocusRooms(roomScores []models.RoomScore, category models.Category, highRiskOnly bool) []models.RoomScore {
	out := make([]models.RoomScore, 0, len(roomScores))
	for _, room := range roomScores {
		if highRiskOnly && room.Score < HighRiskRoomScore {
			continue
		}
		if category != "" {
			filtered := make([]models.DefectContribution, 0, len(room.TopContributingDefects))
			for _, defect := range room.TopContributingDefects {
				if defect.Category == category {
					filtered = append(filtered, defect)
				}
			}
			room.TopContributingDefects = filtered
		}
		out = append(out, room)
	}
	return out
}
