package risk

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"inspectra/internal/models"
)

// ComposeExplanation renders the plain-language narrative for a property.
// The sequence can be ranged over any number of times and always yields the same lines.
func ComposeExplanation(roomScores []models.RoomScore, propertyScore float64, tier models.RiskTier, coverage Coverage) iter.Seq[string] {
	ranked := make([]models.RoomScore, len(roomScores))
	copy(ranked, roomScores)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].RoomID < ranked[j].RoomID
	})

	return func(yield func(string) bool) {
		if !yield(fmt.Sprintf("Property risk score %.1f/100 (%s risk).", propertyScore, tier)) {
			return
		}
		for _, room := range ranked {
			if !yield(describeRoom(room)) {
				return
			}
		}
		if !yield(fmt.Sprintf("Inspection coverage %.0f%% (%d of %d expected rooms).",
			coverage.Value*100, coverage.CountedRooms, coverage.ExpectedRooms)) {
			return
		}
		if coverage.UnderInspected {
			yield(fmt.Sprintf("Caveat: fewer than %.0f%% of expected rooms were inspected; this assessment is provisional and the score has been raised to stay on the side of caution.",
				CoverageThreshold*100))
		}
	}
}

// Explanation joins the composed lines into the text stored on a snapshot
func Explanation(lines iter.Seq[string]) string {
	var b strings.Builder
	for line := range lines {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func describeRoom(room models.RoomScore) string {
	label := fmt.Sprintf("%s (%s)", humanize(room.RoomType), room.RoomID)
	if room.ObservationCount == 0 {
		return fmt.Sprintf("%s: score %.1f, no defects found.", label, room.Score)
	}

	cited := make([]string, 0, len(room.TopContributingDefects))
	for _, defect := range room.TopContributingDefects {
		cited = append(cited, fmt.Sprintf("%s [%s, %.3f]", humanize(defect.DefectType), defect.Category, defect.Contribution))
	}
	return fmt.Sprintf("%s: score %.1f; main contributors: %s.", label, room.Score, strings.Join(cited, ", "))
}

func humanize(identifier string) string {
	return strings.ReplaceAll(identifier, "_", " ")
}
