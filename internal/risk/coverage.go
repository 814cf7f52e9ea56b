package risk

// Coverage is the inspection-completeness metric for a property
type Coverage struct {
	Value          float64 `json:"value"`
	ScoredRooms    int     `json:"scored_rooms"`
	CountedRooms   int     `json:"counted_rooms"`
	ExpectedRooms  int     `json:"expected_rooms"`
	UnderInspected bool    `json:"under_inspected"`
}

// ComputeCoverage measures how many expected rooms were scored.
// scoredRooms maps room id to room type. Each room type counts at most its expected number of rooms,
// so extra bathrooms never make up for a missing kitchen.
func ComputeCoverage(scoredRooms map[string]string, expected map[string]int) (Coverage, error) {
	if err := validateExpectedRooms("expected rooms", expected); err != nil {
		return Coverage{}, err
	}

	perType := make(map[string]int, len(expected))
	for _, roomType := range scoredRooms {
		perType[roomType]++
	}

	total, matched := 0, 0
	for roomType, want := range expected {
		total += want
		matched += min(perType[roomType], want)
	}

	value := min(float64(matched)/float64(total), 1.0)
	return Coverage{
		Value:          value,
		ScoredRooms:    len(scoredRooms),
		CountedRooms:   matched,
		ExpectedRooms:  total,
		UnderInspected: value < CoverageThreshold,
	}, nil
}
