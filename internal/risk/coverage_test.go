package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apartmentLayout = map[string]int{"kitchen": 1, "bathroom": 1, "bedroom": 2, "living_room": 1}

func TestComputeCoverage(t *testing.T) {
	tests := []struct {
		name           string
		scored         map[string]string
		wantValue      float64
		wantCounted    int
		underInspected bool
	}{
		{
			name:           "Nothing scored",
			scored:         map[string]string{},
			wantValue:      0,
			underInspected: true,
		},
		{
			name:           "Three of five sits exactly on the threshold",
			scored:         map[string]string{"k1": "kitchen", "b1": "bathroom", "bd1": "bedroom"},
			wantValue:      0.6,
			wantCounted:    3,
			underInspected: false,
		},
		{
			name:           "Two of five",
			scored:         map[string]string{"k1": "kitchen", "b1": "bathroom"},
			wantValue:      0.4,
			wantCounted:    2,
			underInspected: true,
		},
		{
			name: "Every expected room",
			scored: map[string]string{
				"k1": "kitchen", "b1": "bathroom", "bd1": "bedroom", "bd2": "bedroom", "l1": "living_room",
			},
			wantValue:   1.0,
			wantCounted: 5,
		},
		{
			name: "Surplus rooms of one type are capped",
			scored: map[string]string{
				"bd1": "bedroom", "bd2": "bedroom", "bd3": "bedroom", "bd4": "bedroom", "bd5": "bedroom",
			},
			wantValue:      0.4,
			wantCounted:    2,
			underInspected: true,
		},
		{
			name: "Unexpected room types add nothing",
			scored: map[string]string{
				"k1": "kitchen", "b1": "bathroom", "bd1": "bedroom", "bd2": "bedroom", "l1": "living_room", "g1": "garage",
			},
			wantValue:   1.0,
			wantCounted: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage, err := ComputeCoverage(tt.scored, apartmentLayout)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, coverage.Value)
			assert.Equal(t, tt.wantCounted, coverage.CountedRooms)
			assert.Equal(t, 5, coverage.ExpectedRooms)
			assert.Equal(t, len(tt.scored), coverage.ScoredRooms)
			assert.Equal(t, tt.underInspected, coverage.UnderInspected)
			assert.GreaterOrEqual(t, coverage.Value, 0.0)
			assert.LessOrEqual(t, coverage.Value, 1.0)
		})
	}
}

func TestComputeCoverage_InvalidExpectedRooms(t *testing.T) {
	for name, expected := range map[string]map[string]int{
		"Empty":    {},
		"Zero":     {"kitchen": 0},
		"Negative": {"kitchen": 1, "bedroom": -2},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeCoverage(map[string]string{"k1": "kitchen"}, expected)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}
