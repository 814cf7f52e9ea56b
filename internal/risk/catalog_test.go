package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectra/config"
	"inspectra/internal/models"
)

func newTestTables(t testing.TB) *Tables {
	t.Helper()
	defaults := config.DefaultScoringTables()
	tables, err := NewTables(defaults.Defects, defaults.RoomImportance, defaults.PropertyLayouts)
	require.NoError(t, err)
	return tables
}

func TestCatalog_Lookup(t *testing.T) {
	tables := newTestTables(t)

	entry, err := tables.Catalog.Lookup("structural_crack")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryStructural, entry.Category)
	assert.Equal(t, 0.8, entry.BaseWeight)

	_, err = tables.Catalog.Lookup("alien_infestation")
	var unknown *UnknownDefectError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "alien_infestation", unknown.DefectType)
}

func TestCatalog_EntriesSorted(t *testing.T) {
	tables := newTestTables(t)

	entries := tables.Catalog.Entries()
	require.Len(t, entries, tables.Catalog.Len())
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].DefectType, entries[i].DefectType)
	}
}

func TestNewTables_ConfigurationErrors(t *testing.T) {
	valid := []models.DefectCatalogEntry{{DefectType: "dampness", BaseWeight: 0.5, Category: models.CategoryStructural}}
	layouts := map[string]map[string]int{"studio": {"kitchen": 1}}

	tests := []struct {
		name       string
		defects    []models.DefectCatalogEntry
		importance map[string]float64
		layouts    map[string]map[string]int
	}{
		{
			name:    "Empty catalog",
			defects: nil,
			layouts: layouts,
		},
		{
			name:    "Zero base weight",
			defects: []models.DefectCatalogEntry{{DefectType: "dampness", BaseWeight: 0, Category: models.CategoryStructural}},
			layouts: layouts,
		},
		{
			name:    "Unknown category",
			defects: []models.DefectCatalogEntry{{DefectType: "dampness", BaseWeight: 0.5, Category: "cosmetic"}},
			layouts: layouts,
		},
		{
			name: "Duplicate defect type",
			defects: []models.DefectCatalogEntry{
				{DefectType: "dampness", BaseWeight: 0.5, Category: models.CategoryStructural},
				{DefectType: "dampness", BaseWeight: 0.4, Category: models.CategoryFinishing},
			},
			layouts: layouts,
		},
		{
			name:       "Negative room importance",
			defects:    valid,
			importance: map[string]float64{"kitchen": -1},
			layouts:    layouts,
		},
		{
			name:    "Zero expected room count",
			defects: valid,
			layouts: map[string]map[string]int{"studio": {"kitchen": 0}},
		},
		{
			name:    "Layout without rooms",
			defects: valid,
			layouts: map[string]map[string]int{"studio": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTables(tt.defects, tt.importance, tt.layouts)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
		})
	}
}

func TestTables_RoomImportance(t *testing.T) {
	tables, err := NewTables(
		[]models.DefectCatalogEntry{{DefectType: "dampness", BaseWeight: 0.5, Category: models.CategoryStructural}},
		map[string]float64{"basement": 2, "closet": 0},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 2.0, tables.RoomImportance("basement"))
	assert.Equal(t, MinRoomImportance, tables.RoomImportance("closet"))
	assert.Equal(t, DefaultRoomImportance, tables.RoomImportance("conservatory"))
}

func TestTables_ExpectedRoomsIsACopy(t *testing.T) {
	tables := newTestTables(t)

	layout, ok := tables.ExpectedRooms("apartment")
	require.True(t, ok)
	layout["kitchen"] = 99

	again, _ := tables.ExpectedRooms("apartment")
	assert.Equal(t, 1, again["kitchen"])

	_, ok = tables.ExpectedRooms("castle")
	assert.False(t, ok)
}
