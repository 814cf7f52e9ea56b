package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultScoringTables(t *testing.T) {
	tables := DefaultScoringTables()

	assert.Len(t, tables.Defects, len(DefectTypes))
	assert.Equal(t, RoomImportance, tables.RoomImportance)
	assert.Equal(t, PropertyLayouts, tables.PropertyLayouts)

	// Callers get copies, never the package tables
	tables.Defects[0].BaseWeight = 99
	tables.RoomImportance["kitchen"] = 99
	tables.PropertyLayouts["apartment"]["kitchen"] = 99
	assert.NotEqual(t, 99.0, DefectTypes[0].BaseWeight)
	assert.NotEqual(t, 99.0, RoomImportance["kitchen"])
	assert.NotEqual(t, 99, PropertyLayouts["apartment"]["kitchen"])
}

func TestLoadScoringTables(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		tables, err := LoadScoringTables("")
		require.NoError(t, err)
		assert.Equal(t, DefaultScoringTables(), tables)
	})

	t.Run("file replaces only the tables it names", func(t *testing.T) {
		path := writeTables(t, `{"property_layouts": {"bungalow": {"kitchen": 1, "bedroom": 2}}}`)

		tables, err := LoadScoringTables(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]map[string]int{"bungalow": {"kitchen": 1, "bedroom": 2}}, tables.PropertyLayouts)
		assert.Len(t, tables.Defects, len(DefectTypes))
		assert.Equal(t, RoomImportance, tables.RoomImportance)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadScoringTables(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read scoring tables")
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := LoadScoringTables(writeTables(t, `{"defects": [`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse scoring tables")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "5250", cfg.Server.Port)
		assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
		assert.Equal(t, "inspectra.snapshots", cfg.Kafka.Topic)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, 365, cfg.Scheduler.ReinspectionAfterDays)
		assert.False(t, cfg.Geocoding.Enabled)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("BATCH_PROCESSOR_COUNT", "8")
		t.Setenv("GEOCODING_ENABLED", "true")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 8, cfg.BatchProcessing.ProcessorCount)
		assert.True(t, cfg.Geocoding.Enabled)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Setenv("BATCH_MAX_RETRIES", "many")

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestLayoutsReferenceKnownRooms(t *testing.T) {
	tables := DefaultScoringTables()
	assert.Equal(t, []string{"apartment", "house", "studio"}, tables.PropertyTypes())

	for _, propertyType := range tables.PropertyTypes() {
		for roomType, count := range PropertyLayouts[propertyType] {
			assert.Contains(t, RoomImportance, roomType, "layout %s", propertyType)
			assert.Positive(t, count)
		}
	}
}
