package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectra/config"
	"inspectra/internal/database"
	"inspectra/internal/metrics"
	"inspectra/internal/models"
	"inspectra/internal/processor"
	"inspectra/internal/queue"
	"inspectra/internal/risk"
)

type testServer struct {
	router    *gin.Engine
	db        *database.Database
	handler   *Handler
	processor *processor.BatchProcessor
	queue     *queue.InspectionQueue
}

type fakeGeocoder struct {
	lat, lon float64
	err      error
}

func (g fakeGeocoder) GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error) {
	return g.lat, g.lon, g.err
}

func setupTestServer(t *testing.T, queueSize, maxBatch int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	gormDB, err := database.NewTestDB()
	require.NoError(t, err)
	require.NoError(t, database.MigrateSchema(gormDB))
	db := database.New(gormDB, logger)

	defaults := config.DefaultScoringTables()
	tables, err := risk.NewTables(defaults.Defects, defaults.RoomImportance, defaults.PropertyLayouts)
	require.NoError(t, err)
	engine := risk.NewEngine(tables, logger)

	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 1
	cfg.BatchProcessing.MaxRetries = 0

	q := queue.NewInspectionQueue(queueSize, logger)
	p := processor.NewBatchProcessor(db, engine, q, cfg, logger)

	m := metrics.NewMetrics()
	p.SetMetrics(m)
	handler := NewHandler(db, engine, p, q, maxBatch, logger)
	handler.SetMetrics(m)

	router := gin.New()
	SetupRoutes(router, handler, m)

	return &testServer{router: router, db: db, handler: handler, processor: p, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

const apartmentAssessment = `{
	"property_id": "prop-1",
	"property_type": "apartment",
	"inspected_at": "2026-01-10T09:00:00Z",
	"rooms": [
		{"room_id": "k1", "room_type": "kitchen", "observations": [
			{"room_id": "k1", "defect_type": "exposed_wiring", "severity": "high", "confidence": 0.9}
		]},
		{"room_id": "b1", "room_type": "bathroom"},
		{"room_id": "bd1", "room_type": "bedroom"}
	],
	"findings": [
		{"room_id": "b1", "room_type": "bathroom", "defect_label": "Mold Stain", "confidence": 0.8}
	]
}`

func TestGetCatalog(t *testing.T) {
	s := setupTestServer(t, 4, 10)

	w := s.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.DefectCatalogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, len(config.DefectTypes))
}

func TestCreateAssessment(t *testing.T) {
	s := setupTestServer(t, 4, 10)

	w := s.do(t, http.MethodPost, "/api/assessments", apartmentAssessment)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var snapshot models.PropertySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, "prop-1", snapshot.PropertyID)
	assert.Equal(t, 0.6, snapshot.Coverage)
	assert.False(t, snapshot.UnderInspected)
	require.Len(t, snapshot.RoomScores, 3)
	assert.Equal(t, "b1", snapshot.RoomScores[0].RoomID)
	assert.Equal(t, 1, snapshot.RoomScores[0].ObservationCount)

	// The snapshot is stored and the property registered
	w = s.do(t, http.MethodGet, "/api/properties/prop-1/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.PropertySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, snapshot.ID, history[0].ID)

	w = s.do(t, http.MethodGet, "/api/bank-signals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var signals []models.BankSignal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signals))
	require.Len(t, signals, 1)
	assert.Equal(t, snapshot.DecisionSignal, signals[0].DecisionSignal)
}

func TestCreateAssessment_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{
			name:   "malformed body",
			body:   `{"property_id":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown defect",
			body:   `{"property_id":"p","property_type":"studio","rooms":[{"room_id":"r1","room_type":"kitchen","observations":[{"room_id":"r1","defect_type":"alien_infestation","severity":"low","confidence":1}]}]}`,
			status: http.StatusUnprocessableEntity,
			reason: "unknown_defect",
		},
		{
			name:   "confidence out of range",
			body:   `{"property_id":"p","property_type":"studio","rooms":[{"room_id":"r1","room_type":"kitchen","observations":[{"room_id":"r1","defect_type":"dampness","severity":"low","confidence":1.5}]}]}`,
			status: http.StatusUnprocessableEntity,
			reason: "invalid_observation",
		},
		{
			name:   "no rooms",
			body:   `{"property_id":"p","property_type":"studio","rooms":[]}`,
			status: http.StatusUnprocessableEntity,
			reason: "empty_property",
		},
		{
			name:   "unknown property type",
			body:   `{"property_id":"p","property_type":"castle","rooms":[{"room_id":"r1","room_type":"kitchen"}]}`,
			status: http.StatusUnprocessableEntity,
			reason: "invalid_observation",
		},
		{
			name:   "zero expected room count",
			body:   `{"property_id":"p","expected_rooms":{"kitchen":0},"rooms":[{"room_id":"r1","room_type":"kitchen"}]}`,
			status: http.StatusUnprocessableEntity,
			reason: "invalid_observation",
		},
		{
			name: "duplicate room ids",
			body: `{"property_id":"p","property_type":"studio","rooms":[
				{"room_id":"r1","room_type":"kitchen","observations":[{"room_id":"r1","defect_type":"tile_damage","severity":"low","confidence":1}]},
				{"room_id":"r1","room_type":"bathroom","observations":[{"room_id":"r1","defect_type":"foundation_crack","severity":"high","confidence":1}]}]}`,
			status: http.StatusUnprocessableEntity,
			reason: "invalid_observation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, 4, 10)

			w := s.do(t, http.MethodPost, "/api/assessments", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			if tt.reason != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.reason, body["reason"])
			}

			// Nothing is stored for a rejected inspection
			latest, err := s.db.GetLatestSnapshots()
			require.NoError(t, err)
			assert.Empty(t, latest)
		})
	}
}

func TestGetLatestSnapshot(t *testing.T) {
	s := setupTestServer(t, 4, 10)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/assessments", apartmentAssessment).Code)

	t.Run("all rooms", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/properties/prop-1/latest", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var latest LatestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
		require.Len(t, latest.Rooms, 3)
		assert.Len(t, latest.RoomScores, 3)
		for _, room := range latest.Rooms {
			assert.Equal(t, room.RoomScore.Band(), room.Band)
		}
	})

	t.Run("electrical focus", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/properties/prop-1/latest?focus=electrical", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var latest LatestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
		require.Len(t, latest.Rooms, 3)
		for _, room := range latest.Rooms {
			for _, defect := range room.TopContributingDefects {
				assert.Equal(t, models.CategoryElectrical, defect.Category)
			}
		}
	})

	t.Run("high risk only", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/properties/prop-1/latest?high_risk_only=true", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var latest LatestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
		for _, room := range latest.Rooms {
			assert.GreaterOrEqual(t, room.Score, float64(risk.HighRiskRoomScore))
		}
	})

	t.Run("bad parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/properties/prop-1/latest?focus=plumbing", nil).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/properties/prop-1/latest?high_risk_only=maybe", nil).Code)
	})

	t.Run("unknown property", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/properties/nope/latest", nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/properties/nope/snapshots", nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/properties/nope/trend", nil).Code)
	})
}

func TestGetTrend(t *testing.T) {
	s := setupTestServer(t, 4, 10)

	assessment := func(date, severity string) string {
		return `{"property_id":"prop-1","property_type":"studio","inspected_at":"` + date + `",
			"rooms":[{"room_id":"k1","room_type":"kitchen","observations":[
				{"room_id":"k1","defect_type":"structural_crack","severity":"` + severity + `","confidence":1}]},
				{"room_id":"b1","room_type":"bathroom"},{"room_id":"l1","room_type":"living_room"}]}`
	}

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/assessments", assessment("2026-01-01T00:00:00Z", "low")).Code)

	w := s.do(t, http.MethodGet, "/api/properties/prop-1/trend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trend models.TrendResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trend))
	assert.Equal(t, models.TrendInsufficientData, trend.Direction)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/assessments", assessment("2026-04-01T00:00:00Z", "critical")).Code)

	w = s.do(t, http.MethodGet, "/api/properties/prop-1/trend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trend))
	assert.Equal(t, "prop-1", trend.PropertyID)
	assert.Equal(t, models.TrendWorsening, trend.Direction)
	assert.Greater(t, trend.Slope, 0.0)
}

func TestUpsertPropertyAndRiskMap(t *testing.T) {
	s := setupTestServer(t, 4, 10)

	w := s.do(t, http.MethodPost, "/api/properties", `{"id":"prop-1","property_type":"apartment","street":"Damrak 1","city":"Amsterdam","postal_code":"1012LG","latitude":52.3756,"longitude":4.8965}`)
	require.Equal(t, http.StatusOK, w.Code)

	// Without a geocoder the property stays off the map
	w = s.do(t, http.MethodPost, "/api/properties", `{"id":"prop-2","property_type":"studio","street":"Oudegracht 1","city":"Utrecht"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/properties", `{"property_type":"studio"}`).Code)

	// Re-posting without coordinates or type keeps prop-1 on the map
	w = s.do(t, http.MethodPost, "/api/properties", `{"id":"prop-1","street":"Damrak 2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := s.db.GetProperty("prop-1")
	require.NoError(t, err)
	assert.Equal(t, "apartment", stored.PropertyType)
	assert.Equal(t, "Damrak 2", stored.Street)
	assert.True(t, stored.HasCoordinates())

	w = s.do(t, http.MethodGet, "/api/risk-map", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string                 `json:"id"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "prop-1", fc.Features[0].ID)
	assert.Equal(t, false, fc.Features[0].Properties["assessed"])
}

func TestGeocoding(t *testing.T) {
	s := setupTestServer(t, 4, 10)

	// Disabled until a geocoder is configured
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/properties/geocode", nil).Code)

	require.NoError(t, s.db.UpsertProperty(&models.Property{ID: "prop-1", Street: "Damrak 1", City: "Amsterdam"}))
	require.NoError(t, s.db.UpsertProperty(&models.Property{ID: "prop-2", Street: "Nowhere 0", City: "Atlantis"}))

	s.handler.SetGeocoder(fakeGeocoder{lat: 52.37, lon: 4.89})
	w := s.do(t, http.MethodPost, "/api/properties/geocode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":2,"failed":0}`, w.Body.String())

	property, err := s.db.GetProperty("prop-1")
	require.NoError(t, err)
	require.True(t, property.HasCoordinates())
	assert.Equal(t, 52.37, *property.Latitude)

	// A failing lookup still stores the property
	s.handler.SetGeocoder(fakeGeocoder{err: errors.New("no results")})
	w = s.do(t, http.MethodPost, "/api/properties", `{"id":"prop-3","street":"Nowhere 1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	property, err = s.db.GetProperty("prop-3")
	require.NoError(t, err)
	require.NotNil(t, property)
	assert.False(t, property.HasCoordinates())
}

func TestEnqueueInspections(t *testing.T) {
	s := setupTestServer(t, 4, 2)

	body := func(n int) string {
		items := make([]string, n)
		for i := range items {
			items[i] = `{"property_id":"prop-` + string(rune('a'+i)) + `","property_type":"studio","rooms":[{"room_id":"k1","room_type":"kitchen"}]}`
		}
		return `{"inspections":[` + strings.Join(items, ",") + `]}`
	}

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/inspections/batch", `{"inspections":[]}`).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.do(t, http.MethodPost, "/api/inspections/batch", body(3)).Code)

	w := s.do(t, http.MethodPost, "/api/inspections/batch", body(2))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"accepted":2}`, w.Body.String())

	// Drain the queue
	s.processor.Start()
	s.processor.Stop()

	latest, err := s.db.GetLatestSnapshots()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "prop-a", latest[0].PropertyID)
	assert.Equal(t, "prop-b", latest[1].PropertyID)

	// The queue is closed once the processor has stopped
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/inspections/batch", body(1)).Code)
}

func TestEnqueueInspections_QueueFull(t *testing.T) {
	s := setupTestServer(t, 1, 10)
	batch := `{"inspections":[{"property_id":"p","property_type":"studio","rooms":[{"room_id":"k1","room_type":"kitchen"}]}]}`

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/api/inspections/batch", batch).Code)

	w := s.do(t, http.MethodPost, "/api/inspections/batch", batch)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), queue.ErrQueueFull.Error())
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t, 4, 10)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/assessments", apartmentAssessment).Code)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inspectra_assessments_total")
}
