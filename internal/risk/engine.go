package risk

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inspectra/internal/models"
)

// Engine runs the full assessment pipeline over immutable tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	tables *Tables
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine creates an engine over validated tables
func NewEngine(tables *Tables, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Engine{
		tables: tables,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Tables exposes the static configuration the engine was built with
func (e *Engine) Tables() *Tables {
	return e.tables
}

// ScoreRoom scores a single room against the engine's catalog
func (e *Engine) ScoreRoom(room models.RoomInspection) (models.RoomScore, error) {
	return ScoreRoom(e.tables.Catalog, room.RoomID, room.RoomType, room.Observations)
}

// Assess turns one inspection into a new PropertySnapshot
func (e *Engine) Assess(inspection models.Inspection) (models.PropertySnapshot, error) {
	if inspection.PropertyID == "" {
		return models.PropertySnapshot{}, &InvalidObservationError{Field: "property_id", Reason: "is required"}
	}

	expected, err := e.expectedRooms(inspection)
	if err != nil {
		return models.PropertySnapshot{}, err
	}

	scores := make([]models.RoomScore, 0, len(inspection.Rooms))
	scored := make(map[string]string, len(inspection.Rooms))
	for _, room := range inspection.Rooms {
		if room.RoomID == "" {
			return models.PropertySnapshot{}, &InvalidObservationError{Field: "room_id", Reason: "is required"}
		}
		if _, dup := scored[room.RoomID]; dup {
			return models.PropertySnapshot{}, &InvalidObservationError{RoomID: room.RoomID, Field: "room_id", Reason: "appears more than once in the inspection"}
		}

		score, err := e.ScoreRoom(room)
		if err != nil {
			return models.PropertySnapshot{}, err
		}
		scores = append(scores, score)
		scored[room.RoomID] = room.RoomType
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].RoomID < scores[j].RoomID })

	coverage, err := ComputeCoverage(scored, expected)
	if err != nil {
		return models.PropertySnapshot{}, err
	}

	aggregate, err := AggregateProperty(e.tables, scores, coverage.Value)
	if err != nil {
		var empty *EmptyPropertyError
		if errors.As(err, &empty) {
			empty.PropertyID = inspection.PropertyID
		}
		return models.PropertySnapshot{}, err
	}

	timestamp := inspection.InspectedAt
	if timestamp.IsZero() {
		timestamp = e.now()
	}

	snapshot := models.PropertySnapshot{
		ID:             e.newID(),
		PropertyID:     inspection.PropertyID,
		Timestamp:      timestamp.UTC(),
		RoomScores:     scores,
		Coverage:       coverage.Value,
		UnderInspected: coverage.UnderInspected,
		PropertyScore:  aggregate.PropertyScore,
		RiskTier:       aggregate.RiskTier,
		Explanation:    Explanation(ComposeExplanation(scores, aggregate.PropertyScore, aggregate.RiskTier, coverage)),
		DecisionSignal: DecideSignal(aggregate.RiskTier, coverage.Value),
	}

	e.logger.WithFields(logrus.Fields{
		"property_id":     snapshot.PropertyID,
		"rooms":           len(scores),
		"coverage":        snapshot.Coverage,
		"property_score":  snapshot.PropertyScore,
		"risk_tier":       snapshot.RiskTier,
		"decision_signal": snapshot.DecisionSignal,
	}).Debug("Assessed property")

	return snapshot, nil
}

// Trend computes the direction of travel across a property's snapshots
func (e *Engine) Trend(snapshots []models.PropertySnapshot) models.TrendResult {
	return ComputeTrend(snapshots)
}

// expectedRooms resolves the room list coverage is measured against. Problems here come
// from the request, not the static tables, so they are reported as invalid input.
func (e *Engine) expectedRooms(inspection models.Inspection) (map[string]int, error) {
	if len(inspection.ExpectedRooms) > 0 {
		for roomType, count := range inspection.ExpectedRooms {
			if count <= 0 {
				return nil, &InvalidObservationError{
					Field:  "expected_rooms",
					Reason: fmt.Sprintf("count for %q must be positive, got %d", roomType, count),
				}
			}
		}
		return inspection.ExpectedRooms, nil
	}
	expected, ok := e.tables.ExpectedRooms(inspection.PropertyType)
	if !ok {
		return nil, &InvalidObservationError{
			Field:  "property_type",
			Reason: fmt.Sprintf("%q has no expected room list and none was supplied", inspection.PropertyType),
		}
	}
	return expected, nil
}
