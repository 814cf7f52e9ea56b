package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inspectra/internal/database"
	"inspectra/internal/geometry"
	"inspectra/internal/intake"
	"inspectra/internal/metrics"
	"inspectra/internal/models"
	"inspectra/internal/processor"
	"inspectra/internal/queue"
	"inspectra/internal/risk"
)

// AddressGeocoder resolves property addresses for the risk map
type AddressGeocoder interface {
	GeocodeAddress(ctx context.Context, street, postalCode, city string) (float64, float64, error)
}

type Handler struct {
	db        *database.Database
	engine    *risk.Engine
	processor *processor.BatchProcessor
	queue     *queue.InspectionQueue
	geocoder  AddressGeocoder
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	maxBatch  int
}

// AssessmentRequest is an inspection plus optional image classifier findings
type AssessmentRequest struct {
	models.Inspection
	Findings []intake.ImageFinding `json:"findings"`
}

func (r AssessmentRequest) toInspection() *models.Inspection {
	inspection := r.Inspection
	if len(r.Findings) > 0 || len(inspection.Rooms) > 0 {
		inspection.Rooms = intake.MergeFindings(inspection.Rooms, r.Findings)
	}
	return &inspection
}

type BatchRequest struct {
	Inspections []AssessmentRequest `json:"inspections"`
}

// LatestResponse is the latest snapshot with the room view applied
type LatestResponse struct {
	models.PropertySnapshot
	Rooms []RoomView `json:"rooms"`
}

// RoomView is a room score with its heatmap band
type RoomView struct {
	models.RoomScore
	Band string `json:"band"`
}

func NewHandler(db *database.Database, engine *risk.Engine, processor *processor.BatchProcessor, queue *queue.InspectionQueue, maxBatch int, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		engine:    engine,
		processor: processor,
		queue:     queue,
		logger:    logger,
		maxBatch:  maxBatch,
	}
}

func (h *Handler) SetGeocoder(geocoder AddressGeocoder) {
	h.geocoder = geocoder
}

func (h *Handler) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Tables().Catalog.Entries())
}

func (h *Handler) UpsertProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		h.logger.WithError(err).Error("Invalid property body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if property.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Property id is required"})
		return
	}

	if !property.HasCoordinates() && h.geocoder != nil {
		h.geocode(c.Request.Context(), &property)
	}

	if err := h.db.UpsertProperty(&property); err != nil {
		h.logger.WithError(err).Error("Failed to store property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store property"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// geocode fills in coordinates; a failed lookup leaves the property off the map
func (h *Handler) geocode(ctx context.Context, property *models.Property) bool {
	lat, lon, err := h.geocoder.GeocodeAddress(ctx, property.Street, property.PostalCode, property.City)
	if err != nil {
		h.logger.WithError(err).WithField("property_id", property.ID).Warn("Failed to geocode property")
		return false
	}
	property.Latitude = &lat
	property.Longitude = &lon
	return true
}

// UpdateCoordinates geocodes every stored property that has no coordinates yet
func (h *Handler) UpdateCoordinates(c *gin.Context) {
	if h.geocoder == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Geocoding is disabled"})
		return
	}

	properties, err := h.db.GetProperties()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get properties"})
		return
	}

	updated, failed := 0, 0
	for i := range properties {
		property := &properties[i]
		if property.HasCoordinates() {
			continue
		}
		if !h.geocode(c.Request.Context(), property) {
			failed++
			continue
		}
		if err := h.db.UpsertProperty(property); err != nil {
			h.logger.WithError(err).WithField("property_id", property.ID).Error("Failed to store coordinates")
			failed++
			continue
		}
		updated++
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated, "failed": failed})
}

func (h *Handler) CreateAssessment(c *gin.Context) {
	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid assessment body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	snapshot, err := h.processor.Process(c.Request.Context(), req.toInspection())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

func (h *Handler) EnqueueInspections(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid batch body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Inspections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one inspection is required"})
		return
	}
	if h.maxBatch > 0 && len(req.Inspections) > h.maxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("A batch holds at most %d inspections", h.maxBatch)})
		return
	}

	batch := make([]*models.Inspection, 0, len(req.Inspections))
	for _, item := range req.Inspections {
		batch = append(batch, item.toInspection())
	}

	if err := h.queue.Push(batch); err != nil {
		h.metrics.QueueRejected()
		h.logger.WithError(err).WithField("batch_size", len(batch)).Warn("Inspection batch rejected")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": len(batch)})
}

func (h *Handler) GetSnapshots(c *gin.Context) {
	id := c.Param("id")
	if !h.requireProperty(c, id) {
		return
	}

	snapshots, err := h.db.GetSnapshots(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get snapshots"})
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

func (h *Handler) GetLatestSnapshot(c *gin.Context) {
	category := models.Category(c.Query("focus"))
	if category != "" && !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown focus category %q", category)})
		return
	}

	highRiskOnly := false
	if raw := c.Query("high_risk_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "high_risk_only must be a boolean"})
			return
		}
		highRiskOnly = parsed
	}

	snapshot, err := h.db.GetLatestSnapshot(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest snapshot"})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No snapshot found for property"})
		return
	}

	focused := risk.FocusRooms(snapshot.RoomScores, category, highRiskOnly)
	rooms := make([]RoomView, 0, len(focused))
	for _, room := range focused {
		rooms = append(rooms, RoomView{RoomScore: room, Band: room.Band()})
	}

	c.JSON(http.StatusOK, LatestResponse{PropertySnapshot: *snapshot, Rooms: rooms})
}

func (h *Handler) GetTrend(c *gin.Context) {
	id := c.Param("id")
	if !h.requireProperty(c, id) {
		return
	}

	snapshots, err := h.db.GetSnapshots(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get snapshots"})
		return
	}

	trend := h.engine.Trend(snapshots)
	trend.PropertyID = id
	c.JSON(http.StatusOK, trend)
}

func (h *Handler) GetBankSignals(c *gin.Context) {
	signals, err := h.db.GetBankSignals()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get bank signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get bank signals"})
		return
	}

	c.JSON(http.StatusOK, signals)
}

func (h *Handler) GetRiskMap(c *gin.Context) {
	properties, err := h.db.GetProperties()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get properties"})
		return
	}

	latest, err := h.db.GetLatestSnapshots()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest snapshots"})
		return
	}

	c.JSON(http.StatusOK, geometry.BuildRiskMap(properties, latest))
}

func (h *Handler) requireProperty(c *gin.Context, id string) bool {
	property, err := h.db.GetProperty(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get property"})
		return false
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return false
	}
	return true
}

// respondError maps assessment errors to client errors and everything else to 500
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := processor.ErrorKind(err)

	var cfg *risk.ConfigurationError
	switch {
	case errors.As(err, &cfg):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": kind})
	case kind == "unknown_defect" || kind == "invalid_observation" || kind == "empty_property":
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": kind})
	default:
		h.logger.WithError(err).Error("Failed to assess inspection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assess inspection", "reason": kind})
	}
}
