package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"inspectra/internal/models"
)

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return New(db, logger), nil
}

// New wraps an already opened gorm connection
func New(db *gorm.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.New()
	}
	return &Database{db: db, logger: logger}
}

// NewTestDB opens a private in-memory database
func NewTestDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// A shared in-memory database reports table locks instead of waiting on them.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fc inside a database transaction
func (d *Database) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return d.db.Transaction(fc, opts...)
}

// UpsertProperties inserts or updates property metadata within tx
func UpsertProperties(tx *gorm.DB, properties []*models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"property_type", "street", "city", "postal_code", "year_built", "latitude", "longitude", "updated_at"}),
	}).Create(properties).Error
}

// EnsureProperties creates any property that is not stored yet and leaves
// existing metadata untouched.
func EnsureProperties(tx *gorm.DB, properties []*models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(properties).Error
}

// InsertSnapshots stores new snapshots within tx. Snapshots are never updated,
// so an existing id is a conflict.
func InsertSnapshots(tx *gorm.DB, snapshots []*models.PropertySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return tx.Create(snapshots).Error
}

// UpsertProperty stores property metadata. Fields the caller leaves empty keep their
// stored values, so a partial update never drops a property off the map.
func (d *Database) UpsertProperty(property *models.Property) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var stored models.Property
		err := tx.Where("id = ?", property.ID).First(&stored).Error
		switch {
		case err == nil:
			keepStored(property, &stored)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load property %s: %w", property.ID, err)
		}
		return UpsertProperties(tx, []*models.Property{property})
	})
}

func keepStored(property, stored *models.Property) {
	if property.PropertyType == "" {
		property.PropertyType = stored.PropertyType
	}
	if property.Street == "" {
		property.Street = stored.Street
	}
	if property.City == "" {
		property.City = stored.City
	}
	if property.PostalCode == "" {
		property.PostalCode = stored.PostalCode
	}
	if property.YearBuilt == nil {
		property.YearBuilt = stored.YearBuilt
	}
	if !property.HasCoordinates() {
		property.Latitude = stored.Latitude
		property.Longitude = stored.Longitude
	}
	property.CreatedAt = stored.CreatedAt
}

// GetProperty returns nil when the property is unknown
func (d *Database) GetProperty(id string) (*models.Property, error) {
	var property models.Property
	err := d.db.Where("id = ?", id).First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &property, nil
}

func (d *Database) GetProperties() ([]models.Property, error) {
	var properties []models.Property
	if err := d.db.Order("id").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to get properties: %w", err)
	}
	return properties, nil
}

func (d *Database) SaveSnapshot(snapshot *models.PropertySnapshot) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return InsertSnapshots(tx, []*models.PropertySnapshot{snapshot})
	})
}

// GetSnapshots returns the inspection history of a property, oldest first
func (d *Database) GetSnapshots(propertyID string) ([]models.PropertySnapshot, error) {
	snapshots := []models.PropertySnapshot{}
	err := d.db.Where("property_id = ?", propertyID).
		Order("timestamp ASC").Order("created_at ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots for %s: %w", propertyID, err)
	}
	return snapshots, nil
}

// GetLatestSnapshot returns nil when the property has never been assessed
func (d *Database) GetLatestSnapshot(propertyID string) (*models.PropertySnapshot, error) {
	var snapshot models.PropertySnapshot
	err := d.db.Where("property_id = ?", propertyID).
		Order("timestamp DESC").Order("created_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot for %s: %w", propertyID, err)
	}
	return &snapshot, nil
}

// GetLatestSnapshots returns the newest snapshot of every property, ordered by property id
func (d *Database) GetLatestSnapshots() ([]models.PropertySnapshot, error) {
	var candidates []models.PropertySnapshot
	err := d.db.Where(`timestamp = (
			SELECT MAX(s.timestamp) FROM property_snapshots s
			WHERE s.property_id = property_snapshots.property_id
		)`).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshots: %w", err)
	}

	// Two inspections can share a timestamp; keep the one stored last.
	latest := make(map[string]models.PropertySnapshot, len(candidates))
	for _, snap := range candidates {
		current, ok := latest[snap.PropertyID]
		if !ok || snap.CreatedAt.After(current.CreatedAt) {
			latest[snap.PropertyID] = snap
		}
	}

	out := make([]models.PropertySnapshot, 0, len(latest))
	for _, snap := range latest {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out, nil
}

// GetBankSignals builds the lender view from each property's latest snapshot
func (d *Database) GetBankSignals() ([]models.BankSignal, error) {
	latest, err := d.GetLatestSnapshots()
	if err != nil {
		return nil, err
	}

	signals := make([]models.BankSignal, 0, len(latest))
	for _, snap := range latest {
		signals = append(signals, models.BankSignal{
			PropertyID:     snap.PropertyID,
			SnapshotID:     snap.ID,
			InspectedAt:    snap.Timestamp,
			PropertyScore:  snap.PropertyScore,
			RiskTier:       snap.RiskTier,
			Coverage:       snap.Coverage,
			UnderInspected: snap.UnderInspected,
			DecisionSignal: snap.DecisionSignal,
		})
	}
	return signals, nil
}
