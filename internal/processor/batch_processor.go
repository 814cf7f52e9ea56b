package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"inspectra/config"
	"inspectra/internal/database"
	"inspectra/internal/events"
	"inspectra/internal/metrics"
	"inspectra/internal/models"
	"inspectra/internal/queue"
	"inspectra/internal/risk"
)

const publishTimeout = 10 * time.Second

// SnapshotStore is the transactional part of the database the processor needs
type SnapshotStore interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Assessor turns an inspection into a snapshot
type Assessor interface {
	Assess(inspection models.Inspection) (models.PropertySnapshot, error)
}

// DecisionNotifier is told about snapshots that ended in decline_review
type DecisionNotifier interface {
	NotifyDecision(snapshot *models.PropertySnapshot) error
}

// BatchProcessor assesses queued inspections and stores the resulting snapshots
type BatchProcessor struct {
	store     SnapshotStore
	assessor  Assessor
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.InspectionQueue
	publisher events.Publisher
	notifier  DecisionNotifier
	metrics   *metrics.Metrics
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(store SnapshotStore, assessor Assessor, queue *queue.InspectionQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		store:     store,
		assessor:  assessor,
		queue:     queue,
		config:    config,
		logger:    logger,
		publisher: events.NopPublisher{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *BatchProcessor) SetPublisher(publisher events.Publisher) {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	p.publisher = publisher
}

func (p *BatchProcessor) SetNotifier(notifier DecisionNotifier) {
	p.notifier = notifier
}

func (p *BatchProcessor) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Start begins processing batches from the queue
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.handleBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop closes the queue, lets the workers drain it and aborts pending retries
func (p *BatchProcessor) Stop() {
	if err := p.queue.Close(); err != nil {
		p.logger.WithError(err).Error("Failed to close inspection queue")
	}
	p.cancel()
	p.queue.Wait()
}

// Process assesses and stores a single inspection synchronously
func (p *BatchProcessor) Process(ctx context.Context, inspection *models.Inspection) (*models.PropertySnapshot, error) {
	snapshot, err := p.assess(inspection)
	if err != nil {
		return nil, err
	}

	snapshots := []*models.PropertySnapshot{snapshot}
	if err := p.persist([]*models.Inspection{inspection}, snapshots); err != nil {
		p.metrics.AssessmentFailed(ErrorKind(err))
		return nil, err
	}

	p.afterStore(ctx, snapshots)
	return snapshot, nil
}

// handleBatch assesses every inspection of a batch and stores the valid ones together
func (p *BatchProcessor) handleBatch(batch []*models.Inspection) error {
	snapshots := make([]*models.PropertySnapshot, 0, len(batch))
	assessed := make([]*models.Inspection, 0, len(batch))
	for _, inspection := range batch {
		snapshot, err := p.assess(inspection)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
		assessed = append(assessed, inspection)
	}

	if len(snapshots) == 0 {
		return nil
	}

	if err := p.persist(assessed, snapshots); err != nil {
		for range snapshots {
			p.metrics.AssessmentFailed(ErrorKind(err))
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	p.afterStore(ctx, snapshots)
	return nil
}

func (p *BatchProcessor) assess(inspection *models.Inspection) (*models.PropertySnapshot, error) {
	if inspection == nil {
		err := &risk.InvalidObservationError{Field: "inspection", Reason: "is required"}
		p.metrics.AssessmentFailed(ErrorKind(err))
		return nil, err
	}

	snapshot, err := p.assessor.Assess(*inspection)
	if err != nil {
		kind := ErrorKind(err)
		p.metrics.AssessmentFailed(kind)
		p.logger.WithFields(logrus.Fields{
			"property_id": inspection.PropertyID,
			"reason":      kind,
		}).WithError(err).Warn("Inspection rejected")
		return nil, err
	}
	return &snapshot, nil
}

// persist stores snapshots with transaction and retry logic
func (p *BatchProcessor) persist(inspections []*models.Inspection, snapshots []*models.PropertySnapshot) error {
	properties := make([]*models.Property, 0, len(inspections))
	seen := make(map[string]bool, len(inspections))
	for _, inspection := range inspections {
		if seen[inspection.PropertyID] {
			continue
		}
		seen[inspection.PropertyID] = true
		properties = append(properties, &models.Property{
			ID:           inspection.PropertyID,
			PropertyType: inspection.PropertyType,
		})
	}

	var err error
	attempts := 0
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying snapshot storage, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			if waitErr := p.wait(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second); waitErr != nil {
				break
			}
		}

		attempts++
		err = p.store.Transaction(func(tx *gorm.DB) error {
			if err := database.EnsureProperties(tx, properties); err != nil {
				return fmt.Errorf("failed to register properties: %w", err)
			}
			if err := database.InsertSnapshots(tx, snapshots); err != nil {
				return fmt.Errorf("failed to insert snapshots: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully stored batch of %d snapshots", len(snapshots))
			return nil
		}

		p.logger.Errorf("Snapshot storage failed: %v", err)
	}

	return &StorageError{Attempts: attempts, Err: err}
}

func (p *BatchProcessor) wait(delay time.Duration) error {
	if delay <= 0 {
		return p.ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// afterStore runs the side effects of stored snapshots. Failures are logged and never undo storage.
func (p *BatchProcessor) afterStore(ctx context.Context, snapshots []*models.PropertySnapshot) {
	if err := p.publisher.PublishSnapshots(ctx, snapshots); err != nil {
		p.logger.WithError(err).Error("Failed to publish snapshot events")
	}

	for _, snapshot := range snapshots {
		p.metrics.ObserveSnapshot(snapshot)

		if snapshot.DecisionSignal != models.DecisionDeclineReview || p.notifier == nil {
			continue
		}
		if err := p.notifier.NotifyDecision(snapshot); err != nil {
			p.logger.WithError(err).WithField("property_id", snapshot.PropertyID).Error("Failed to send decision alert")
		}
	}
}

// StorageError reports snapshots that could not be stored after every retry
type StorageError struct {
	Attempts int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to process batch after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an assessment or storage error to a short label used in logs and metrics
func ErrorKind(err error) string {
	var (
		unknown *risk.UnknownDefectError
		invalid *risk.InvalidObservationError
		cfg     *risk.ConfigurationError
		empty   *risk.EmptyPropertyError
		storage *StorageError
	)
	switch {
	case errors.As(err, &unknown):
		return "unknown_defect"
	case errors.As(err, &invalid):
		return "invalid_observation"
	case errors.As(err, &cfg):
		return "configuration"
	case errors.As(err, &empty):
		return "empty_property"
	case errors.As(err, &storage):
		return "storage"
	default:
		return "internal"
	}
}
