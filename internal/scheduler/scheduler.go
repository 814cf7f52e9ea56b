package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"inspectra/config"
	"inspectra/internal/models"
)

// SnapshotSource provides the latest snapshot of every property
type SnapshotSource interface {
	GetLatestSnapshots() ([]models.PropertySnapshot, error)
}

// ReinspectionNotifier is told about properties whose last inspection is stale
type ReinspectionNotifier interface {
	NotifyReinspectionDue(snapshot *models.PropertySnapshot, age time.Duration) error
}

// Scheduler periodically looks for properties that are due a new inspection
type Scheduler struct {
	source    SnapshotSource
	notifier  ReinspectionNotifier
	logger    *logrus.Logger
	interval  time.Duration
	maxAge    time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	jobMutex  sync.Mutex // Ensures sequential sweeps
	announced map[string]string
}

// NewScheduler creates a new scheduler
func NewScheduler(source SnapshotSource, notifier ReinspectionNotifier, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	interval := time.Duration(cfg.Scheduler.SweepInterval) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	return &Scheduler{
		source:    source,
		notifier:  notifier,
		logger:    logger,
		interval:  interval,
		maxAge:    time.Duration(cfg.Scheduler.ReinspectionAfterDays) * 24 * time.Hour,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		announced: make(map[string]string),
	}
}

// Start begins the scheduled sweeps
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler sweeps once at startup and then on every tick
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.logger.Info("Running startup reinspection sweep")
	s.runSweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

func (s *Scheduler) runSweep() {
	if _, err := s.Sweep(); err != nil {
		s.logger.WithError(err).Error("Reinspection sweep failed")
	}
}

// Sweep returns the snapshots that became due since the previous sweep.
// A snapshot is announced once; a newer inspection of the same property resets it.
func (s *Scheduler) Sweep() ([]models.PropertySnapshot, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	latest, err := s.source.GetLatestSnapshots()
	if err != nil {
		return nil, err
	}

	now := s.now()
	var due []models.PropertySnapshot
	for i := range latest {
		snapshot := &latest[i]
		age := now.Sub(snapshot.Timestamp)
		if age <= s.maxAge {
			continue
		}
		if s.announced[snapshot.PropertyID] == snapshot.ID {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"property_id": snapshot.PropertyID,
			"snapshot_id": snapshot.ID,
			"age_days":    int(age.Hours() / 24),
			"risk_tier":   snapshot.RiskTier,
		}).Info("Property is due for reinspection")

		if s.notifier != nil {
			if err := s.notifier.NotifyReinspectionDue(snapshot, age); err != nil {
				s.logger.WithError(err).WithField("property_id", snapshot.PropertyID).Error("Failed to send reinspection reminder")
				continue
			}
		}

		s.announced[snapshot.PropertyID] = snapshot.ID
		due = append(due, *snapshot)
	}

	s.logger.WithField("due", len(due)).Debug("Reinspection sweep completed")
	return due, nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
