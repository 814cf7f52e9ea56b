package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"inspectra/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// InspectionQueue is an in-memory queue of inspection batches
type InspectionQueue struct {
	items    chan []*models.Inspection
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	workers  sync.WaitGroup
	logger   *logrus.Logger
	handlers []func([]*models.Inspection) error
}

// NewInspectionQueue creates a new inspection queue with the specified buffer size
func NewInspectionQueue(bufferSize int, logger *logrus.Logger) *InspectionQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &InspectionQueue{
		items:    make(chan []*models.Inspection, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.Inspection) error, 0),
	}
}

// Push adds a batch of inspections to the queue
func (q *InspectionQueue) Push(inspections []*models.Inspection) error {
	// The read lock is held across the send so Close cannot close the channel underneath it.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- inspections:
		q.logger.WithField("batch_size", len(inspections)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *InspectionQueue) Subscribe(handler func([]*models.Inspection) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches workers goroutines that drain the queue
func (q *InspectionQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process()
	}
}

// process handles the queue processing loop until the queue is closed and drained
func (q *InspectionQueue) process() {
	defer q.workers.Done()
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *InspectionQueue) processBatch(batch []*models.Inspection) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added.
// Batches already queued are still delivered.
func (q *InspectionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until every worker has drained the queue after Close
func (q *InspectionQueue) Wait() {
	q.workers.Wait()
}

// Len returns the current number of batches in the queue
func (q *InspectionQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *InspectionQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
