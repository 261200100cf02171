package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

const (
	// Events for the same product arriving within this window collapse
	// into a single recomputation.
	debounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// ReviewEvent is the wire shape of a review mutation event published by the
// review service.
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	ProductID uuid.UUID `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingWorker consumes review events and refreshes product rating
// summaries asynchronously. It debounces per product: a burst of
// mutations costs one database update, and since every refresh is a full
// recomputation the result is the same regardless of how many events
// collapsed into it.
type RatingWorker struct {
	calculator *Calculator
	logger     *logger.Logger

	mu       sync.Mutex
	pending  map[uuid.UUID]*debounceEntry
	draining chan struct{}
	inflight sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

type debounceEntry struct {
	latestSeen time.Time
	timer      *time.Timer
}

func NewRatingWorker(calculator *Calculator, log *logger.Logger) *RatingWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &RatingWorker{
		calculator: calculator,
		logger:     log,
		pending:    make(map[uuid.UUID]*debounceEntry),
		draining:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleEvent decodes a review event and schedules a summary refresh for
// its product.
func (w *RatingWorker) HandleEvent(data []byte) error {
	var event ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to decode review event", err)
		return fmt.Errorf("unmarshal review event: %w", err)
	}

	w.logger.WithFields(map[string]any{
		"event_type": event.EventType,
		"product_id": event.ProductID.String(),
	}).Info("Received review event")

	w.schedule(event.ProductID, event.Timestamp)
	return nil
}

func (w *RatingWorker) schedule(productID uuid.UUID, eventTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.draining:
		w.logger.Debug("Worker draining, event dropped")
		return
	default:
	}

	if entry, ok := w.pending[productID]; ok {
		// Out-of-order delivery: an event older than what is already
		// queued carries no new information.
		if eventTime.Before(entry.latestSeen) {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
			}).Debug("Stale event ignored")
			return
		}
		entry.timer.Stop()
	} else {
		w.inflight.Add(1)
	}

	w.pending[productID] = &debounceEntry{
		latestSeen: eventTime,
		timer: time.AfterFunc(debounceWindow, func() {
			w.refresh(productID)
		}),
	}
}

// refresh runs the recomputation once the debounce window closes,
// retrying transient failures with exponential backoff.
func (w *RatingWorker) refresh(productID uuid.UUID) {
	defer w.inflight.Done()

	w.mu.Lock()
	delete(w.pending, productID)
	w.mu.Unlock()

	log := w.logger.WithFields(map[string]any{"product_id": productID.String()})
	log.Info("Refreshing rating summary")

	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			log.Warnf("Retrying rating summary refresh (attempt %d)", attempt)
			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				log.Info("Worker stopped, abandoning retry")
				return
			}
			backoff *= 2
		}

		attemptCtx, cancelAttempt := context.WithTimeout(w.ctx, 5*time.Second)
		err := w.calculator.CalculateAndUpdate(attemptCtx, productID)
		cancelAttempt()

		if err == nil {
			return
		}
		lastErr = err
		log.Error("Rating summary refresh failed", err)
	}

	// Left stale until the next mutation on this product; the refresh is
	// always a full recomputation so it heals itself then.
	log.Errorf(lastErr, "Giving up on rating summary refresh after %d attempts", maxRetries)
}

// Shutdown cancels queued refreshes and waits for in-flight ones to
// finish, up to the context deadline.
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down rating worker...")

	close(w.draining)
	w.cancel()

	w.mu.Lock()
	cancelled := len(w.pending)
	for _, entry := range w.pending {
		entry.timer.Stop()
		w.inflight.Done()
	}
	w.pending = make(map[uuid.UUID]*debounceEntry)
	w.mu.Unlock()

	if cancelled > 0 {
		w.logger.Infof("Cancelled %d queued refreshes", cancelled)
	}

	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight refreshes completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown deadline reached before refreshes finished")
		return ctx.Err()
	}
}

// GetPendingCount reports how many products have a refresh queued.
func (w *RatingWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
