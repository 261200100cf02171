package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

const (
	// StreamName holds every review mutation event.
	StreamName = "REVIEWS"

	// StreamSubjects is the subject the review service publishes to.
	StreamSubjects = "reviews.events"

	// ConsumerName is the durable consumer the rating worker pulls from.
	ConsumerName = "rating-worker"

	// Redelivery stops after maxDeliver attempts. A dropped event is
	// harmless: the summary recomputation is idempotent and the next
	// mutation on the product triggers it again.
	maxDeliver = 3

	ackWait = 30 * time.Second
)

// StreamConfig provisions the JetStream stream and durable consumer the
// rating pipeline depends on. Calling Ensure repeatedly is safe.
type StreamConfig struct {
	js  nats.JetStreamContext
	log *logger.Logger
}

func NewStreamConfig(js nats.JetStreamContext, log *logger.Logger) *StreamConfig {
	return &StreamConfig{js: js, log: log}
}

// Ensure creates the stream and consumer if they do not exist yet.
func (s *StreamConfig) Ensure() error {
	if err := s.ensureStream(); err != nil {
		return err
	}
	return s.ensureConsumer()
}

func (s *StreamConfig) ensureStream() error {
	info, err := s.js.StreamInfo(StreamName)
	if err == nil {
		s.log.WithFields(map[string]any{
			"stream":   info.Config.Name,
			"messages": info.State.Msgs,
		}).Info("Review event stream already provisioned")
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}

	// Work queue retention: an event is deleted once the worker acks it.
	// Events older than a day are useless for recalculation anyway.
	_, err = s.js.AddStream(&nats.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{StreamSubjects},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      24 * time.Hour,
		Discard:     nats.DiscardOld,
		Description: "Review mutation events feeding the rating worker",
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}

	s.log.Infof("Created JetStream stream %s (%s)", StreamName, StreamSubjects)
	return nil
}

func (s *StreamConfig) ensureConsumer() error {
	info, err := s.js.ConsumerInfo(StreamName, ConsumerName)
	if err == nil {
		s.log.WithFields(map[string]any{
			"consumer":    info.Name,
			"pending":     info.NumPending,
			"redelivered": info.NumRedelivered,
		}).Info("Rating worker consumer already provisioned")
		return nil
	}
	if !errors.Is(err, nats.ErrConsumerNotFound) {
		return fmt.Errorf("consumer info: %w", err)
	}

	_, err = s.js.AddConsumer(StreamName, &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
		FilterSubject: StreamSubjects,
		BackOff:       redeliveryBackoff(maxDeliver),
		Description:   "Durable consumer for product rating recomputation",
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", ConsumerName, err)
	}

	s.log.Infof("Created durable consumer %s on stream %s", ConsumerName, StreamName)
	return nil
}

// redeliveryBackoff returns the delays between redeliveries: 1s, 2s, 4s...
// JetStream wants attempts-1 entries since the first delivery is immediate.
func redeliveryBackoff(attempts int) []time.Duration {
	if attempts <= 1 {
		return nil
	}
	delays := make([]time.Duration, attempts-1)
	for i := range delays {
		delays[i] = time.Duration(1<<i) * time.Second
	}
	return delays
}
