package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// Publisher writes review events to JetStream. Publishes are acknowledged
// by the server, so a nil return means the event is durably stored.
type Publisher struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	log *logger.Logger
}

func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	log.Infof("Connected to NATS JetStream at %s", cfg.NATS.URL)

	return &Publisher{nc: nc, js: js, log: log}, nil
}

// Publish stores the payload on the given subject and waits for the
// stream's ack.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	ack, err := p.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		p.log.Errorf(err, "Failed to publish to subject %s", subject)
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	p.log.WithFields(map[string]any{
		"subject":  subject,
		"stream":   ack.Stream,
		"sequence": ack.Sequence,
	}).Debug("Event published")

	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.log.Info("NATS publisher connection closed")
	}
}
