package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// Consumer is a plain (non-JetStream) subscription used by sidecar
// processes that only observe the event flow, like the notifier.
type Consumer struct {
	nc  *nats.Conn
	sub *nats.Subscription
	log *logger.Logger
}

func NewConsumer(cfg *config.Config, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{nc: nc, log: log}, nil
}

// Subscribe registers the handler for every message on the subject.
// Handler errors are logged, not propagated; observers must not disturb
// the event flow.
func (c *Consumer) Subscribe(subject string, handler func(data []byte) error) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			c.log.Errorf(err, "Handler failed for subject %s", subject)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	c.sub = sub
	c.log.Infof("Subscribed to %s", subject)
	return nil
}

func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.log.Warnf("Failed to unsubscribe: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.log.Info("NATS consumer connection closed")
	}
}

// LoggingHandler returns a handler that pretty-prints every event.
func LoggingHandler(log *logger.Logger) func(data []byte) error {
	return func(data []byte) error {
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to decode event", err)
			return err
		}

		pretty, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			return err
		}

		log.Infof("Review event:\n%s", pretty)
		return nil
	}
}
