package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/hollis-dev/snip/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// AccessConsumer drains access events from NATS JetStream into the
// durable store.
type AccessConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   repository.AccessEventRepository
}

// NewAccessConsumer creates a new access event consumer.
func NewAccessConsumer(js nats.JetStreamContext, logger *zap.Logger, repo repository.AccessEventRepository) *AccessConsumer {
	return &AccessConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist and begins
// consuming in the background.
func (c *AccessConsumer) Start() error {
	_, err := c.js.StreamInfo(model.AccessStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.AccessStreamName,
			Subjects: []string{model.AccessStreamSubject},
			MaxBytes: model.AccessStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.AccessStreamName, model.AccessConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.AccessStreamName, &nats.ConsumerConfig{
			Durable:   model.AccessConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.AccessStreamSubject, model.AccessConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *AccessConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch access events", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			var event model.AccessEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal access event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store access event",
					zap.String("id", event.ID),
					zap.String("code", event.Code),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("access event stored",
				zap.String("id", event.ID),
				zap.String("code", event.Code),
				zap.Time("occurred_at", event.OccurredAt),
			)

			msg.Ack()
		}
	}
}
