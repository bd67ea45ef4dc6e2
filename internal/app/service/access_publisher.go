package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/nats-io/nats.go"
)

// AccessPublisher publishes access events to NATS JetStream.
type AccessPublisher struct {
	js nats.JetStreamContext
}

// NewAccessPublisher creates a new access event publisher.
func NewAccessPublisher(js nats.JetStreamContext) *AccessPublisher {
	return &AccessPublisher{js: js}
}

// Publish emits one access event for a resolved code.
func (p *AccessPublisher) Publish(code, ip, userAgent, referer string) error {
	event := model.AccessEvent{
		ID:         uuid.New().String(),
		Code:       code,
		IP:         ip,
		UserAgent:  userAgent,
		Referer:    referer,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.AccessStreamSubject, data)
	return err
}
