// Package events fans domain events out to the configured sinks: Kafka,
// Google Pub/Sub and tenant webhooks.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/metrics"
	"docketflow/internal/platform/models"
)

type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *models.Event) error
}

func NewEvent(eventType, tenantID string, data interface{}) *models.Event {
	return &models.Event{
		ID:        fmt.Sprintf("evt_%s", uuid.New().String()),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		TenantID:  tenantID,
		Data:      data,
	}
}

// Multi publishes to every sink. One failing sink does not stop the others.
type Multi struct {
	sinks []Publisher
}

// NewMulti drops nil sinks so optional publishers can be passed unconditionally.
func NewMulti(sinks ...Publisher) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Publish(ctx context.Context, event *models.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, event); err != nil {
			metrics.EventsPublishedTotal.WithLabelValues(s.Name(), "error").Inc()
			log.Error().Err(err).
				Str("sink", s.Name()).
				Str("event", event.Type).
				Str("tenant_id", event.TenantID).
				Msg("failed to publish event")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(s.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}
