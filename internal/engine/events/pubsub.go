package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"docketflow/internal/platform/config"
	"docketflow/internal/platform/models"
)

// PubSubPublisher publishes events to a Google Cloud Pub/Sub topic with the
// tenant id as ordering key.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher returns nil, nil when no project or topic is configured.
func NewPubSubPublisher(ctx context.Context, cfg config.PubSubConfig, opts ...option.ClientOption) (*PubSubPublisher, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(cfg.Topic)
	topic.EnableMessageOrdering = true

	log.Info().Str("project_id", cfg.ProjectID).Str("topic", cfg.Topic).Msg("pubsub event publisher enabled")
	return &PubSubPublisher{client: client, topic: topic}, nil
}

func (p *PubSubPublisher) Name() string { return "pubsub" }

func (p *PubSubPublisher) Publish(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: event.TenantID,
		Attributes: map[string]string{
			"event":     event.Type,
			"event_id":  event.ID,
			"tenant_id": event.TenantID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		// ordering keys pause after a failure until resumed
		p.topic.ResumePublish(event.TenantID)
		return fmt.Errorf("pubsub publish failed: %w", err)
	}
	return nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
