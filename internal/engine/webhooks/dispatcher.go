package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/models"
)

const (
	HeaderSignature = "X-Docketflow-Signature"
	HeaderEvent     = "X-Docketflow-Event"
	HeaderDelivery  = "X-Docketflow-Delivery"
)

type Store interface {
	GetByEvent(ctx context.Context, tenantID, event string) ([]*models.Webhook, error)
	RecordSuccess(ctx context.Context, id string, at int64) error
	RecordFailure(ctx context.Context, id, lastError string) error
}

// Dispatcher delivers events to the tenant's subscribed webhook endpoints.
type Dispatcher struct {
	store  Store
	client *http.Client
}

func NewDispatcher(store Store, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *Dispatcher) Name() string { return "webhooks" }

// Publish delivers event to every active subscriber concurrently and waits
// for all attempts. Delivery failures are recorded on the webhook, not returned.
func (d *Dispatcher) Publish(ctx context.Context, event *models.Event) error {
	hooks, err := d.store.GetByEvent(ctx, event.TenantID, event.Type)
	if err != nil {
		return fmt.Errorf("load webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(hook *models.Webhook) {
			defer wg.Done()
			d.deliver(ctx, hook, event, payload)
		}(hook)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, hook *models.Webhook, event *models.Event, payload []byte) {
	logger := log.With().Str("webhook_id", hook.ID).Str("event", event.Type).Logger()

	err := d.post(ctx, hook, event, payload)
	if err != nil {
		logger.Warn().Err(err).Msg("webhook delivery failed")
		if rerr := d.store.RecordFailure(ctx, hook.ID, err.Error()); rerr != nil {
			logger.Error().Err(rerr).Msg("failed to record webhook failure")
		}
		return
	}

	if rerr := d.store.RecordSuccess(ctx, hook.ID, time.Now().Unix()); rerr != nil {
		logger.Error().Err(rerr).Msg("failed to record webhook delivery")
	}
}

func (d *Dispatcher) post(ctx context.Context, hook *models.Webhook, event *models.Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(hook.Secret, payload))
	req.Header.Set(HeaderEvent, event.Type)
	req.Header.Set(HeaderDelivery, event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
