// Package workers runs the periodic maintenance jobs of the API process.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/safego"
)

// Job is one unit of periodic maintenance.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Start runs every job on its own ticker until ctx is cancelled. A failing
// or panicking run is logged and retried on the next tick.
func Start(ctx context.Context, jobs ...Job) {
	for _, job := range jobs {
		job := job
		if job.Interval <= 0 {
			log.Warn().Str("job", job.Name).Msg("worker disabled, no interval")
			continue
		}
		safego.Go(func() { loop(ctx, job) })
	}
}

func loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, job)
		}
	}
}

func runOnce(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", job.Name).Interface("panic", r).Msg("worker run panicked")
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("worker run failed")
		return
	}
	log.Debug().Str("job", job.Name).Dur("duration", time.Since(start)).Msg("worker run completed")
}

type webhookPauser interface {
	PauseFailing(ctx context.Context, maxRetries int, at int64) (int64, error)
}

// PauseFailingWebhooks stops delivering to endpoints that failed maxRetries
// times in a row. Owners re-create the webhook to resume.
func PauseFailingWebhooks(store webhookPauser, maxRetries int) Job {
	return Job{
		Name:     "pause_failing_webhooks",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := store.PauseFailing(ctx, maxRetries, time.Now().Unix())
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info().Int64("paused", n).Int("max_retries", maxRetries).Msg("paused failing webhooks")
			}
			return nil
		},
	}
}
