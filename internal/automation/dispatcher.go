package automation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medassist-ai/intake-platform/internal/observability/metrics"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

const (
	dedupeKeyPrefix = "automation:delivered:"
	dedupeTTL       = 24 * time.Hour
)

// Dispatcher polls the outbox and posts events to the automation webhook.
// A redis processed-set guards against double delivery when a crash lands
// between the webhook call and MarkDelivered.
type Dispatcher struct {
	store       *OutboxStore
	webhookURL  string
	httpClient  *http.Client
	redis       *redis.Client
	logger      *logging.Logger
	metrics     *metrics.IntakeMetrics
	batchSize   int32
	interval    time.Duration
	retryBase   time.Duration
	maxAttempts int
}

// DispatcherConfig configures the delivery loop.
type DispatcherConfig struct {
	WebhookURL  string
	RetryBase   time.Duration
	Interval    time.Duration
	MaxAttempts int
}

// NewDispatcher creates the webhook dispatcher. redis is optional; without
// it, dedupe falls back to the outbox's delivered_at column alone.
func NewDispatcher(store *OutboxStore, rdb *redis.Client, cfg DispatcherConfig, m *metrics.IntakeMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		store:       store,
		webhookURL:  cfg.WebhookURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		redis:       rdb,
		logger:      logger.Component("automation"),
		metrics:     m,
		batchSize:   25,
		interval:    cfg.Interval,
		retryBase:   cfg.RetryBase,
		maxAttempts: cfg.MaxAttempts,
	}
	if d.interval <= 0 {
		d.interval = 10 * time.Second
	}
	if d.retryBase <= 0 {
		d.retryBase = 30 * time.Second
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 5
	}
	return d
}

// Start runs the delivery loop until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.store == nil || d.webhookURL == "" {
		d.logger.Info("automation dispatcher disabled", "webhook_configured", d.webhookURL != "")
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	events, err := d.store.FetchDue(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, evt := range events {
		d.deliver(ctx, evt)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt Event) {
	already, err := d.alreadyDelivered(ctx, evt.ID.String())
	if err != nil {
		d.logger.Warn("dedupe check failed, delivering anyway", "error", err, "event_id", evt.ID)
	}
	if already {
		if _, err := d.store.MarkDelivered(ctx, evt.ID); err != nil {
			d.logger.Error("failed to reconcile deduped event", "error", err, "event_id", evt.ID)
		}
		return
	}

	if err := d.post(ctx, evt); err != nil {
		d.metrics.ObserveDelivery("error")
		retryIn := d.backoff(evt.Attempts)
		d.logger.Error("webhook delivery failed",
			"error", err, "event_id", evt.ID, "type", evt.Type,
			"attempt", evt.Attempts+1, "retry_in", retryIn)
		if err := d.store.MarkFailed(ctx, evt.ID, retryIn, d.maxAttempts); err != nil {
			d.logger.Error("failed to schedule retry", "error", err, "event_id", evt.ID)
		}
		return
	}

	d.markDeduped(ctx, evt.ID.String())
	if ok, err := d.store.MarkDelivered(ctx, evt.ID); err != nil {
		d.logger.Error("failed to mark delivered", "error", err, "event_id", evt.ID)
	} else if ok {
		d.metrics.ObserveDelivery("ok")
		d.logger.Debug("event delivered", "event_id", evt.ID, "type", evt.Type)
	}
}

// backoff doubles the base delay per prior attempt, capped at an hour.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.retryBase
	for i := 0; i < attempts && delay < time.Hour; i++ {
		delay *= 2
	}
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

func (d *Dispatcher) post(ctx context.Context, evt Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(evt.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Intake-Event-Id", evt.ID.String())
	req.Header.Set("X-Intake-Event-Type", evt.Type)
	req.Header.Set("X-Intake-Org-Id", evt.OrgID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) alreadyDelivered(ctx context.Context, id string) (bool, error) {
	if d.redis == nil {
		return false, nil
	}
	n, err := d.redis.Exists(ctx, dedupeKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Dispatcher) markDeduped(ctx context.Context, id string) {
	if d.redis == nil {
		return
	}
	if err := d.redis.Set(ctx, dedupeKeyPrefix+id, "1", dedupeTTL).Err(); err != nil {
		d.logger.Warn("failed to record dedupe key", "error", err, "event_id", id)
	}
}
