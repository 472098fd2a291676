// Package notify delivers workflow notification events to external
// consumers. The webhook dispatcher posts events to a configured endpoint
// behind a circuit breaker so a dead receiver cannot slow the workflow down.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/blood-donation-support-server/internal/domain"
)

// WebhookDispatcher posts notification events as JSON to a webhook URL.
type WebhookDispatcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher.
func NewWebhookDispatcher(config domain.NotifyConfig, logger *logrus.Logger) *WebhookDispatcher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.BreakerTimeout == 0 {
		config.BreakerTimeout = 60 * time.Second
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notification-webhook",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &WebhookDispatcher{
		url:     config.WebhookURL,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Dispatch posts the event to the webhook. A non-2xx response counts as a
// failure toward tripping the breaker.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling notification event: %w", err)
	}

	_, err = d.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("posting webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	d.logger.WithFields(logrus.Fields{
		"kind":    string(event.Kind),
		"summary": event.Summary,
	}).Debug("Notification event delivered")

	return nil
}

// Fanout dispatches every event to all wrapped dispatchers. Delivery is best
// effort per dispatcher; the first error is returned after all have run.
type Fanout []domain.NotificationDispatcher

// Dispatch delivers the event to each dispatcher in order.
func (f Fanout) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	var first error
	for _, dispatcher := range f {
		if err := dispatcher.Dispatch(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
