package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/security"
	metrics "github.com/sifan077/DocLink/internal/infra/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	webhookEventLinkViewed = "link.viewed"
	webhookSignatureHeader = "X-Webhook-Signature"
	webhookTimeout         = 10 * time.Second
)

// WebhookPayload is the body posted to team webhooks.
type WebhookPayload struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      WebhookViewData `json:"data"`
}

// WebhookViewData describes the recorded view.
type WebhookViewData struct {
	ViewID     string         `json:"viewId"`
	LinkID     string         `json:"linkId"`
	DocumentID string         `json:"documentId,omitempty"`
	DataroomID string         `json:"dataroomId,omitempty"`
	ViewedAt   time.Time      `json:"viewedAt"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Referer    string         `json:"referer,omitempty"`
	Location   model.Location `json:"location"`
}

// WebhookDispatcher posts link.viewed events to subscribed team webhooks.
// Each destination host has its own circuit breaker. Deliveries are
// remembered per (event, webhook) so a redelivered event only reaches the
// webhooks that failed before.
type WebhookDispatcher struct {
	webhooks repository.WebhookRepository
	client   *http.Client
	dedupe   Deduper
	logger   *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

func NewWebhookDispatcher(webhooks repository.WebhookRepository, client *http.Client, dedupe Deduper, logger *zap.Logger) *WebhookDispatcher {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookDispatcher{
		webhooks: webhooks,
		client:   client,
		dedupe:   dedupe,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

// Dispatch delivers event to every webhook of the team listening for views.
// It returns the joined delivery errors.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event model.ViewRecorded) error {
	hooks, err := d.webhooks.ListByTeamAndTrigger(ctx, event.TeamID, model.TriggerLinkViewed)
	if err != nil {
		return fmt.Errorf("load webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}

	body, err := json.Marshal(WebhookPayload{
		ID:        event.ClickID,
		Event:     webhookEventLinkViewed,
		CreatedAt: time.Now().UTC(),
		Data: WebhookViewData{
			ViewID:     event.ViewID,
			LinkID:     event.LinkID,
			DocumentID: event.DocumentID,
			DataroomID: event.DataroomID,
			ViewedAt:   event.Timestamp,
			UserAgent:  event.UserAgent,
			Referer:    event.Referer,
			Location:   event.Location,
		},
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	var errs []error
	for _, hook := range hooks {
		key := event.ClickID + ":webhook:" + hook.ID
		if d.dedupe != nil && d.dedupe.Seen(key) {
			continue
		}
		if err := d.deliver(ctx, hook, body); err != nil {
			metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
			d.logger.Warn("webhook delivery failed",
				zap.String("webhook_id", hook.ID),
				zap.String("view_id", event.ViewID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("webhook %s: %w", hook.ID, err))
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
		if d.dedupe != nil {
			d.dedupe.Mark(key)
		}
	}
	return errors.Join(errs...)
}

func (d *WebhookDispatcher) deliver(ctx context.Context, hook model.Webhook, body []byte) error {
	u, err := url.Parse(hook.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q", hook.URL)
	}

	_, err = d.breaker(u.Host).Execute(func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(webhookSignatureHeader, security.SignPayload(hook.Secret, body))

		resp, err := d.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	return err
}

func (d *WebhookDispatcher) breaker(host string) *gobreaker.CircuitBreaker[int] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "webhook:" + host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Info("webhook circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	d.breakers[host] = cb
	return cb
}
