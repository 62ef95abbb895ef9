package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	natsinfra "github.com/sifan077/DocLink/internal/infra/nats"
	metrics "github.com/sifan077/DocLink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	consumerBatch   = 10
	consumerMaxWait = 5 * time.Second
	handlerTimeout  = 30 * time.Second
)

// errUnprocessable marks messages that can never succeed; they are terminated.
var errUnprocessable = errors.New("unprocessable view event")

// Notifier sends the owner notification for a view.
type Notifier interface {
	Notify(ctx context.Context, viewID string, loc model.Location) error
}

// WebhookSender delivers view webhooks. It skips webhooks it already
// delivered the event to.
type WebhookSender interface {
	Dispatch(ctx context.Context, event model.ViewRecorded) error
}

// Deduper remembers handled message keys.
type Deduper interface {
	Seen(key string) bool
	Mark(key string)
}

// ViewEventConsumerDeps wires ViewEventConsumer.
type ViewEventConsumerDeps struct {
	JS       nats.JetStreamContext
	Events   repository.LinkViewEventRepository
	Notifier Notifier
	Webhooks WebhookSender
	Dedupe   Deduper
	Logger   *zap.Logger
}

// ViewEventConsumer consumes view messages from NATS JetStream and routes
// them by subject.
type ViewEventConsumer struct {
	js       nats.JetStreamContext
	events   repository.LinkViewEventRepository
	notifier Notifier
	webhooks WebhookSender
	dedupe   Deduper
	logger   *zap.Logger
}

func NewViewEventConsumer(deps ViewEventConsumerDeps) *ViewEventConsumer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewEventConsumer{
		js:       deps.JS,
		events:   deps.Events,
		notifier: deps.Notifier,
		webhooks: deps.Webhooks,
		dedupe:   deps.Dedupe,
		logger:   logger,
	}
}

// Start ensures the stream and durable consumer exist and begins consuming
// until ctx is done.
func (c *ViewEventConsumer) Start(ctx context.Context) error {
	if err := natsinfra.EnsureStream(c.js, &nats.StreamConfig{
		Name:     model.ViewStreamName,
		Subjects: []string{model.ViewStreamSubjects},
		MaxBytes: model.ViewStreamMaxBytes,
	}); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	if _, err := c.js.ConsumerInfo(model.ViewStreamName, model.ViewConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ViewStreamName, &nats.ConsumerConfig{
			Durable:       model.ViewConsumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			FilterSubject: model.ViewStreamSubjects,
			MaxDeliver:    5,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ViewStreamSubjects, model.ViewConsumerName,
		nats.BindStream(model.ViewStreamName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *ViewEventConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer sub.Unsubscribe()

	for {
		if ctx.Err() != nil {
			c.logger.Info("view event consumer stopped")
			return
		}

		msgs, err := sub.Fetch(consumerBatch, nats.MaxWait(consumerMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			err := c.handle(hctx, msg.Subject, msg.Data)
			cancel()

			switch {
			case err == nil:
				msg.Ack()
			case errors.Is(err, errUnprocessable):
				c.logger.Error("dropping view event", zap.String("subject", msg.Subject), zap.Error(err))
				msg.Term()
			default:
				metrics.DispatchFailures.WithLabelValues(msg.Subject).Inc()
				c.logger.Error("failed to handle view event",
					zap.String("subject", msg.Subject),
					zap.Error(err),
				)
				msg.Nak()
			}
		}
	}
}

func (c *ViewEventConsumer) handle(ctx context.Context, subject string, data []byte) error {
	var event model.ViewRecorded
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errUnprocessable, err)
	}
	if event.ViewID == "" || event.ClickID == "" {
		return fmt.Errorf("%w: missing ids", errUnprocessable)
	}

	switch subject {
	case model.ViewAnalyticsSubject:
		return c.recordAnalytics(ctx, event)
	case model.ViewNotificationSubject:
		err := c.once(event.ClickID+":notification", func() error {
			return c.notifier.Notify(ctx, event.ViewID, event.Location)
		})
		if errors.Is(err, ErrNoTeamAdmin) || errors.Is(err, repository.ErrViewNotFound) {
			return fmt.Errorf("%w: %v", errUnprocessable, err)
		}
		return err
	case model.ViewWebhookSubject:
		return c.webhooks.Dispatch(ctx, event)
	default:
		return fmt.Errorf("%w: unknown subject %q", errUnprocessable, subject)
	}
}

func (c *ViewEventConsumer) recordAnalytics(ctx context.Context, event model.ViewRecorded) error {
	if err := c.events.Create(ctx, &model.LinkViewEvent{
		ID:         event.ClickID,
		ViewID:     event.ViewID,
		LinkID:     event.LinkID,
		DocumentID: event.DocumentID,
		DataroomID: event.DataroomID,
		TeamID:     event.TeamID,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
		Referer:    event.Referer,
		Country:    event.Location.Country,
		City:       event.Location.City,
		Region:     event.Location.Region,
		Continent:  event.Location.Continent,
		Timestamp:  event.Timestamp,
	}); err != nil {
		return fmt.Errorf("store link view event: %w", err)
	}

	c.logger.Debug("link view event stored",
		zap.String("click_id", event.ClickID),
		zap.String("view_id", event.ViewID),
		zap.String("link_id", event.LinkID),
	)
	return nil
}

// once runs fn unless key was handled already, so a redelivered message
// does not send a second email.
func (c *ViewEventConsumer) once(key string, fn func() error) error {
	if c.dedupe != nil && c.dedupe.Seen(key) {
		c.logger.Info("skipping redelivered view event", zap.String("key", key))
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	if c.dedupe != nil {
		c.dedupe.Mark(key)
	}
	return nil
}
