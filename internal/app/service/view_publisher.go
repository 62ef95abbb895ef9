package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/DocLink/internal/app/model"
	metrics "github.com/sifan077/DocLink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// ViewDispatcher schedules the deferred work that follows a recorded view.
// It never blocks the caller and never reports failures back.
type ViewDispatcher interface {
	Dispatch(ctx context.Context, event model.ViewRecorded, notify bool)
}

// JetStreamPublisher is the subset of nats.JetStreamContext used to publish.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ViewEventPublisher publishes view messages to NATS JetStream: one for
// analytics, one for the owner notification and one for webhooks.
type ViewEventPublisher struct {
	js     JetStreamPublisher
	logger *zap.Logger

	goAsync func(func())
}

func NewViewEventPublisher(js JetStreamPublisher, logger *zap.Logger) *ViewEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewEventPublisher{
		js:      js,
		logger:  logger,
		goAsync: func(fn func()) { go fn() },
	}
}

// Dispatch publishes each message from its own goroutine. The request context
// only contributes values; cancellation of the request does not abort publishing.
func (p *ViewEventPublisher) Dispatch(ctx context.Context, event model.ViewRecorded, notify bool) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode view event",
			zap.String("view_id", event.ViewID),
			zap.Error(err),
		)
		return
	}

	subjects := []string{model.ViewAnalyticsSubject, model.ViewWebhookSubject}
	if notify {
		subjects = append(subjects, model.ViewNotificationSubject)
	}

	base := context.WithoutCancel(ctx)
	for _, subject := range subjects {
		subject := subject
		p.goAsync(func() {
			ctx, cancel := context.WithTimeout(base, publishTimeout)
			defer cancel()
			p.publish(ctx, subject, event, data)
		})
	}
}

func (p *ViewEventPublisher) publish(ctx context.Context, subject string, event model.ViewRecorded, data []byte) {
	_, err := p.js.Publish(subject, data,
		nats.Context(ctx),
		nats.MsgId(event.ClickID+":"+subject),
	)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues("publish").Inc()
		p.logger.Error("failed to publish view event",
			zap.String("subject", subject),
			zap.String("view_id", event.ViewID),
			zap.String("link_id", event.LinkID),
			zap.Error(err),
		)
	}
}
