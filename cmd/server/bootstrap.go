package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/security"
	"github.com/sifan077/DocLink/internal/app/service"
	"github.com/sifan077/DocLink/internal/http/handler"
	"github.com/sifan077/DocLink/internal/infra/dedupe"
	"github.com/sifan077/DocLink/internal/infra/mail"
	infraNATS "github.com/sifan077/DocLink/internal/infra/nats"
	infraPostgres "github.com/sifan077/DocLink/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/DocLink/internal/infra/prometheus"
	"github.com/sifan077/DocLink/internal/infra/ratelimit"
	infraRedis "github.com/sifan077/DocLink/internal/infra/redis"
	"github.com/sifan077/DocLink/internal/infra/sheet"
	"github.com/sifan077/DocLink/internal/infra/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	gateLimit        = 10
	apiLimit         = 300
	limitWindow      = time.Minute
	sheetTimeout     = 30 * time.Second
	dedupeCapacity   = 100_000
	dedupeFalsePos   = 0.001
	shutdownDeadline = 10 * time.Second
)

// infra holds live connections to backing services.
type infra struct {
	db    *gorm.DB
	pool  *pgxpool.Pool
	redis *redis.Client
	nc    *nats.Conn
	js    nats.JetStreamContext

	closers []func()
}

func connect(ctx context.Context) (*infra, error) {
	in := &infra{}

	db, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql db: %w", err)
	}
	in.db = db
	in.closers = append(in.closers, func() { _ = sqlDB.Close() })
	log.Info("Connected to Postgres (gorm)")

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		in.close()
		return nil, err
	}
	in.pool = pool
	in.closers = append(in.closers, pool.Close)
	log.Info("Connected to Postgres (pgx)")

	if cfg.Redis.Enabled {
		rdb, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			in.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		in.redis = rdb
		in.closers = append(in.closers, func() { _ = rdb.Close() })
		log.Info("Connected to Redis")
	} else {
		log.Warn("Redis disabled, using in-process rate limiting")
	}

	nc, js, err := infraNATS.Connect(cfg.NATS, log)
	if err != nil {
		in.close()
		return nil, err
	}
	in.nc, in.js = nc, js
	in.closers = append(in.closers, func() { _ = nc.Drain() })
	log.Info("Connected to NATS", zap.Bool("jetstream_ready", js != nil))

	return in, nil
}

// close releases connections in reverse order.
func (in *infra) close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
}

func (in *infra) healthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error { return in.pool.Ping(ctx) },
		"nats": func(ctx context.Context) error {
			if !in.nc.IsConnected() {
				return errors.New(in.nc.Status().String())
			}
			return nil
		},
	}
	if in.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return in.redis.Ping(ctx).Err() }
	}
	return checks
}

func (in *infra) limiter(perWindow int, prefix string) ratelimit.Limiter {
	if in.redis == nil {
		return ratelimit.NewMemoryLimiter(perWindow, limitWindow)
	}
	return ratelimit.NewRedisLimiter(in.redis, perWindow, limitWindow, prefix)
}

// services is the application graph shared by serve and worker.
type services struct {
	views     *service.ViewService
	links     service.LinkService
	documents *service.DocumentService
	datarooms *service.DataroomService
	reactions *service.ReactionService
	notifier  *service.NotificationService
	consumer  *service.ViewEventConsumer
	sweeper   *service.TokenSweeper
}

func buildServices(ctx context.Context, in *infra) (*services, error) {
	links := repository.NewLinkRepository(in.db)
	docs := repository.NewDocumentRepository(in.db)
	tokens := repository.NewVerificationTokenRepository(in.db)
	viewers := repository.NewViewerRepository(in.db)
	views := repository.NewViewRepository(in.db)
	teams := repository.NewTeamRepository(in.db)
	webhooks := repository.NewWebhookRepository(in.db)
	events := repository.NewLinkViewEventRepository(in.db)
	stats := repository.NewStatsRepository(in.pool)

	var mailer mail.Mailer
	if cfg.Email.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From)
	} else {
		log.Warn("RESEND_API_KEY not set, emails are only logged")
		mailer = mail.NewLogMailer(log)
	}

	objects, err := storage.NewS3(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	previews := security.NewTokenSigner([]byte(cfg.Auth.PreviewSecret), cfg.Auth.PreviewTTL)
	gate := service.NewGate(service.GateDeps{
		Links:     links,
		Tokens:    tokens,
		Limiter:   in.limiter(gateLimit, "doclink:gate"),
		Passwords: security.NewPasswordChecker(cfg.Security.DocumentPasswordKey),
		Previews:  previews,
		OTP:       service.NewOTPMailer(mailer, cfg.Email.SystemFrom),
		Logger:    log,
	})

	content := service.NewContentResolver(docs,
		storage.NewResolver(objects, cfg.Storage.DistributionHost),
		sheet.NewParser(&http.Client{Timeout: sheetTimeout}),
		cfg.App.AdvancedSheetHost,
	)

	delivered := dedupe.New(dedupeCapacity, dedupeFalsePos)

	notifier := service.NewNotificationService(service.NotificationDeps{
		Views:   views,
		Teams:   teams,
		Mailer:  mailer,
		From:    cfg.Email.From,
		BaseURL: cfg.App.BaseURL,
		Logger:  log,
	})

	return &services{
		views: service.NewViewService(service.ViewServiceDeps{
			Gate:           gate,
			Content:        content,
			Viewers:        viewers,
			Views:          views,
			Dispatcher:     service.NewViewEventPublisher(in.js, log),
			Logger:         log,
			ExposeClientIP: cfg.App.IsProduction(),
			LocalhostIP:    cfg.App.LocalhostIP,
		}),
		links:     service.NewLinkService(links, docs, teams, previews),
		documents: service.NewDocumentService(docs, teams, storage.NewDocumentCopier(objects)),
		datarooms: service.NewDataroomService(teams, stats),
		reactions: service.NewReactionService(views, repository.NewReactionRepository(in.db)),
		notifier:  notifier,
		consumer: service.NewViewEventConsumer(service.ViewEventConsumerDeps{
			JS:       in.js,
			Events:   events,
			Notifier: notifier,
			Webhooks: service.NewWebhookDispatcher(webhooks, nil, delivered, log),
			Dedupe:   delivered,
			Logger:   log,
		}),
		sweeper: service.NewTokenSweeper(log, tokens),
	}, nil
}

// startBackground runs the view consumer, the token sweeper and, outside
// development, the metrics server. The returned func stops them.
func startBackground(ctx context.Context, svc *services) (func(), error) {
	if err := svc.consumer.Start(ctx); err != nil {
		return nil, err
	}
	log.Info("View event consumer started")

	svc.sweeper.Start()
	log.Info("Token sweeper started")

	var metrics *infraPrometheus.Server
	if cfg.App.IsProduction() {
		metrics = infraPrometheus.NewServer(cfg.Prometheus, log)
		metrics.Start()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	return func() {
		svc.sweeper.Stop()
		if metrics != nil {
			metrics.Close()
		}
	}, nil
}
