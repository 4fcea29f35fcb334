// Package app wires configuration into the services shared by the API and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaigns"
	"dialer-platform/internal/config"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/dispositions"
	"dialer-platform/internal/events"
	"dialer-platform/internal/followups"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/numbers"
	"dialer-platform/internal/queue"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/sms"
	"dialer-platform/internal/telephony"
	"dialer-platform/internal/tenant"
	"dialer-platform/internal/webhooks"
	"dialer-platform/migrations"
	"dialer-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// App owns the process-wide connections and every service built on them.
type App struct {
	Config config.Config
	Log    *slog.Logger

	DB        *sql.DB
	Redis     *redis.Client
	Publisher events.Publisher

	Auth         *auth.Manager
	Tenants      *tenant.Resolver
	Audit        *audit.Service
	Leads        *leads.Service
	Campaigns    *campaigns.Service
	Queue        *queue.Service
	Numbers      *numbers.Service
	Calls        *calls.Service
	SMS          sms.Repository
	FollowUps    *followups.Scheduler
	Dispositions *dispositions.Router
	Dispatcher   *dispatch.Dispatcher
	Ingest       *webhooks.Ingest
	Reports      *reporting.Service

	closers []func() error
}

// New opens Postgres and Redis and builds the service graph. Without Kafka brokers
// events are written to the log instead of published.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init: %w", err)
	}
	a.Auth = authManager

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("postgres init: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("redis init: %w", err)
	}
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)

	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		a.Publisher = kp
		a.closers = append(a.closers, kp.Close)
	} else {
		log.Warn("KAFKA_BROKERS not set; events will be logged, not published")
		a.Publisher = events.NewLogPublisher(log)
	}

	a.build()
	return a, nil
}

func (a *App) build() {
	cfg := a.Config
	topics := cfg.Kafka.Topics

	leadRepo := leads.NewPostgresRepo(a.DB)
	campaignRepo := campaigns.NewPostgresRepo(a.DB)
	callRepo := calls.NewPostgresRepo(a.DB)

	a.Tenants = tenant.NewResolver(cfg)
	a.Audit = audit.NewService(audit.NewPostgresRepo(a.DB))
	a.Leads = leads.NewService(leadRepo)
	a.Campaigns = campaigns.NewService(campaignRepo)
	a.Queue = queue.NewService(queue.NewPostgresRepo(a.DB))
	a.Numbers = numbers.NewService(numbers.NewPostgresRepo(a.DB), a.Audit)
	a.Calls = calls.NewService(callRepo)
	a.SMS = sms.NewPostgresRepo(a.DB)

	performer := followups.NewDefaultPerformer(leadRepo, campaignRepo, a.Queue, a.Publisher, topics.Sequence)
	a.FollowUps = followups.NewScheduler(followups.NewPostgresRepo(a.DB), performer)

	a.Dispositions = dispositions.NewRouter(dispositions.Deps{
		Repo:      dispositions.NewPostgresRepo(a.DB),
		Leads:     a.Leads,
		Calls:     callRepo,
		FollowUps: a.FollowUps,
		Audit:     a.Audit,
		Publisher: a.Publisher,
		Topic:     topics.Disposition,
	})

	a.Dispatcher = dispatch.New(dispatch.Deps{
		Campaigns:     campaignRepo,
		Leads:         leadRepo,
		Queue:         a.Queue,
		Numbers:       a.Numbers,
		Calls:         a.Calls,
		Initiator:     telephony.NewRetellClient(0),
		Publisher:     a.Publisher,
		WorkflowTopic: topics.Workflow,
		Audit:         a.Audit,
		Locker:        dispatch.NewRedisLocker(a.Redis),
		Pacer:         dispatch.NewRedisPacer(a.Redis),
		Config:        cfg.Dispatch,
	})

	a.Ingest = webhooks.NewIngest(webhooks.Deps{
		Calls:        a.Calls,
		Leads:        a.Leads,
		SMS:          a.SMS,
		Numbers:      a.Numbers.Repo(),
		FollowUps:    a.FollowUps,
		Dispositions: a.Dispositions,
		Audit:        a.Audit,
	})

	a.Reports = reporting.NewService(callRepo, leadRepo)
}

// Migrate applies pending schema migrations and returns the files it ran.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	return utils.ApplyMigrations(ctx, a.DB, migrations.FS)
}

// HTTPHandlers returns the tenant API handlers.
func (a *App) HTTPHandlers() httpapi.Handlers {
	return httpapi.Handlers{
		Auth:         a.Auth,
		DevTokens:    a.Config.IsDevelopment(),
		Tenants:      a.Tenants,
		Dispatcher:   a.Dispatcher,
		Dispositions: a.Dispositions,
		FollowUps:    a.FollowUps,
		Leads:        a.Leads,
		Campaigns:    a.Campaigns,
		Numbers:      a.Numbers,
		Reports:      a.Reports,
	}
}

// WebhookHandler returns the vendor callback handler.
func (a *App) WebhookHandler() webhooks.Handler {
	return webhooks.Handler{
		Ingest: a.Ingest,
		Twilio: webhooks.TwilioVerification{
			Enabled:       a.Config.Twilio.VerifySignatures,
			AuthToken:     a.Config.Twilio.AuthToken,
			PublicBaseURL: a.Config.Twilio.PublicBaseURL,
		},
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
